package manuscripts_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/bootstrap"
	"manuscript-backend/internal/shared/config"
)

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

// buildDocx assembles a minimal .docx archive whose document.xml carries the
// given paragraphs.
func buildDocx(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	sb.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, p := range paragraphs {
		sb.WriteString(`<w:p><w:r><w:t>`)
		sb.WriteString(p)
		sb.WriteString(`</w:t></w:r></w:p>`)
	}
	sb.WriteString(`</w:body></w:document>`)

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	f, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(sb.String())); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func uploadManuscript(t *testing.T, router http.Handler, fileName string, payload []byte) string {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(payload); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/manuscripts", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		ManuscriptID string `json:"manuscriptId"`
		FileName     string `json:"fileName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ManuscriptID == "" {
		t.Fatalf("expected manuscriptId, got empty")
	}
	return created.ManuscriptID
}

func TestManuscriptsUploadAndCurrent(t *testing.T) {
	app := newTestApp(t)

	docx := buildDocx(t, "A pilot study of reader fatigue.")
	uploadManuscript(t, app.Router, "paper.docx", docx)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts/current", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var current struct {
		ManuscriptID string `json:"manuscriptId"`
		FileName     string `json:"fileName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
		t.Fatalf("decode current response: %v", err)
	}
	if current.FileName != "paper.docx" {
		t.Fatalf("expected fileName paper.docx, got %s", current.FileName)
	}
}

func TestManuscriptsDetectType(t *testing.T) {
	app := newTestApp(t)

	docx := buildDocx(t,
		"We conducted a systematic review and meta-analysis following PRISMA.",
		"The search strategy covered three databases and study selection was independent.",
		"Risk of bias was assessed and heterogeneity reported with a forest plot.",
	)
	id := uploadManuscript(t, app.Router, "review.docx", docx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/manuscripts/"+id+"/detect-type", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var detection struct {
		DetectedType string `json:"detectedType"`
		Confidence   string `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&detection); err != nil {
		t.Fatalf("decode detection: %v", err)
	}
	if detection.DetectedType != "systematic-review" {
		t.Fatalf("expected systematic-review, got %s", detection.DetectedType)
	}

	// Detection is persisted on the manuscript record.
	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts/"+id, nil)
	addGuestHeader(reqGet)
	respGet := httptest.NewRecorder()
	app.Router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
	var ms struct {
		PaperType string `json:"paperType"`
	}
	if err := json.NewDecoder(respGet.Body).Decode(&ms); err != nil {
		t.Fatalf("decode manuscript: %v", err)
	}
	if ms.PaperType != "systematic-review" {
		t.Fatalf("expected persisted paperType systematic-review, got %s", ms.PaperType)
	}
}

func TestManuscriptsListRequiresLogin(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/manuscripts", nil)
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for guest history, got %d", resp.Code)
	}
}

func TestManuscriptsCreateFromS3Validation(t *testing.T) {
	app := newTestApp(t)

	payload := strings.NewReader(`{"originalFileName":"paper.pdf","contentType":"application/pdf","sizeBytes":100}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/manuscripts/from-s3", payload)
	req.Header.Set("Content-Type", "application/json")
	addGuestHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without s3Key, got %d", resp.Code)
	}
}

func addGuestHeader(req *http.Request) {
	req.Header.Set("X-Guest-Id", "test-guest")
}
