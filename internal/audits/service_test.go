package audits

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"manuscript-backend/internal/gamification"
	"manuscript-backend/internal/llm"
	"manuscript-backend/internal/manuscripts"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (s *fakeStore) Save(ctx context.Context, userID, fileName string, r io.Reader) (string, int64, string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", 0, "", err
	}
	key := userID + "/" + fileName
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
	return key, int64(len(raw)), "application/pdf", nil
}

func (s *fakeStore) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	s.mu.Lock()
	raw, ok := s.data[storageKey]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no object for key %s", storageKey)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (s *fakeStore) SaveWithKey(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.data[storageKey] = raw
	s.mu.Unlock()
	return int64(len(raw)), nil
}

type fakeLLM struct {
	response json.RawMessage
	err      error
	calls    int
}

func (f *fakeLLM) AuditManuscript(ctx context.Context, input llm.AuditInput) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

const validAuditJSON = `{
	"readinessScore": 82,
	"executiveSummary": "Solid manuscript.",
	"documentClassification": {"manuscriptType": "Original Research", "discipline": "Cardiology", "studyDesign": "RCT", "reportingGuideline": "CONSORT"},
	"scoreBreakdown": {"methods": {"score": 80, "notes": "Good"}},
	"criticalIssues": [],
	"detailedFeedback": [],
	"actionItems": []
}`

func newTestService(t *testing.T, llmClient llm.Client) (*Service, *manuscripts.MemoryRepo, *fakeStore, *gamification.Service) {
	t.Helper()
	msRepo := manuscripts.NewMemoryRepo()
	store := newFakeStore()
	gamificationSvc := gamification.NewService()
	svc := &Service{
		Repo:           NewMemoryRepo(),
		ManuscriptRepo: msRepo,
		Store:          store,
		LLM:            llmClient,
		Gamification:   gamificationSvc,
		Provider:       "openai",
		Model:          "gpt-5-mini",
		AuditVersion:   "gpt-5-mini:v1",
	}
	return svc, msRepo, store, gamificationSvc
}

func seedManuscript(t *testing.T, msRepo *manuscripts.MemoryRepo, store *fakeStore, userID, text string) manuscripts.Manuscript {
	t.Helper()
	ctx := context.Background()
	key := userID + "/paper.pdf"
	extractedKey := key + ".extracted.txt"
	if _, err := store.SaveWithKey(ctx, extractedKey, "text/plain", strings.NewReader(text)); err != nil {
		t.Fatalf("seed extracted text: %v", err)
	}
	ms := manuscripts.Manuscript{
		ID:               "ms-1",
		UserID:           userID,
		FileName:         "paper.pdf",
		MimeType:         "application/pdf",
		StorageKey:       key,
		ExtractedTextKey: extractedKey,
		PaperType:        "quantitative-experimental",
		CreatedAt:        time.Now().UTC(),
	}
	if err := msRepo.Create(ctx, ms); err != nil {
		t.Fatalf("create manuscript: %v", err)
	}
	return ms
}

func startQueuedAudit(t *testing.T, svc *Service, ms manuscripts.Manuscript, helpTypes []string) Audit {
	t.Helper()
	audit := Audit{
		ID:            "audit-1",
		ManuscriptID:  ms.ID,
		UserID:        ms.UserID,
		PaperType:     ms.PaperType,
		HelpTypes:     helpTypes,
		PromptVersion: "gpt-5-mini:v1",
		Provider:      "openai",
		Model:         "gpt-5-mini",
		Status:        StatusQueued,
		CreatedAt:     time.Now().UTC(),
	}
	if err := svc.Repo.Create(context.Background(), audit); err != nil {
		t.Fatalf("create audit: %v", err)
	}
	return audit
}

func TestProcessAuditCompletes(t *testing.T) {
	llmClient := &fakeLLM{response: json.RawMessage(validAuditJSON)}
	svc, msRepo, store, gamificationSvc := newTestService(t, llmClient)
	ms := seedManuscript(t, msRepo, store, "user-1", "randomized controlled trial text")
	audit := startQueuedAudit(t, svc, ms, []string{"Comprehensive Review"})

	if err := svc.ProcessAudit(context.Background(), audit.ID); err != nil {
		t.Fatalf("process audit: %v", err)
	}

	got, err := svc.Repo.GetByID(context.Background(), audit.ID)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s (error=%s)", got.Status, got.ErrorMessage)
	}
	if got.Result == nil {
		t.Fatal("expected result document")
	}
	if score, ok := got.Result["readinessScore"].(float64); !ok || score != 82 {
		t.Fatalf("expected readinessScore 82, got %v", got.Result["readinessScore"])
	}
	if got.CompletedAt == nil {
		t.Fatal("expected completedAt set")
	}

	profile, err := gamificationSvc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	// base 100 + comprehensive 50 + readiness>=80 bonus 25
	if profile.XP != 175 {
		t.Fatalf("expected 175 XP, got %d", profile.XP)
	}
	if profile.AuditsTotal != 1 {
		t.Fatalf("expected 1 audit recorded, got %d", profile.AuditsTotal)
	}
}

func TestProcessAuditInvalidJSONCompletesWithFallback(t *testing.T) {
	llmClient := &fakeLLM{response: json.RawMessage("this is not json")}
	svc, msRepo, store, gamificationSvc := newTestService(t, llmClient)
	ms := seedManuscript(t, msRepo, store, "user-1", "manuscript text")
	audit := startQueuedAudit(t, svc, ms, nil)

	if err := svc.ProcessAudit(context.Background(), audit.ID); err != nil {
		t.Fatalf("process audit: %v", err)
	}

	got, err := svc.Repo.GetByID(context.Background(), audit.ID)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected status completed, got %s", got.Status)
	}
	if got.Result["executiveSummary"] != "AI returned invalid response format" {
		t.Fatalf("expected invalid-format summary, got %v", got.Result["executiveSummary"])
	}
	// first call plus one fix-JSON retry
	if llmClient.calls != 2 {
		t.Fatalf("expected 2 llm calls, got %d", llmClient.calls)
	}

	// no readiness bonus when the response was invalid
	profile, err := gamificationSvc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.XP != 100 {
		t.Fatalf("expected base 100 XP, got %d", profile.XP)
	}
}

func TestProcessAuditLLMTimeoutFails(t *testing.T) {
	llmClient := &fakeLLM{err: fmt.Errorf("openai request timeout: %w", context.DeadlineExceeded)}
	svc, msRepo, store, _ := newTestService(t, llmClient)
	ms := seedManuscript(t, msRepo, store, "user-1", "manuscript text")
	audit := startQueuedAudit(t, svc, ms, nil)

	if err := svc.ProcessAudit(context.Background(), audit.ID); err == nil {
		t.Fatal("expected process error")
	}

	got, err := svc.Repo.GetByID(context.Background(), audit.ID)
	if err != nil {
		t.Fatalf("get audit: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected status failed, got %s", got.Status)
	}
	if got.ErrorCode != ErrorCodeLLMTimeout {
		t.Fatalf("expected %s, got %s", ErrorCodeLLMTimeout, got.ErrorCode)
	}
	if got.Retryable == nil || !*got.Retryable {
		t.Fatal("expected timeout to be retryable")
	}
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, msRepo, store, _ := newTestService(t, &fakeLLM{response: json.RawMessage(validAuditJSON)})
	ms := seedManuscript(t, msRepo, store, "user-1", "text")
	audit := startQueuedAudit(t, svc, ms, nil)

	if _, err := svc.Get(context.Background(), "user-2", audit.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "user-1", audit.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
}

func TestStartRequiresManuscript(t *testing.T) {
	svc, _, _, _ := newTestService(t, &fakeLLM{response: json.RawMessage(validAuditJSON)})
	if _, err := svc.Start(context.Background(), "user-1", "missing", nil); !errors.Is(err, manuscripts.ErrNotFound) {
		t.Fatalf("expected manuscripts.ErrNotFound, got %v", err)
	}
}

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  string
		wantRetry bool
	}{
		{"deadline", context.DeadlineExceeded, ErrorCodeLLMTimeout, true},
		{"openai timeout", errors.New("openai request timeout: x"), ErrorCodeLLMTimeout, true},
		{"schema", errors.New("llm output invalid: schema mismatch"), ErrorCodeLLMSchemaMismatch, false},
		{"storage", errors.New("manuscript ms-1: load extracted text: boom"), ErrorCodeStorage, true},
		{"other", errors.New("boom"), ErrorCodeInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, retryable := classifyFailure(tt.err)
			if code != tt.wantCode || retryable != tt.wantRetry {
				t.Fatalf("classifyFailure(%v) = (%s, %v), want (%s, %v)", tt.err, code, retryable, tt.wantCode, tt.wantRetry)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	err := errors.New("line one\nline two\r\nline three")
	got := sanitizeError(err)
	if strings.ContainsAny(got, "\n\r") {
		t.Fatalf("expected newlines stripped, got %q", got)
	}

	long := errors.New(strings.Repeat("x", 600))
	if len(sanitizeError(long)) != 500 {
		t.Fatalf("expected 500-char cap, got %d", len(sanitizeError(long)))
	}
	if sanitizeError(nil) != "" {
		t.Fatal("expected empty string for nil error")
	}
}
