package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"manuscript-backend/internal/llm"
)

func newRecordingServer(t *testing.T, lastBody *map[string]any, mu *sync.Mutex) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
			return
		}
		mu.Lock()
		*lastBody = payload
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
}

func TestAuditManuscriptOmitsTemperatureForGPT5(t *testing.T) {
	oldURL := apiURL
	t.Cleanup(func() { apiURL = oldURL })

	var mu sync.Mutex
	var lastBody map[string]any
	server := newRecordingServer(t, &lastBody, &mu)
	defer server.Close()
	apiURL = server.URL

	client, err := NewClient("test-key", "gpt-5-mini")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.AuditManuscript(context.Background(), llm.AuditInput{ManuscriptText: "text", PromptVersion: "v1"})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := lastBody["temperature"]; ok {
		t.Fatalf("expected temperature omitted for gpt-5 model, got %v", lastBody["temperature"])
	}
}

func TestAuditManuscriptSetsTemperatureForOtherModels(t *testing.T) {
	oldURL := apiURL
	t.Cleanup(func() { apiURL = oldURL })

	var mu sync.Mutex
	var lastBody map[string]any
	server := newRecordingServer(t, &lastBody, &mu)
	defer server.Close()
	apiURL = server.URL

	client, err := NewClient("test-key", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.AuditManuscript(context.Background(), llm.AuditInput{ManuscriptText: "text", PromptVersion: "v1"})
	if err != nil {
		t.Fatalf("audit: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	temp, ok := lastBody["temperature"]
	if !ok {
		t.Fatal("expected temperature set for non-gpt-5 model")
	}
	if temp != float64(0) {
		t.Fatalf("expected temperature 0, got %v", temp)
	}
}
