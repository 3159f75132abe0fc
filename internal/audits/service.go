package audits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"manuscript-backend/internal/gamification"
	"manuscript-backend/internal/llm"
	"manuscript-backend/internal/manuscripts"
	"manuscript-backend/internal/papertype"
	"manuscript-backend/internal/queue"
	"manuscript-backend/internal/shared/metrics"
	"manuscript-backend/internal/shared/storage/object"
	"manuscript-backend/internal/shared/telemetry"
	"manuscript-backend/internal/extract"
)

// Service contains business logic for audits.
type Service struct {
	Repo           Repo
	ManuscriptRepo manuscripts.Repo
	Store          object.ObjectStore
	LLM            llm.Client
	Gamification   *gamification.Service
	JobQueue       queue.Client
	Provider       string
	Model          string
	AuditVersion   string
}

// Start enqueues a new audit and kicks off asynchronous completion. When a
// job queue is configured the audit is handed to the worker fleet instead of
// an in-process goroutine.
func (s *Service) Start(ctx context.Context, userID, manuscriptID string, helpTypes []string) (Audit, error) {
	if manuscriptID == "" || userID == "" {
		return Audit{}, errors.New("manuscriptID and userID are required")
	}

	ms, err := s.ManuscriptRepo.GetByID(ctx, userID, manuscriptID)
	if err != nil {
		return Audit{}, err
	}

	audit := Audit{
		ID:            uuid.NewString(),
		ManuscriptID:  ms.ID,
		UserID:        userID,
		PaperType:     ms.PaperType,
		HelpTypes:     normalizeHelpTypes(helpTypes),
		PromptVersion: normalizeAuditVersion(s.AuditVersion),
		Provider:      normalizeProvider(s.Provider),
		Model:         s.Model,
		Status:        StatusQueued,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, audit); err != nil {
		return Audit{}, err
	}
	metrics.IncAuditStarted()

	if s.JobQueue != nil {
		msg := queue.Message{
			AuditID:    audit.ID,
			RequestID:  requestIDFromContext(ctx),
			EnqueuedAt: audit.CreatedAt.Format(time.RFC3339),
			Version:    queue.MessageVersion,
		}
		if err := s.JobQueue.Send(ctx, msg); err != nil {
			telemetry.Error("audit.enqueue_failed", map[string]any{
				"audit_id": audit.ID,
				"error":    sanitizeError(err),
			})
			go s.completeAsync(backgroundWithRequestID(ctx), audit.ID)
		}
		return audit, nil
	}

	go s.completeAsync(backgroundWithRequestID(ctx), audit.ID)

	return audit, nil
}

// Get returns an audit owned by the user.
func (s *Service) Get(ctx context.Context, userID, auditID string) (Audit, error) {
	if auditID == "" {
		return Audit{}, errors.New("auditID is required")
	}
	audit, err := s.Repo.GetByID(ctx, auditID)
	if err != nil {
		return Audit{}, err
	}
	if audit.UserID != userID {
		return Audit{}, ErrNotFound
	}
	return audit, nil
}

// List returns the user's audits, newest-first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Audit, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit)
}

// History returns the audit trail of one manuscript, newest-first, for trend
// display.
func (s *Service) History(ctx context.Context, userID, manuscriptID string, limit int) ([]Audit, error) {
	if userID == "" || manuscriptID == "" {
		return nil, errors.New("userID and manuscriptID are required")
	}
	return s.Repo.ListByManuscript(ctx, userID, manuscriptID, limit)
}

// ProcessAudit runs the full audit pipeline for a queued audit. Used by both
// the in-process path and the queue worker.
func (s *Service) ProcessAudit(ctx context.Context, auditID string) error {
	startedAt := time.Now().UTC()

	if err := s.Repo.UpdateStatus(ctx, auditID, StatusProcessing); err != nil {
		return s.failAudit(ctx, auditID, "", "", fmt.Errorf("set processing failed: %w", err), &startedAt)
	}

	audit, err := s.Repo.GetByID(ctx, auditID)
	if err != nil {
		return s.failAudit(ctx, auditID, "", "", fmt.Errorf("audit lookup: %w", err), &startedAt)
	}
	telemetry.Info("audit.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           audit.UserID,
		"manuscript_id":     audit.ManuscriptID,
		"audit_id":          audit.ID,
		"status":            StatusProcessing,
		"status_transition": "queued->processing",
	})

	if s.ManuscriptRepo == nil || s.Store == nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, errors.New("missing manuscript store dependencies"), &startedAt)
	}
	if s.LLM == nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, errors.New("missing llm client"), &startedAt)
	}
	requestID := requestIDFromContext(ctx)
	llmClient := newRetryingLLM(s.LLM, auditID, requestID)

	ms, err := s.ManuscriptRepo.GetByID(ctx, audit.UserID, audit.ManuscriptID)
	if err != nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("manuscript lookup id=%s: %w", audit.ManuscriptID, err), &startedAt)
	}

	extractedKey := ms.ExtractedTextKey
	if extractedKey == "" {
		if _, err := extract.ExtractText(ctx, s.Store, ms.StorageKey, ms.MimeType, ms.FileName); err != nil {
			return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("manuscript %s mime %s: %w", ms.ID, ms.MimeType, err), &startedAt)
		}
		extractedKey = ms.StorageKey + ".extracted.txt"
		if err := s.ManuscriptRepo.UpdateExtraction(ctx, ms.UserID, ms.ID, extractedKey, time.Now().UTC()); err != nil {
			return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("manuscript %s: update extraction: %w", ms.ID, err), &startedAt)
		}
	}

	text, err := loadText(ctx, s.Store, extractedKey)
	if err != nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("manuscript %s: load extracted text: %w", ms.ID, err), &startedAt)
	}

	paperType := audit.PaperType
	if paperType == "" {
		detection := papertype.Detect(text)
		metrics.IncPaperTypeDetection()
		paperType = detection.DetectedType
		if err := s.ManuscriptRepo.UpdatePaperType(ctx, ms.UserID, ms.ID, paperType, detection.Confidence, len(text)); err != nil {
			telemetry.Error("audit.paper_type_persist_failed", map[string]any{
				"manuscript_id": ms.ID,
				"error":         sanitizeError(err),
			})
		}
	}

	input := llm.AuditInput{
		ManuscriptText: text,
		PaperType:      paperType,
		HelpTypes:      audit.HelpTypes,
		PromptVersion:  audit.PromptVersion,
	}

	var promptHash string
	ctx = llm.WithPromptHashCapture(ctx, &promptHash)
	raw, err := llmClient.AuditManuscript(ctx, input)
	if err != nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("llm audit: %w", err), &startedAt)
	}

	// Decode the reply; one fix-JSON retry for syntactically broken output.
	// A reply that still fails to decode is not an audit failure: the
	// validator turns it into the labeled empty response.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		rawRetry, retryErr := llmClient.AuditManuscript(llm.WithFixJSON(ctx, string(raw)), input)
		if retryErr == nil {
			if err := json.Unmarshal(rawRetry, &decoded); err != nil {
				decoded = nil
			}
		} else {
			decoded = nil
		}
	}

	resp, warnings := Validate(decoded)
	result, err := resultDocument(resp)
	if err != nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("encode audit result: %w", err), &startedAt)
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.UpdateResult(ctx, auditID, result, warnings, completedAt); err != nil {
		return s.failAudit(ctx, auditID, audit.UserID, audit.ManuscriptID, fmt.Errorf("set audit result failed: %w", err), &startedAt)
	}
	metrics.IncAuditCompleted()
	metrics.AddAuditRigorWarnings(len(warnings))
	metrics.ObserveAuditDurationMs(durationMs(&startedAt, &completedAt))

	if len(warnings) > 0 {
		telemetry.Warn("audit.rigor", map[string]any{
			"request_id":    requestID,
			"audit_id":      audit.ID,
			"manuscript_id": audit.ManuscriptID,
			"warnings":      warnings,
		})
	}
	telemetry.Info("audit.status", map[string]any{
		"request_id":        requestID,
		"user_id":           audit.UserID,
		"manuscript_id":     audit.ManuscriptID,
		"audit_id":          audit.ID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       durationMs(&startedAt, &completedAt),
		"prompt_hash":       promptHash,
	})

	if s.Gamification != nil {
		var readiness *int
		if resp.ExecutiveSummary != invalidResponseMessage {
			score := resp.ReadinessScore
			readiness = &score
		}
		if _, _, err := s.Gamification.RecordAudit(ctx, audit.UserID, len(text), audit.HelpTypes, readiness); err != nil {
			telemetry.Error("audit.gamification_failed", map[string]any{
				"audit_id": audit.ID,
				"user_id":  audit.UserID,
				"error":    sanitizeError(err),
			})
		}
	}

	return nil
}

func (s *Service) completeAsync(ctx context.Context, auditID string) {
	defer func() {
		if r := recover(); r != nil {
			_ = s.failAudit(ctx, auditID, "", "", fmt.Errorf("panic: %v", r), nil)
		}
	}()
	_ = s.ProcessAudit(ctx, auditID)
}

func (s *Service) failAudit(ctx context.Context, auditID, userID, manuscriptID string, err error, startedAt *time.Time) error {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	if updateErr := s.Repo.UpdateFailure(context.Background(), auditID, code, msg, retryable, completedAt); updateErr != nil {
		fmt.Printf("failAudit: update failed id=%s err=%v orig=%v\n", auditID, updateErr, err)
	}
	metrics.IncAuditFailed()
	if startedAt != nil {
		metrics.ObserveAuditDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("audit.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           userID,
		"manuscript_id":     manuscriptID,
		"audit_id":          auditID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, &completedAt),
	})
	return err
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "openai"
	}
	return provider
}

func normalizeAuditVersion(version string) string {
	if strings.TrimSpace(version) == "" {
		return "unknown"
	}
	return strings.TrimSpace(version)
}

func normalizeHelpTypes(helpTypes []string) []string {
	var out []string
	for _, h := range helpTypes {
		if trimmed := strings.TrimSpace(h); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

func classifyFailure(err error) (string, bool) {
	if err == nil {
		return ErrorCodeInternal, false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorCodeLLMTimeout, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "openai request timeout") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "timeout") && strings.Contains(msg, "llm") {
		return ErrorCodeLLMTimeout, true
	}
	if strings.Contains(msg, "schema") || strings.Contains(msg, "llm output invalid") {
		return ErrorCodeLLMSchemaMismatch, false
	}
	if strings.Contains(msg, "validation") && !strings.Contains(msg, "llm") {
		return ErrorCodeValidation, false
	}
	if strings.Contains(msg, "manuscript") || strings.Contains(msg, "storage") ||
		strings.Contains(msg, "audit result") || strings.Contains(msg, "set processing") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func loadText(ctx context.Context, store object.ObjectStore, key string) (string, error) {
	body, err := store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// resultDocument converts a validated response into the generic document
// shape the repo persists.
func resultDocument(resp AnalysisResponse) (map[string]any, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
