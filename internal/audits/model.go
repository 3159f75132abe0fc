package audits

import "time"

// Audit statuses.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Audit represents one manuscript audit job.
type Audit struct {
	ID            string         `json:"id"`
	ManuscriptID  string         `json:"manuscriptId"`
	UserID        string         `json:"userId"`
	PaperType     string         `json:"paperType,omitempty"`
	HelpTypes     []string       `json:"helpTypes,omitempty"`
	PromptVersion string         `json:"promptVersion"`
	Provider      string         `json:"provider"`
	Model         string         `json:"model"`
	Status        string         `json:"status"`
	Result        map[string]any `json:"result,omitempty"`
	RigorWarnings []string       `json:"rigorWarnings,omitempty"`
	ErrorCode     string         `json:"errorCode,omitempty"`
	ErrorMessage  string         `json:"errorMessage,omitempty"`
	Retryable     *bool          `json:"retryable,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   *time.Time     `json:"completedAt,omitempty"`
}
