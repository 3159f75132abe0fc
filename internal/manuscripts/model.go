package manuscripts

import "time"

// Manuscript represents an uploaded manuscript owned by a user.
type Manuscript struct {
	ID                  string
	UserID              string
	FileName            string
	OriginalFilename    string
	MimeType            string
	ContentType         string
	SizeBytes           int64
	StorageProvider     string
	StorageKey          string
	ExtractedTextKey    string
	ExtractedAt         *time.Time
	PaperType           string
	PaperTypeConfidence string
	TextLength          int
	CreatedAt           time.Time
}
