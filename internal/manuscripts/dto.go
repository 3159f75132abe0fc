package manuscripts

import "time"

// ManuscriptResponse is the outward-facing representation of a manuscript.
type ManuscriptResponse struct {
	ManuscriptID        string    `json:"manuscriptId"`
	FileName            string    `json:"fileName"`
	MimeType            string    `json:"mimeType"`
	SizeBytes           int64     `json:"sizeBytes"`
	PaperType           string    `json:"paperType,omitempty"`
	PaperTypeConfidence string    `json:"paperTypeConfidence,omitempty"`
	UploadedAt          time.Time `json:"uploadedAt"`
}

func toResponse(ms Manuscript) ManuscriptResponse {
	return ManuscriptResponse{
		ManuscriptID:        ms.ID,
		FileName:            ms.FileName,
		MimeType:            ms.MimeType,
		SizeBytes:           ms.SizeBytes,
		PaperType:           ms.PaperType,
		PaperTypeConfidence: ms.PaperTypeConfidence,
		UploadedAt:          ms.CreatedAt,
	}
}
