package manuscripts

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"manuscript-backend/internal/extract"
	"manuscript-backend/internal/papertype"
	"manuscript-backend/internal/shared/metrics"
	"manuscript-backend/internal/shared/storage/object"
	"manuscript-backend/internal/shared/telemetry"
)

// Service contains business logic for manuscripts.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload saves the file to object storage and records the manuscript.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader) (Manuscript, error) {
	if fileName == "" {
		return Manuscript{}, ErrInvalidInput
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return Manuscript{}, err
	}

	ms := Manuscript{
		ID:         uuid.NewString(),
		UserID:     userID,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, ms); err != nil {
		return Manuscript{}, err
	}

	return ms, nil
}

// CreateFromS3 records a manuscript that the client uploaded directly to S3.
func (s *Service) CreateFromS3(ctx context.Context, userID, s3Key, originalFileName, contentType string, sizeBytes int64) (Manuscript, error) {
	if s3Key == "" || originalFileName == "" || contentType == "" || sizeBytes <= 0 {
		return Manuscript{}, ErrInvalidInput
	}

	ms := Manuscript{
		ID:               uuid.NewString(),
		UserID:           userID,
		FileName:         originalFileName,
		OriginalFilename: originalFileName,
		MimeType:         contentType,
		ContentType:      contentType,
		SizeBytes:        sizeBytes,
		StorageProvider:  "s3",
		StorageKey:       s3Key,
		CreatedAt:        time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, ms); err != nil {
		return Manuscript{}, err
	}
	return ms, nil
}

// Current returns the most recent manuscript for a user.
func (s *Service) Current(ctx context.Context, userID string) (Manuscript, error) {
	if userID == "" {
		return Manuscript{}, errors.New("user id required")
	}
	return s.Repo.GetCurrentByUser(ctx, userID)
}

// Get returns a manuscript owned by the user.
func (s *Service) Get(ctx context.Context, userID, manuscriptID string) (Manuscript, error) {
	if userID == "" || manuscriptID == "" {
		return Manuscript{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, manuscriptID)
}

// List returns the user's manuscripts, newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Manuscript, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// DetectPaperType extracts the manuscript text if needed, classifies the
// study type from its keywords, and persists the detection on the record.
func (s *Service) DetectPaperType(ctx context.Context, userID, manuscriptID string) (papertype.DetectionResult, error) {
	ms, err := s.Repo.GetByID(ctx, userID, manuscriptID)
	if err != nil {
		return papertype.DetectionResult{}, err
	}

	text, err := s.extractedText(ctx, ms)
	if err != nil {
		return papertype.DetectionResult{}, err
	}

	detection := papertype.Detect(text)
	metrics.IncPaperTypeDetection()
	telemetry.Info("manuscript.paper_type_detected", map[string]any{
		"manuscript_id": ms.ID,
		"paper_type":    detection.DetectedType,
		"confidence":    detection.Confidence,
		"text_length":   len(text),
	})

	if err := s.Repo.UpdatePaperType(ctx, userID, manuscriptID, detection.DetectedType, detection.Confidence, len(text)); err != nil {
		return papertype.DetectionResult{}, err
	}
	return detection, nil
}

func (s *Service) extractedText(ctx context.Context, ms Manuscript) (string, error) {
	if ms.ExtractedTextKey != "" {
		body, err := s.Store.Open(ctx, ms.ExtractedTextKey)
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

	text, err := extract.ExtractText(ctx, s.Store, ms.StorageKey, ms.MimeType, ms.FileName)
	if err != nil {
		return "", err
	}
	extractedKey := ms.StorageKey + ".extracted.txt"
	if err := s.Repo.UpdateExtraction(ctx, ms.UserID, ms.ID, extractedKey, time.Now().UTC()); err != nil {
		return "", err
	}
	return text, nil
}
