package object

import (
	"context"
	"io"
)

// ObjectStore saves and retrieves binary objects. Manuscript sources and
// their derived .extracted.txt copies both live behind this interface.
type ObjectStore interface {
	Save(ctx context.Context, userId string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
