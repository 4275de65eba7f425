package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no object is stored under a key.
var ErrNotFound = errors.New("stored file not found")

// Store is the blob backend holding revision files.
type Store interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	DownloadFile(ctx context.Context, key string) (io.ReadCloser, error)
	RemoveFile(ctx context.Context, key string) error
}

// NewKey returns a fresh random object key. Keys carry no user-supplied text.
func NewKey() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
