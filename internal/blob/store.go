// Package blob stores the bytes of uploaded files. Metadata lives in the File
// records; a blob key is the File's generated filename.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/and161185/carenotes/internal/errs"
)

// Driver names accepted by configuration.
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

var (
	// ErrNotFound is returned by Get for unknown keys.
	ErrNotFound = fmt.Errorf("blob: %w", errs.ErrNotFound)
	// ErrInvalidKey rejects keys that are empty or could escape the store root.
	ErrInvalidKey = errors.New("blob: invalid key")
)

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
}

// Store is a flat key/value byte store.
type Store interface {
	// Put writes r under key, replacing any previous content.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Get opens the object under key. The caller closes the reader.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// sanitizeKey rejects keys that could escape the store root.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" ||
		strings.Contains(key, "..") ||
		strings.HasPrefix(key, "/") ||
		strings.Contains(key, `\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return path.Clean(key), nil
}
