// Package storage keeps uploaded video bytes, on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
)

var (
	ErrNotExist    = errors.New("storage: object does not exist")
	ErrInvalidName = errors.New("storage: invalid object name")
)

// Store is a flat namespace of immutable blobs addressed by generated names.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, contentType string) error
	Size(ctx context.Context, name string) (int64, error)
	// Open returns a reader over length bytes starting at offset. Every call
	// opens a fresh reader.
	Open(ctx context.Context, name string, offset, length int64) (io.ReadCloser, error)
	Delete(ctx context.Context, name string) error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,199}$`)

// ValidName reports whether name is a plain object name: no separators, no
// parent references.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && !strings.Contains(name, "..")
}

type readCloser struct {
	io.Reader
	io.Closer
}
