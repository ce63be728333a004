// Package archive stores small JSON documents, such as portfolio holdings,
// on the local filesystem or an S3-compatible bucket.
package archive

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read when no document exists at the path.
var ErrNotFound = errors.New("archive: document not found")

// Storage is a flat document store addressed by slash-separated paths.
type Storage interface {
	// Read returns the document at path, or ErrNotFound.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write stores data at path, replacing any existing document.
	Write(ctx context.Context, path string, data []byte) error

	// List returns the paths under prefix, relative to the store root.
	List(ctx context.Context, prefix string) ([]string, error)
}
