// Package storage provides the object storage abstraction used for
// archiving submitted source code.
package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object storage operations used by the service.
type ObjectStorage interface {
	// PutObject uploads an object with the given key.
	PutObject(ctx context.Context, bucket, objectKey string, reader io.Reader, sizeBytes int64, contentType string) error

	// GetObject downloads an object; the caller must close the reader.
	GetObject(ctx context.Context, bucket, objectKey string) (io.ReadCloser, error)
}
