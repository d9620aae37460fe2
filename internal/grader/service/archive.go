package service

import (
	"bytes"
	"context"
	"fmt"

	"codearena/internal/common/storage"
	appErr "codearena/pkg/errors"

	"github.com/klauspost/compress/zstd"
)

// SourceArchiver writes submitted source code to object storage,
// compressed. Archiving is best effort; grading never depends on it.
type SourceArchiver struct {
	store   storage.ObjectStorage
	bucket  string
	encoder *zstd.Encoder
}

// NewSourceArchiver creates a source archiver targeting the given bucket.
func NewSourceArchiver(store storage.ObjectStorage, bucket string) (*SourceArchiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object storage is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder failed: %w", err)
	}
	return &SourceArchiver{store: store, bucket: bucket, encoder: encoder}, nil
}

// Archive compresses and uploads one submission's source code.
func (a *SourceArchiver) Archive(ctx context.Context, submissionID, language, code string) error {
	compressed := a.encoder.EncodeAll([]byte(code), nil)
	key := fmt.Sprintf("submissions/%s/%s.%s.zst", submissionID, "source", language)
	err := a.store.PutObject(ctx, a.bucket, key,
		bytes.NewReader(compressed), int64(len(compressed)), "application/zstd")
	if err != nil {
		return appErr.Wrapf(err, appErr.InternalServerError, "archive source failed")
	}
	return nil
}
