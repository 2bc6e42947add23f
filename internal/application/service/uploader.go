package service

import (
	"context"
	"io"
)

type PutOptions struct {
	ContentType string
	Public      bool
}

// BlobStore stores binaries under caller-chosen keys such as
// "qr-codes/<token>.png" and returns a publicly fetchable URL.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) (string, error)
	Delete(ctx context.Context, key string) error
}
