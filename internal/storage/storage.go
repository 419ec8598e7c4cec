// Package storage provides the minimal object-storage surface the
// harness needs to drive and verify a backup pipeline test. It is not
// a general-purpose storage client.
package storage

import (
	"context"
	"io"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
)

// API defines the object-storage operations consumed by the harness
type API interface {
	// BucketAccess classifies a bucket as absent, granted, or denied
	BucketAccess(ctx context.Context, name string) (domain.AccessState, error)

	// CreateBucket creates a bucket
	CreateBucket(ctx context.Context, name string) error

	// DeleteBucketRecursive deletes a bucket with all of its contents,
	// including incomplete multipart-upload remnants
	DeleteBucketRecursive(ctx context.Context, name string) error

	// ListObjects returns one listing snapshot for the given prefix
	ListObjects(ctx context.Context, bucket, prefix string) ([]domain.ObjectInfo, error)

	// GetObject retrieves an object body
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// PutObject stores an object
	PutObject(ctx context.Context, bucket, key string, body io.Reader) error
}
