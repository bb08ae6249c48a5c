// Package storage defines the object-storage contract the gateway relies on.
// Backends live in the s3 and minio subpackages.
package storage

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Metadata converts info into the form persisted on the asset.
func (i *ObjectInfo) Metadata() *models.StorageMetadata {
	m := &models.StorageMetadata{
		ETag:          i.ETag,
		ContentLength: i.Size,
		ContentType:   i.ContentType,
	}
	if !i.LastModified.IsZero() {
		lm := i.LastModified.UTC()
		m.LastModified = &lm
	}
	return m
}

// Object is an open object body. Callers must close Body.
type Object struct {
	Body io.ReadCloser
	Info ObjectInfo
}

// Backend is implemented by every object-storage driver. Missing objects
// are reported as common.ErrorNotFound.
type Backend interface {
	Get(ctx context.Context, key string) (*Object, error)
	// Put stores body under key. size may be -1 when unknown.
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*ObjectInfo, error)
	// Copy duplicates src onto dst inside the same bucket.
	Copy(ctx context.Context, src, dst string) error
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// StripETag removes the quotes S3-compatible servers put around ETags.
func StripETag(etag string) string {
	return strings.Trim(strings.TrimSpace(etag), `"`)
}
