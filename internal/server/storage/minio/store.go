// Package minio implements storage.Backend with the MinIO Go client.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/server/storage"
	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds connection settings for the bucket. Endpoint may carry a
// scheme ("http://host:9000"); without one TLS is assumed.
type Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
	Transport    http.RoundTripper
}

// Store is a MinIO-backed storage.Backend.
type Store struct {
	client *minio.Client
	bucket string
}

func New(cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("minio: bucket is required")
	}

	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	options := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    secure,
		Region:    cfg.Region,
		Transport: cfg.Transport,
	}
	if cfg.UsePathStyle {
		options.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(host, options)
	if err != nil {
		return nil, fmt.Errorf("minio: create client: %w", err)
	}
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

func splitEndpoint(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, errors.New("minio: endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("minio: parse endpoint: %w", err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (s *Store) Get(ctx context.Context, key string) (*storage.Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.wrapError(err, "get", key)
	}
	// GetObject is lazy; Stat performs the request and surfaces 404s.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, s.wrapError(err, "get", key)
	}
	return &storage.Object{Body: obj, Info: toObjectInfo(key, info)}, nil
}

func (s *Store) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*storage.ObjectInfo, error) {
	out, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, s.wrapError(err, "put", key)
	}
	return &storage.ObjectInfo{
		Key:          key,
		ETag:         storage.StripETag(out.ETag),
		Size:         out.Size,
		ContentType:  contentType,
		LastModified: out.LastModified,
	}, nil
}

func (s *Store) Copy(ctx context.Context, src, dst string) error {
	srcOpts := minio.CopySrcOptions{Bucket: s.bucket, Object: src}
	dstOpts := minio.CopyDestOptions{Bucket: s.bucket, Object: dst}
	if _, err := s.client.CopyObject(ctx, dstOpts, srcOpts); err != nil {
		return s.wrapError(err, "copy", src)
	}
	return nil
}

func (s *Store) Head(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, s.wrapError(err, "head", key)
	}
	out := toObjectInfo(key, info)
	return &out, nil
}

func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("minio: presign %q: %w", key, err)
	}
	return u.String(), nil
}

func toObjectInfo(key string, info minio.ObjectInfo) storage.ObjectInfo {
	return storage.ObjectInfo{
		Key:          key,
		ETag:         storage.StripETag(info.ETag),
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}
}

func (s *Store) wrapError(err error, op, key string) error {
	if isNotFound(err) {
		return fmt.Errorf("minio: %s %q: %w", op, key, common.ErrorNotFound)
	}
	return fmt.Errorf("minio: %s %q: %w", op, key, err)
}

func isNotFound(err error) bool {
	errResp := minio.ErrorResponse{}
	if errors.As(err, &errResp) {
		return errResp.StatusCode == http.StatusNotFound || errResp.Code == "NoSuchKey"
	}
	return false
}
