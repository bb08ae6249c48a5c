package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/dmitrijs2005/docgate/internal/server/storage"
)

// -------- test fakes --------

type memRepo struct {
	mu     sync.Mutex
	assets map[string]*models.Asset
}

func copyAsset(a *models.Asset) *models.Asset {
	c := *a
	b, _ := json.Marshal(a.Attributes)
	c.Attributes = models.Attributes{}
	_ = json.Unmarshal(b, &c.Attributes)
	return &c
}

func (r *memRepo) Get(_ context.Context, scope models.AssetScope) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[scope.AssetID]
	if !ok || a.ProjectID != scope.ProjectID {
		return nil, common.ErrorNotFound
	}
	return copyAsset(a), nil
}

func (r *memRepo) UpdateAttributes(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur := copyAsset(r.assets[a.ID])
	cur.Attributes = copyAsset(a).Attributes
	r.assets[a.ID] = cur
	return nil
}

func (r *memRepo) UpdateContent(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[a.ID] = copyAsset(a)
	return nil
}

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStore) Get(_ context.Context, key string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &storage.Object{
		Body: io.NopCloser(bytes.NewReader(b)),
		Info: storage.ObjectInfo{Key: key, Size: int64(len(b))},
	}, nil
}

func (s *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*storage.ObjectInfo, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return &storage.ObjectInfo{Key: key, Size: int64(len(b)), ContentType: contentType}, nil
}

func (s *memStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[src]
	if !ok {
		return common.ErrorNotFound
	}
	s.objects[dst] = append([]byte(nil), b...)
	return nil
}

func (s *memStore) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &storage.ObjectInfo{Key: key, Size: int64(len(b)), ETag: "etag-" + strconv.Itoa(len(b))}, nil
}

func (s *memStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://s3.example/" + key, nil
}
