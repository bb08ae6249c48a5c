package gateway

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/logging"
	"github.com/dmitrijs2005/docgate/internal/server/config"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/dmitrijs2005/docgate/internal/server/storage"
)

// -------- test fakes --------

type memRepo struct {
	mu     sync.Mutex
	assets map[string]*models.Asset

	updateAttrs   int
	updateContent int
	getErr        error
}

func newMemRepo(assets ...*models.Asset) *memRepo {
	r := &memRepo{assets: map[string]*models.Asset{}}
	for _, a := range assets {
		r.assets[a.ID] = cloneAsset(a)
	}
	return r
}

func cloneAsset(a *models.Asset) *models.Asset {
	c := *a
	if a.StorageMetadata != nil {
		m := *a.StorageMetadata
		c.StorageMetadata = &m
	}
	b, err := json.Marshal(a.Attributes)
	if err != nil {
		panic(err)
	}
	c.Attributes = models.Attributes{}
	if err := json.Unmarshal(b, &c.Attributes); err != nil {
		panic(err)
	}
	return &c
}

func (r *memRepo) Get(_ context.Context, scope models.AssetScope) (*models.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	a, ok := r.assets[scope.AssetID]
	if !ok || a.ProjectID != scope.ProjectID {
		return nil, common.ErrorNotFound
	}
	return cloneAsset(a), nil
}

func (r *memRepo) UpdateAttributes(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.assets[a.ID]
	if !ok {
		return common.ErrorNotFound
	}
	next := cloneAsset(cur)
	next.Attributes = cloneAsset(a).Attributes
	r.assets[a.ID] = next
	r.updateAttrs++
	return nil
}

func (r *memRepo) UpdateContent(_ context.Context, a *models.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[a.ID]; !ok {
		return common.ErrorNotFound
	}
	r.assets[a.ID] = cloneAsset(a)
	r.updateContent++
	return nil
}

func (r *memRepo) stored(id string) *models.Asset {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAsset(r.assets[id])
}

type memObject struct {
	data        []byte
	contentType string
	modified    time.Time
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject

	calls    int
	puts     int
	copyErr  func(src, dst string) error
	putErr   error
	presign  string
	headFail bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]memObject{}}
}

func (s *memStore) set(key, data, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memObject{data: []byte(data), contentType: contentType, modified: time.Now().UTC()}
}

func (s *memStore) content(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return string(o.data), ok
}

func (s *memStore) keysWithPrefix(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func etagOf(b []byte) string {
	sum := md5.Sum(b)
	return hex.EncodeToString(sum[:])
}

func (s *memStore) info(key string, o memObject) *storage.ObjectInfo {
	return &storage.ObjectInfo{
		Key:          key,
		ETag:         etagOf(o.data),
		Size:         int64(len(o.data)),
		ContentType:  o.contentType,
		LastModified: o.modified,
	}
}

func (s *memStore) Get(_ context.Context, key string) (*storage.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	o, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &storage.Object{Body: io.NopCloser(bytes.NewReader(o.data)), Info: *s.info(key, o)}, nil
}

func (s *memStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.puts++
	if s.putErr != nil {
		return nil, s.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	o := memObject{data: b, contentType: contentType, modified: time.Now().UTC()}
	s.objects[key] = o
	return s.info(key, o), nil
}

func (s *memStore) Copy(_ context.Context, src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.copyErr != nil {
		if err := s.copyErr(src, dst); err != nil {
			return err
		}
	}
	o, ok := s.objects[src]
	if !ok {
		return common.ErrorNotFound
	}
	o.data = append([]byte(nil), o.data...)
	o.modified = time.Now().UTC()
	s.objects[dst] = o
	return nil
}

func (s *memStore) Head(_ context.Context, key string) (*storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.headFail {
		return nil, fmt.Errorf("head unavailable")
	}
	o, ok := s.objects[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return s.info(key, o), nil
}

func (s *memStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return fmt.Sprintf("%s?key=%s&ttl=%d", s.presign, key, int(ttl.Seconds())), nil
}

func (s *memStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingMetrics struct {
	mu        sync.Mutex
	callbacks []int
	saves     []string
	restores  []string
	forces    []string
}

func (m *recordingMetrics) ObserveCallback(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, status)
}

func (m *recordingMetrics) ObserveSave(outcome string, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, outcome)
}

func (m *recordingMetrics) ObserveRestore(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.restores = append(m.restores, outcome)
}

func (m *recordingMetrics) ObserveForceSave(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forces = append(m.forces, outcome)
}

// tickingClock advances by step on every call so successive snapshots get
// distinct keys.
func tickingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(step)
		return now
	}
}

// -------- fixtures --------

var (
	testScope = models.AssetScope{
		WorkspaceSlug: "acme",
		ProjectID:     "9a1f3c2e-5b6d-4e7f-8a9b-0c1d2e3f4a5b",
		AssetID:       "7b2e4f10-3c5d-4a6b-9e8f-1a2b3c4d5e6f",
	}
	testWorkspaceID = "0f4e2d1c-6b5a-4987-8c7d-e6f5a4b3c2d1"
	testStorageKey  = testWorkspaceID + "/a1b2c3-report.docx"
)

func testAsset() *models.Asset {
	return &models.Asset{
		ID:          testScope.AssetID,
		WorkspaceID: testWorkspaceID,
		ProjectID:   testScope.ProjectID,
		StorageKey:  testStorageKey,
		Size:        8,
		StorageMetadata: &models.StorageMetadata{
			ETag:          "etag-v1",
			ContentLength: 8,
		},
		Attributes: models.Attributes{
			Name: "report.docx",
			Type: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			Size: 8,
		},
		IsUploaded: true,
		UpdatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SignatureSecret = "test-hmac"
	c.EditorJWTEnabled = false
	c.DocumentServerURL = "http://docs.example:8081/"
	c.RetryBaseDelay = time.Millisecond
	c.RetryMaxDelay = 4 * time.Millisecond
	c.SaveAttempts = 3
	c.CallbackTimeout = 5 * time.Second
	return c
}

type fixture struct {
	svc     *Service
	repo    *memRepo
	store   *memStore
	metrics *recordingMetrics
	cfg     *config.Config
}

func newFixture(t *testing.T, mutate ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	repo := newMemRepo(testAsset())
	store := newMemStore()
	store.set(testStorageKey, "original", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	metrics := &recordingMetrics{}
	svc := NewService(repo, store, NewKeyedMutex(), cfg, logging.Discard(),
		WithClock(tickingClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), time.Second)),
		WithMetrics(metrics),
	)
	return &fixture{svc: svc, repo: repo, store: store, metrics: metrics, cfg: cfg}
}

// callbackCapability signs a callback capability for the asset as stored.
func (f *fixture) callbackCapability(t *testing.T) Capability {
	t.Helper()
	key := DocKey(f.repo.stored(testScope.AssetID))
	return Capability{Key: key, Sig: f.svc.Signer().Sign(PurposeCallback, testScope.AssetID, key)}
}

func (r *memRepo) mutate(id string, fn func(a *models.Asset)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.assets[id])
}

// useLocker swaps the fixture's in-process lock for l.
func (f *fixture) useLocker(l Locker) {
	f.svc.locker = l
}
