// Package gateway lets an external document server open, edit and save
// back documents held in object storage. It issues signed capability URLs,
// builds editor session configs, runs the callback-driven save pipeline and
// keeps a capped per-asset version history.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/logging"
	"github.com/dmitrijs2005/docgate/internal/netx"
	"github.com/dmitrijs2005/docgate/internal/server/config"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/dmitrijs2005/docgate/internal/server/repositories/assets"
	"github.com/dmitrijs2005/docgate/internal/server/storage"
)

const (
	commandReadTimeout = 30 * time.Second
	bookkeepingTimeout = 10 * time.Second
)

// Restore rejects these before touching storage.
var (
	ErrVersionOutsideNamespace = fmt.Errorf("%w: outside asset namespace", common.ErrVersionKeyInvalid)
	ErrVersionNotRecorded      = fmt.Errorf("%w: not recorded", common.ErrVersionKeyInvalid)
)

// Metrics receives operation outcomes. The zero Service uses a no-op.
type Metrics interface {
	ObserveCallback(status int)
	ObserveSave(outcome string, attempts int, elapsed time.Duration)
	ObserveRestore(outcome string)
	ObserveForceSave(outcome string)
}

// Outcome labels passed to Metrics.
const (
	OutcomeOK         = "ok"
	OutcomeFailed     = "failed"
	OutcomeMissingURL = "missing_url"
)

type noopMetrics struct{}

func (noopMetrics) ObserveCallback(int)                     {}
func (noopMetrics) ObserveSave(string, int, time.Duration) {}
func (noopMetrics) ObserveRestore(string)                  {}
func (noopMetrics) ObserveForceSave(string)                {}

// Service implements every gateway operation. It is safe for concurrent use.
type Service struct {
	assets  assets.Repository
	store   storage.Backend
	locker  Locker
	cfg     *config.Config
	signer  *Signer
	tokens  *TokenCodec
	retry   RetryPolicy
	fetch   *http.Client
	command *http.Client
	metrics Metrics
	logger  logging.Logger
	clock   func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

// WithHTTPClient replaces both outbound clients (document fetches and
// command requests).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.fetch = c
		s.command = c
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo assets.Repository, store storage.Backend, locker Locker, cfg *config.Config, logger logging.Logger, opts ...Option) *Service {
	s := &Service{
		assets: repo,
		store:  store,
		locker: locker,
		cfg:    cfg,
		signer: NewSigner(cfg.SignatureSecret),
		tokens: NewTokenCodec(cfg.EditorJWTEnabled, cfg.EditorJWTSecret, cfg.EditorJWTHeader),
		retry: RetryPolicy{
			Attempts:  cfg.SaveAttempts,
			BaseDelay: cfg.RetryBaseDelay,
			MaxDelay:  cfg.RetryMaxDelay,
		},
		fetch:   netx.NewClient(cfg.FetchConnectTimeout, cfg.FetchReadTimeout),
		command: netx.NewClient(cfg.FetchConnectTimeout, commandReadTimeout),
		metrics: noopMetrics{},
		logger:  logger.With("module", "gateway"),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signer exposes the capability signer, mostly for tests and tooling.
func (s *Service) Signer() *Signer { return s.signer }

// Tokens exposes the editor token codec.
func (s *Service) Tokens() *TokenCodec { return s.tokens }

// now is truncated to microseconds so timestamps survive a round trip
// through PostgreSQL unchanged and DocKey stays stable.
func (s *Service) now() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// detached returns a context that outlives ctx's cancellation, for the
// writes that record an outcome after the work itself is done.
func (s *Service) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
}

func (s *Service) documentServerURL() string {
	return strings.TrimRight(s.cfg.DocumentServerURL, "/")
}

// checkInboundToken applies the optional editor token. A missing or
// undecodable token is tolerated unless the config requires one.
func (s *Service) checkInboundToken(header string) (map[string]any, error) {
	claims, ok := s.tokens.Decode(header)
	if !ok && s.cfg.RequireInboundToken {
		return nil, fmt.Errorf("%w: editor token required", common.ErrInvalidToken)
	}
	return claims, nil
}

// OpenSession builds the editor config for the asset and records the
// open in its gateway state.
func (s *Service) OpenSession(ctx context.Context, scope models.AssetScope, user EditorUser, baseURL string) (*Session, error) {
	var session *Session
	err := s.locker.WithLock(ctx, assetLockKey(scope.AssetID), func(ctx context.Context) error {
		asset, err := s.assets.Get(ctx, scope)
		if err != nil {
			return err
		}

		docKey := DocKey(asset)
		cfg, err := s.signer.buildSessionConfig(asset, sessionInput{
			BaseURL: baseURL,
			Scope:   scope,
			DocKey:  docKey,
			User:    user,
			Lang:    s.cfg.EditorLang,
		})
		if err != nil {
			return err
		}

		if s.tokens.Enabled() {
			token, err := s.tokens.SignConfig(cfg)
			if err != nil {
				return fmt.Errorf("sign session config: %w", err)
			}
			cfg.Token = token
		}

		now := s.now()
		asset.Attributes.Gateway.Merge(models.StatePatch{OpenedAt: &now, DocKey: &docKey})
		if err := s.assets.UpdateAttributes(ctx, asset); err != nil {
			return err
		}

		session = &Session{DocumentServerURL: s.documentServerURL(), Config: cfg}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "editor session opened", "asset_id", scope.AssetID, "user_id", user.ID)
	return session, nil
}

// StatusReport is the answer to a status request.
type StatusReport struct {
	Gateway       models.GatewayState `json:"onlyoffice"`
	VersionsCount int                 `json:"versions_count"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (s *Service) Status(ctx context.Context, scope models.AssetScope) (*StatusReport, error) {
	asset, err := s.assets.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	return &StatusReport{
		Gateway:       asset.Attributes.Gateway,
		VersionsCount: len(asset.Attributes.Versions),
		UpdatedAt:     asset.UpdatedAt,
	}, nil
}

// Versions returns the recorded history, most recent first.
func (s *Service) Versions(ctx context.Context, scope models.AssetScope) ([]models.VersionRecord, error) {
	asset, err := s.assets.Get(ctx, scope)
	if err != nil {
		return nil, err
	}
	if asset.Attributes.Versions == nil {
		return []models.VersionRecord{}, nil
	}
	return asset.Attributes.Versions, nil
}

// Download is the canonical content served to the document server. Either
// Body or RedirectURL is set.
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	Filename      string
	RedirectURL   string
}

// OpenDownload verifies the download capability and opens the canonical
// object. The caller must close Body.
func (s *Service) OpenDownload(ctx context.Context, scope models.AssetScope, capability Capability, tokenHeader string) (*Download, error) {
	if err := s.signer.Verify(PurposeDownload, scope.AssetID, capability.Key, capability.Sig); err != nil {
		return nil, err
	}
	if _, err := s.checkInboundToken(tokenHeader); err != nil {
		return nil, err
	}

	asset, err := s.assets.Get(ctx, scope)
	if err != nil {
		return nil, err
	}

	filename := asset.Attributes.Name
	if filename == "" {
		filename = "file"
	}

	if s.cfg.DownloadRedirect {
		u, err := s.store.PresignGet(ctx, asset.StorageKey, s.cfg.PresignTTL)
		if err != nil {
			return nil, err
		}
		return &Download{RedirectURL: u, Filename: filename}, nil
	}

	obj, err := s.store.Get(ctx, asset.StorageKey)
	if err != nil {
		return nil, err
	}

	contentType := obj.Info.ContentType
	if contentType == "" {
		contentType = asset.Attributes.Type
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	length := obj.Info.Size
	if length <= 0 {
		length = asset.Size
	}

	return &Download{
		Body:          obj.Body,
		ContentType:   contentType,
		ContentLength: length,
		Filename:      filename,
	}, nil
}
