package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/netx"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/dmitrijs2005/docgate/internal/server/storage"
)

// Editor callback status codes.
const (
	StatusEditing        = 1
	StatusSaved          = 2
	StatusSaveError      = 3
	StatusClosed         = 4
	StatusForceSaved     = 6
	StatusForceSaveError = 7
)

// persists reports whether status carries a document to store.
func persists(status int) bool {
	return status == StatusSaved || status == StatusForceSaved
}

// CallbackRequest is the body the document server posts.
type CallbackRequest struct {
	Status int           `json:"status"`
	Key    string        `json:"key,omitempty"`
	URL    string        `json:"url,omitempty"`
	Users  models.Actors `json:"users,omitempty"`
	UserID string        `json:"userId,omitempty"`
}

func (r CallbackRequest) actors() models.Actors {
	if len(r.Users) > 0 {
		return r.Users
	}
	if r.UserID != "" {
		return models.Actors{r.UserID}
	}
	return nil
}

// Ack is the answer the document server expects: error 0 on success,
// 1 when it should retry later.
type Ack struct {
	Error   int    `json:"error"`
	Message string `json:"message,omitempty"`
}

var (
	ackOK     = Ack{Error: 0}
	ackFailed = Ack{Error: 1}
)

// CheckCallback verifies a callback liveness probe.
func (s *Service) CheckCallback(scope models.AssetScope, capability Capability) error {
	return s.signer.Verify(PurposeCallback, scope.AssetID, capability.Key, capability.Sig)
}

// HandleCallback runs one editor callback. Capability and token failures
// are returned as errors before anything is read or written. Everything
// that goes wrong while saving is recorded on the asset and reported
// through the Ack instead.
func (s *Service) HandleCallback(ctx context.Context, scope models.AssetScope, capability Capability, tokenHeader string, req CallbackRequest) (Ack, error) {
	if err := s.signer.Verify(PurposeCallback, scope.AssetID, capability.Key, capability.Sig); err != nil {
		return ackFailed, err
	}
	claims, err := s.checkInboundToken(tokenHeader)
	if err != nil {
		return ackFailed, err
	}
	if claims != nil {
		if err := checkCallbackClaims(claims, req.Status, req.Key); err != nil {
			return ackFailed, err
		}
	}

	s.metrics.ObserveCallback(req.Status)

	// The lock wait and the post-save bookkeeping get their own budget on
	// top of CallbackTimeout, which bounds only the save itself.
	if s.cfg.CallbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CallbackTimeout+bookkeepingTimeout)
		defer cancel()
	}

	ack := ackOK
	err = s.locker.WithLock(ctx, assetLockKey(scope.AssetID), func(ctx context.Context) error {
		if s.cfg.CallbackTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.CallbackTimeout)
			defer cancel()
		}

		asset, err := s.assets.Get(ctx, scope)
		if err != nil {
			return err
		}

		now := s.now()
		status := req.Status
		asset.Attributes.Gateway.Merge(models.StatePatch{CallbackAt: &now, CallbackStatus: &status})

		if !persists(req.Status) {
			return s.assets.UpdateAttributes(ctx, asset)
		}

		ack = s.persistEdit(ctx, asset, capability.Key, req)
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn(ctx, "callback timed out", "asset_id", scope.AssetID, "status", req.Status)
		return ackFailed, nil
	}
	if err != nil {
		return ackFailed, err
	}
	return ack, nil
}

// persistEdit snapshots the current content, fetches the edited document
// and stores it as the new canonical object.
func (s *Service) persistEdit(ctx context.Context, asset *models.Asset, docKey string, req CallbackRequest) Ack {
	started := time.Now()
	log := s.logger.With("asset_id", asset.ID, "status", req.Status)

	if req.URL == "" {
		msg := "missing url in callback"
		asset.Attributes.Gateway.Merge(models.StatePatch{Error: &msg})
		if err := s.assets.UpdateAttributes(ctx, asset); err != nil {
			log.Error(ctx, "failed to record callback error", "error", err)
		}
		s.metrics.ObserveSave(OutcomeMissingURL, 0, time.Since(started))
		return ackFailed
	}

	// The snapshot is best effort; the save goes on without a version
	// record when it fails.
	var record *models.VersionRecord
	snapshotKey := VersionKey(asset, s.now())
	if err := s.store.Copy(ctx, asset.StorageKey, snapshotKey); err != nil {
		log.Warn(ctx, "version snapshot failed", "key", snapshotKey, "error", err)
		msg := "snapshot failed: " + err.Error()
		asset.Attributes.Gateway.Merge(models.StatePatch{Error: &msg})
	} else {
		record = &models.VersionRecord{
			ID:      VersionID(snapshotKey),
			Key:     snapshotKey,
			SavedAt: s.now(),
			By:      req.actors(),
			DocKey:  docKey,
			Status:  models.SavedStatus(req.Status),
		}
	}

	var attempts int
	put, err := retryValue(ctx, s.retry, func(ctx context.Context, attempt int) (*storage.ObjectInfo, error) {
		attempts = attempt
		obj, err := s.fetchAndStore(ctx, asset, req.URL)
		if err != nil {
			log.Warn(ctx, "save attempt failed", "attempt", attempt, "error", err)
		}
		return obj, err
	})
	if err != nil {
		log.Error(ctx, "save failed", "attempts", attempts, "error", err)
		msg := "save failed: " + err.Error()
		asset.Attributes.Gateway.Merge(models.StatePatch{Error: &msg})
		wctx, cancel := s.detached(ctx)
		defer cancel()
		if err := s.assets.UpdateAttributes(wctx, asset); err != nil {
			log.Error(ctx, "failed to record save error", "error", err)
		}
		s.metrics.ObserveSave(OutcomeFailed, attempts, time.Since(started))
		return ackFailed
	}

	// The object is already overwritten; finish bookkeeping even if the
	// callback deadline has passed.
	wctx, cancel := s.detached(ctx)
	defer cancel()

	now := s.now()
	s.refreshContent(wctx, asset, put, now)
	if record != nil {
		asset.Attributes.Versions = PrependVersion(asset.Attributes.Versions, *record)
	}
	asset.Attributes.Gateway.Merge(models.StatePatch{SavedAt: &now, ClearError: true})

	if err := s.assets.UpdateContent(wctx, asset); err != nil {
		log.Error(ctx, "failed to persist saved asset", "error", err)
		s.metrics.ObserveSave(OutcomeFailed, attempts, time.Since(started))
		return ackFailed
	}

	log.Info(wctx, "document saved", "attempts", attempts, "size", asset.Size)
	s.metrics.ObserveSave(OutcomeOK, attempts, time.Since(started))
	return ackOK
}

func (s *Service) fetchAndStore(ctx context.Context, asset *models.Asset, url string) (*storage.ObjectInfo, error) {
	doc, err := netx.Fetch(ctx, s.fetch, url, s.cfg.MaxDocumentSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUpstreamFetchFailed, err)
	}

	contentType := doc.ContentType
	if contentType == "" {
		contentType = asset.Attributes.Type
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	size := int64(len(doc.Body))
	put, err := s.store.Put(ctx, asset.StorageKey, bytes.NewReader(doc.Body), size, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageWriteFailed, err)
	}
	put.Size = size
	put.ContentType = contentType
	return put, nil
}

// refreshContent reloads the canonical object's metadata onto asset and
// bumps its update time. fallback is used when the head request fails.
func (s *Service) refreshContent(ctx context.Context, asset *models.Asset, fallback *storage.ObjectInfo, now time.Time) {
	info, err := s.store.Head(ctx, asset.StorageKey)
	if err != nil {
		s.logger.Warn(ctx, "head after write failed", "asset_id", asset.ID, "error", err)
		info = fallback
	}
	if info != nil {
		asset.StorageMetadata = info.Metadata()
		asset.Size = info.Size
		asset.Attributes.Size = info.Size
	}
	asset.UpdatedAt = now
}
