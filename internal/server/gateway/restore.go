package gateway

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// Restore makes a recorded snapshot the canonical content again. The
// current content is snapshotted first, so a restore can itself be undone.
func (s *Service) Restore(ctx context.Context, scope models.AssetScope, userID, versionKey string) error {
	if versionKey == "" {
		return fmt.Errorf("%w: version_key", common.ErrMissingParameter)
	}

	return s.locker.WithLock(ctx, assetLockKey(scope.AssetID), func(ctx context.Context) error {
		asset, err := s.assets.Get(ctx, scope)
		if err != nil {
			return err
		}
		if err := ValidateVersionKey(asset, versionKey); err != nil {
			return err
		}

		log := s.logger.With("asset_id", asset.ID, "version_key", versionKey)

		snapshotKey, err := s.swapContent(ctx, asset, versionKey)
		if err != nil {
			log.Error(ctx, "restore failed", "error", err)
			msg := "restore failed: " + err.Error()
			asset.Attributes.Gateway.Merge(models.StatePatch{Error: &msg})
			wctx, cancel := s.detached(ctx)
			defer cancel()
			if uerr := s.assets.UpdateAttributes(wctx, asset); uerr != nil {
				log.Error(ctx, "failed to record restore error", "error", uerr)
			}
			s.metrics.ObserveRestore(OutcomeFailed)
			return fmt.Errorf("%w: %v", common.ErrStorageWriteFailed, err)
		}

		wctx, cancel := s.detached(ctx)
		defer cancel()

		now := s.now()
		s.refreshContent(wctx, asset, nil, now)
		asset.Attributes.Gateway.Merge(models.StatePatch{RestoredAt: &now, ClearError: true})
		asset.Attributes.Versions = PrependVersion(asset.Attributes.Versions, models.VersionRecord{
			ID:           VersionID(snapshotKey),
			Key:          snapshotKey,
			SavedAt:      now,
			By:           models.Actors{userID},
			DocKey:       DocKey(asset),
			Status:       models.StatusRestoreSnapshot,
			RestoredFrom: versionKey,
		})

		if err := s.assets.UpdateContent(wctx, asset); err != nil {
			s.metrics.ObserveRestore(OutcomeFailed)
			return err
		}

		log.Info(wctx, "version restored", "snapshot_key", snapshotKey, "user_id", userID)
		s.metrics.ObserveRestore(OutcomeOK)
		return nil
	})
}

// swapContent snapshots the canonical object and copies versionKey over it.
func (s *Service) swapContent(ctx context.Context, asset *models.Asset, versionKey string) (string, error) {
	snapshotKey := VersionKey(asset, s.now())
	if err := s.store.Copy(ctx, asset.StorageKey, snapshotKey); err != nil {
		return "", fmt.Errorf("snapshot current content: %w", err)
	}
	if err := s.store.Copy(ctx, versionKey, asset.StorageKey); err != nil {
		return "", fmt.Errorf("copy version: %w", err)
	}
	return snapshotKey, nil
}
