// Package assets provides the PostgreSQL-backed asset repository.
package assets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/dbx"
	"github.com/dmitrijs2005/docgate/internal/server/models"
	"github.com/google/uuid"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the uploaded, non-deleted filestore asset matching scope.
// Malformed ids and missing rows both yield common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, scope models.AssetScope) (*models.Asset, error) {
	if _, err := uuid.Parse(scope.AssetID); err != nil {
		return nil, common.ErrorNotFound
	}
	if _, err := uuid.Parse(scope.ProjectID); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `SELECT a.id, a.workspace_id, a.project_id, a.storage_key, a.size,
			a.storage_metadata, a.attributes, a.is_uploaded, a.is_deleted, a.updated_at
		FROM file_assets a
		JOIN workspaces w ON w.id = a.workspace_id
		WHERE a.id = $1 AND w.slug = $2 AND a.project_id = $3 AND a.entity_type = $4
			AND a.is_uploaded AND NOT a.is_deleted`

	var (
		asset    models.Asset
		metadata []byte
		attrs    []byte
	)
	err := r.db.QueryRowContext(ctx, query, scope.AssetID, scope.WorkspaceSlug, scope.ProjectID, common.FilestoreEntityType).
		Scan(&asset.ID, &asset.WorkspaceID, &asset.ProjectID, &asset.StorageKey, &asset.Size,
			&metadata, &attrs, &asset.IsUploaded, &asset.IsDeleted, &asset.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select asset: %w", err)
	}

	if len(metadata) > 0 && string(metadata) != "null" {
		asset.StorageMetadata = &models.StorageMetadata{}
		if err := json.Unmarshal(metadata, asset.StorageMetadata); err != nil {
			return nil, fmt.Errorf("failed to decode storage metadata: %w", err)
		}
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &asset.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}

	return &asset, nil
}

func (r *PostgresRepository) UpdateAttributes(ctx context.Context, asset *models.Asset) error {
	attrs, err := json.Marshal(asset.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	query := `UPDATE file_assets SET attributes = $2 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, asset.ID, string(attrs))
	if err != nil {
		return fmt.Errorf("failed to update attributes: %w", err)
	}
	return expectOneRow(result)
}

func (r *PostgresRepository) UpdateContent(ctx context.Context, asset *models.Asset) error {
	attrs, err := json.Marshal(asset.Attributes)
	if err != nil {
		return fmt.Errorf("failed to encode attributes: %w", err)
	}

	var metadata any
	if asset.StorageMetadata != nil {
		b, err := json.Marshal(asset.StorageMetadata)
		if err != nil {
			return fmt.Errorf("failed to encode storage metadata: %w", err)
		}
		metadata = string(b)
	}

	query := `UPDATE file_assets
		SET attributes = $2, size = $3, storage_metadata = $4, updated_at = $5
		WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, asset.ID, string(attrs), asset.Size, metadata, asset.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update asset content: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
