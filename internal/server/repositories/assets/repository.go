package assets

import (
	"context"

	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// Repository loads assets by scope and persists the fields the gateway
// owns. Implementations must not touch any other column.
type Repository interface {
	Get(ctx context.Context, scope models.AssetScope) (*models.Asset, error)
	// UpdateAttributes writes only the attributes document.
	UpdateAttributes(ctx context.Context, asset *models.Asset) error
	// UpdateContent writes attributes, size, storage_metadata and updated_at
	// after the canonical object changed.
	UpdateContent(ctx context.Context, asset *models.Asset) error
}
