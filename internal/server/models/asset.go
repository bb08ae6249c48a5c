// Package models defines the server-side data models persisted in the database.
package models

import "time"

// AssetScope identifies an asset the way the host addresses it: by
// workspace slug, project and asset id. All three must match for a lookup
// to succeed.
type AssetScope struct {
	WorkspaceSlug string
	ProjectID     string
	AssetID       string
}

// StorageMetadata is the object-storage view of the canonical object,
// refreshed after every write to the canonical key.
type StorageMetadata struct {
	ETag          string     `json:"ETag,omitempty"`
	ContentLength int64      `json:"ContentLength,omitempty"`
	ContentType   string     `json:"ContentType,omitempty"`
	LastModified  *time.Time `json:"LastModified,omitempty"`
}

// Asset is a stored office document together with its gateway bookkeeping.
type Asset struct {
	ID          string
	WorkspaceID string
	ProjectID   string
	// StorageKey is the canonical object key holding the current content.
	StorageKey      string
	Size            int64
	StorageMetadata *StorageMetadata
	Attributes      Attributes
	IsUploaded      bool
	IsDeleted       bool
	UpdatedAt       time.Time
}

// ETag returns the stored object ETag, or "" when no metadata is known.
func (a *Asset) ETag() string {
	if a.StorageMetadata == nil {
		return ""
	}
	return a.StorageMetadata.ETag
}
