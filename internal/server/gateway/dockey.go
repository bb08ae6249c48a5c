package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// DocKey fingerprints the asset's current content as
// hex(SHA256(id ":" etag ":" updatedAt)). It changes whenever the stored
// object or the row's update time changes.
func DocKey(a *models.Asset) string {
	updated := ""
	if !a.UpdatedAt.IsZero() {
		updated = a.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	sum := sha256.Sum256([]byte(a.ID + ":" + a.ETag() + ":" + updated))
	return hex.EncodeToString(sum[:])
}
