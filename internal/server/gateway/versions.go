package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// MaxVersions caps the per-asset version history. Older entries are
// dropped from the tail.
const MaxVersions = 50

// versionStamp has microsecond precision so that two snapshots taken in
// the same second get distinct keys.
const versionStamp = "20060102150405.000000"

// VersionPrefix is the storage namespace of an asset's snapshots.
func VersionPrefix(a *models.Asset) string {
	return workspaceSegment(a) + "/filestore_versions/" + a.ID + "/"
}

// VersionKey returns a fresh snapshot key for a taken at now.
func VersionKey(a *models.Asset, now time.Time) string {
	name := a.Attributes.Name
	if name == "" {
		name = "file"
	}
	return VersionPrefix(a) + now.UTC().Format(versionStamp) + "-" + name
}

func workspaceSegment(a *models.Asset) string {
	if a.WorkspaceID == "" {
		return "workspace"
	}
	return a.WorkspaceID
}

// VersionID is the short stable id of a snapshot key.
func VersionID(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}

// PrependVersion returns a new list with rec first, truncated to
// MaxVersions. list is not modified.
func PrependVersion(list []models.VersionRecord, rec models.VersionRecord) []models.VersionRecord {
	n := len(list) + 1
	if n > MaxVersions {
		n = MaxVersions
	}
	out := make([]models.VersionRecord, 0, n)
	out = append(out, rec)
	out = append(out, list[:n-1]...)
	return out
}

// ValidateVersionKey checks that key lives in the asset's snapshot
// namespace and is present in its recorded history.
func ValidateVersionKey(a *models.Asset, key string) error {
	if !strings.HasPrefix(key, VersionPrefix(a)) {
		return ErrVersionOutsideNamespace
	}
	for _, v := range a.Attributes.Versions {
		if v.Key == key {
			return nil
		}
	}
	return ErrVersionNotRecorded
}
