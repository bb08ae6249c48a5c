package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const restoreSnapshotLabel = "restore_snapshot"

// VersionStatus is the editor status code that produced a version, or a
// label for versions the gateway created itself.
type VersionStatus struct {
	Code  int
	Label string
}

// StatusRestoreSnapshot marks the snapshot taken right before a restore.
var StatusRestoreSnapshot = VersionStatus{Label: restoreSnapshotLabel}

// SavedStatus wraps an editor status code.
func SavedStatus(code int) VersionStatus {
	return VersionStatus{Code: code}
}

func (s VersionStatus) MarshalJSON() ([]byte, error) {
	if s.Label != "" {
		return json.Marshal(s.Label)
	}
	return json.Marshal(s.Code)
}

func (s *VersionStatus) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*s = VersionStatus{Code: int(value)}
	case string:
		*s = VersionStatus{Label: value}
	case nil:
		*s = VersionStatus{}
	default:
		return errors.New("invalid version status")
	}
	return nil
}

// Actors is the list of user ids credited with a version. It decodes a
// single string, a list, or null.
type Actors []string

func (a Actors) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

func (a *Actors) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case nil:
		*a = nil
	case string:
		*a = Actors{value}
	case []any:
		out := make(Actors, 0, len(value))
		for _, item := range value {
			switch x := item.(type) {
			case string:
				out = append(out, x)
			case nil:
			default:
				out = append(out, fmt.Sprint(x))
			}
		}
		*a = out
	default:
		return errors.New("invalid actors")
	}
	return nil
}

// VersionRecord describes one snapshot in the asset's version history.
type VersionRecord struct {
	ID           string        `json:"id"`
	Key          string        `json:"key"`
	SavedAt      time.Time     `json:"saved_at"`
	By           Actors        `json:"by"`
	DocKey       string        `json:"doc_key"`
	Status       VersionStatus `json:"status"`
	RestoredFrom string        `json:"restored_from,omitempty"`
}
