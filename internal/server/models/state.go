package models

import "time"

// GatewayState is the per-asset bookkeeping the gateway keeps under the
// "onlyoffice" attribute.
type GatewayState struct {
	LastOpenedAt             *time.Time `json:"last_opened_at,omitempty"`
	LastDocKey               *string    `json:"last_doc_key,omitempty"`
	LastCallbackAt           *time.Time `json:"last_callback_at,omitempty"`
	LastCallbackStatus       *int       `json:"last_callback_status,omitempty"`
	LastSavedAt              *time.Time `json:"last_saved_at,omitempty"`
	LastRestoredAt           *time.Time `json:"last_restored_at,omitempty"`
	LastError                *string    `json:"last_error"`
	LastForcesaveRequestedAt *time.Time `json:"last_forcesave_requested_at,omitempty"`
	LastForcesaveDocKey      *string    `json:"last_forcesave_doc_key,omitempty"`
}

// StatePatch lists the GatewayState fields to overwrite. Nil fields are
// left untouched. ClearError resets LastError to null and wins over Error.
type StatePatch struct {
	OpenedAt             *time.Time
	DocKey               *string
	CallbackAt           *time.Time
	CallbackStatus       *int
	SavedAt              *time.Time
	RestoredAt           *time.Time
	Error                *string
	ClearError           bool
	ForcesaveRequestedAt *time.Time
	ForcesaveDocKey      *string
}

// Merge applies p to s field by field.
func (s *GatewayState) Merge(p StatePatch) {
	if p.OpenedAt != nil {
		s.LastOpenedAt = p.OpenedAt
	}
	if p.DocKey != nil {
		s.LastDocKey = p.DocKey
	}
	if p.CallbackAt != nil {
		s.LastCallbackAt = p.CallbackAt
	}
	if p.CallbackStatus != nil {
		s.LastCallbackStatus = p.CallbackStatus
	}
	if p.SavedAt != nil {
		s.LastSavedAt = p.SavedAt
	}
	if p.RestoredAt != nil {
		s.LastRestoredAt = p.RestoredAt
	}
	if p.Error != nil {
		s.LastError = p.Error
	}
	if p.ClearError {
		s.LastError = nil
	}
	if p.ForcesaveRequestedAt != nil {
		s.LastForcesaveRequestedAt = p.ForcesaveRequestedAt
	}
	if p.ForcesaveDocKey != nil {
		s.LastForcesaveDocKey = p.ForcesaveDocKey
	}
}

// Ptr returns a pointer to v. It keeps patch literals short.
func Ptr[T any](v T) *T {
	return &v
}
