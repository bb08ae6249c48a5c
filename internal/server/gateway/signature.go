package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/docgate/internal/common"
)

// Purpose scopes a capability signature to one endpoint.
type Purpose string

const (
	PurposeDownload Purpose = "download"
	PurposeCallback Purpose = "callback"
)

// Signer issues and checks the HMAC capability signatures embedded in the
// download and callback URLs handed to the document server.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns hex(HMAC-SHA256(secret, "purpose:assetID:docKey")).
func (s *Signer) Sign(purpose Purpose, assetID, docKey string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(string(purpose) + ":" + assetID + ":" + docKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks sig against the expected signature in constant time.
func (s *Signer) Verify(purpose Purpose, assetID, docKey, sig string) error {
	if docKey == "" || sig == "" {
		return common.ErrMissingParameter
	}
	expected := s.Sign(purpose, assetID, docKey)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return common.ErrSignatureInvalid
	}
	return nil
}

// Capability is the key/sig pair carried in a capability URL query.
type Capability struct {
	Key string
	Sig string
}

// ParseCapability cleans raw query values. Document servers sometimes
// append ";"-separated parameters, so everything from the first ";" on
// is dropped.
func ParseCapability(key, sig string) Capability {
	return Capability{Key: cutParams(key), Sig: cutParams(sig)}
}

func cutParams(v string) string {
	v, _, _ = strings.Cut(v, ";")
	return v
}
