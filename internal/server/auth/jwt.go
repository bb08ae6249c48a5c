// Package auth verifies the host's bearer tokens and decides whether a
// principal may use a gateway operation.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the authenticated host user.
type Principal struct {
	UserID string
	Name   string
	Role   string
	// Workspaces limits the principal to these workspace slugs. Empty
	// means no restriction.
	Workspaces []string
}

// Claims is the host token payload: registered claims plus the principal.
type Claims struct {
	jwt.RegisteredClaims
	UserID     string   `json:"user_id"`
	Name       string   `json:"name,omitempty"`
	Role       string   `json:"role,omitempty"`
	Workspaces []string `json:"workspaces,omitempty"`
}

func GenerateToken(p Principal, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:     p.UserID,
		Name:       p.Name,
		Role:       p.Role,
		Workspaces: p.Workspaces,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates tokenString (HS256 only) and returns its principal.
// Expired tokens yield common.ErrTokenExpired, everything else that fails
// validation yields common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Principal, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}

	return &Principal{
		UserID:     claims.UserID,
		Name:       claims.Name,
		Role:       claims.Role,
		Workspaces: claims.Workspaces,
	}, nil
}
