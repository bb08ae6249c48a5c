package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenCodec signs what the gateway sends to the document server and
// decodes the tokens it sends back. Both sides share one HS256 secret.
type TokenCodec struct {
	enabled bool
	secret  []byte
	header  string
}

func NewTokenCodec(enabled bool, secret, header string) *TokenCodec {
	if header == "" {
		header = common.DefaultEditorJWTHeader
	}
	return &TokenCodec{enabled: enabled, secret: []byte(secret), header: header}
}

// Enabled reports whether outbound payloads are signed.
func (c *TokenCodec) Enabled() bool { return c.enabled }

// Header is the HTTP header that carries the token in both directions.
func (c *TokenCodec) Header() string { return c.header }

// SignConfig signs the JSON form of a session config.
func (c *TokenCodec) SignConfig(cfg *SessionConfig) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	var claims map[string]any
	if err := json.Unmarshal(b, &claims); err != nil {
		return "", err
	}
	return c.SignPayload(claims)
}

// SignPayload signs payload as a flat claim set.
func (c *TokenCodec) SignPayload(payload map[string]any) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims(payload)).SignedString(c.secret)
}

// Decode parses a header value, with or without a "Bearer " prefix. When
// the token wraps its claims in a "payload" object, that object is
// returned. ok is false for an empty header or a token that fails to
// verify.
func (c *TokenCodec) Decode(header string) (claims map[string]any, ok bool) {
	token := strings.TrimSpace(header)
	if token == "" {
		return nil, false
	}
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, false
	}

	mc, isMap := parsed.Claims.(jwt.MapClaims)
	if !isMap {
		return nil, false
	}
	if inner, isObj := mc["payload"].(map[string]any); isObj {
		return inner, true
	}
	return mc, true
}

// checkCallbackClaims compares the status and key a verified token
// carries with the callback body. Absent claims are not compared.
func checkCallbackClaims(claims map[string]any, status int, key string) error {
	if raw, ok := claims["status"]; ok && raw != nil {
		got, err := claimInt(raw)
		if err != nil || got != status {
			return fmt.Errorf("%w: jwt status mismatch", common.ErrTokenMismatch)
		}
	}
	if raw, ok := claims["key"]; ok && raw != nil && key != "" {
		got := fmt.Sprint(raw)
		if got != "" && got != key {
			return fmt.Errorf("%w: jwt key mismatch", common.ErrTokenMismatch)
		}
	}
	return nil
}

func claimInt(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case json.Number:
		n, err := x.Int64()
		return int(n), err
	case string:
		return strconv.Atoi(strings.TrimSpace(x))
	default:
		return 0, fmt.Errorf("unexpected claim type %T", v)
	}
}
