package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":    "www.example:9000",
		"database_dsn":          "postgres://db",
		"secret_key":            "my_secret_key",
		"signature_secret":      "hmac",
		"s3_bucket":             "bucket",
		"document_server_url":   "http://ds",
		"editor_jwt_enabled":    false,
		"fetch_read_timeout":    "30s",
		"retry_max_delay":       int64(2 * time.Second),
		"save_attempts":         4,
		"require_inbound_token": true,
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "hmac", cfg.SignatureSecret)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "http://ds", cfg.DocumentServerURL)
		assert.False(t, cfg.EditorJWTEnabled)
		assert.Equal(t, 30*time.Second, cfg.FetchReadTimeout)
		assert.Equal(t, 2*time.Second, cfg.RetryMaxDelay)
		assert.Equal(t, 4, cfg.SaveAttempts)
		assert.True(t, cfg.RequireInboundToken)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "us-east-1", cfg.S3Region)
		assert.Equal(t, "AuthorizationJwt", cfg.EditorJWTHeader)
		assert.Equal(t, 5*time.Second, cfg.FetchConnectTimeout)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrHTTP: "defaults:1234",
			DatabaseDSN:      "vault.db",
			SecretKey:        "key",
			S3Bucket:         "s3bucket",
			RetryBaseDelay:   time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
		assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(dir, "nope.json")}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
