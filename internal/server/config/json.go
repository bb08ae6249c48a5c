package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/docgate/internal/flagx"
	"github.com/dmitrijs2005/docgate/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Duration fields use
// timex.Duration so both "5s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP    string         `json:"endpoint_addr_http"`
	DatabaseDSN         string         `json:"database_dsn"`
	LogLevel            string         `json:"log_level"`
	SecretKey           string         `json:"secret_key"`
	SignatureSecret     string         `json:"signature_secret"`
	StorageDriver       string         `json:"storage_driver"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	S3UsePathStyle      bool           `json:"s3_use_path_style"`
	DownloadRedirect    bool           `json:"download_redirect"`
	PresignTTL          timex.Duration `json:"presign_ttl"`
	DocumentServerURL   string         `json:"document_server_url"`
	APIBaseURL          string         `json:"api_base_url"`
	EditorLang          string         `json:"editor_lang"`
	EditorJWTEnabled    bool           `json:"editor_jwt_enabled"`
	EditorJWTSecret     string         `json:"editor_jwt_secret"`
	EditorJWTHeader     string         `json:"editor_jwt_header"`
	RequireInboundToken bool           `json:"require_inbound_token"`
	FetchConnectTimeout timex.Duration `json:"fetch_connect_timeout"`
	FetchReadTimeout    timex.Duration `json:"fetch_read_timeout"`
	CallbackTimeout     timex.Duration `json:"callback_timeout"`
	SaveAttempts        int            `json:"save_attempts"`
	RetryBaseDelay      timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay       timex.Duration `json:"retry_max_delay"`
	MaxDocumentSize     int64          `json:"max_document_size"`
	LockBackend         string         `json:"lock_backend"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:    c.EndpointAddrHTTP,
		DatabaseDSN:         c.DatabaseDSN,
		LogLevel:            c.LogLevel,
		SecretKey:           c.SecretKey,
		SignatureSecret:     c.SignatureSecret,
		StorageDriver:       c.StorageDriver,
		S3RootUser:          c.S3RootUser,
		S3RootPassword:      c.S3RootPassword,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		S3UsePathStyle:      c.S3UsePathStyle,
		DownloadRedirect:    c.DownloadRedirect,
		PresignTTL:          timex.Duration{Duration: c.PresignTTL},
		DocumentServerURL:   c.DocumentServerURL,
		APIBaseURL:          c.APIBaseURL,
		EditorLang:          c.EditorLang,
		EditorJWTEnabled:    c.EditorJWTEnabled,
		EditorJWTSecret:     c.EditorJWTSecret,
		EditorJWTHeader:     c.EditorJWTHeader,
		RequireInboundToken: c.RequireInboundToken,
		FetchConnectTimeout: timex.Duration{Duration: c.FetchConnectTimeout},
		FetchReadTimeout:    timex.Duration{Duration: c.FetchReadTimeout},
		CallbackTimeout:     timex.Duration{Duration: c.CallbackTimeout},
		SaveAttempts:        c.SaveAttempts,
		RetryBaseDelay:      timex.Duration{Duration: c.RetryBaseDelay},
		RetryMaxDelay:       timex.Duration{Duration: c.RetryMaxDelay},
		MaxDocumentSize:     c.MaxDocumentSize,
		LockBackend:         c.LockBackend,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.DatabaseDSN = j.DatabaseDSN
	c.LogLevel = j.LogLevel
	c.SecretKey = j.SecretKey
	c.SignatureSecret = j.SignatureSecret
	c.StorageDriver = j.StorageDriver
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.S3UsePathStyle = j.S3UsePathStyle
	c.DownloadRedirect = j.DownloadRedirect
	c.PresignTTL = j.PresignTTL.Duration
	c.DocumentServerURL = j.DocumentServerURL
	c.APIBaseURL = j.APIBaseURL
	c.EditorLang = j.EditorLang
	c.EditorJWTEnabled = j.EditorJWTEnabled
	c.EditorJWTSecret = j.EditorJWTSecret
	c.EditorJWTHeader = j.EditorJWTHeader
	c.RequireInboundToken = j.RequireInboundToken
	c.FetchConnectTimeout = j.FetchConnectTimeout.Duration
	c.FetchReadTimeout = j.FetchReadTimeout.Duration
	c.CallbackTimeout = j.CallbackTimeout.Duration
	c.SaveAttempts = j.SaveAttempts
	c.RetryBaseDelay = j.RetryBaseDelay.Duration
	c.RetryMaxDelay = j.RetryMaxDelay.Duration
	c.MaxDocumentSize = j.MaxDocumentSize
	c.LockBackend = j.LockBackend
}

// parseJson overlays values from the JSON file named by -c / -config onto
// config. Keys missing from the file keep their current values. An
// unreadable file or invalid JSON panics, since the server cannot start
// with a half-applied configuration.
func parseJson(config *Config) {
	path := flagx.ConfigFile(os.Args[1:])
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	c.apply(config)
}
