package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/docgate/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-u", "-p", "-b", "-g", "-e",
	"-log-level", "-hmac-secret", "-storage", "-path-style",
	"-download-redirect", "-presign-ttl",
	"-ds-url", "-api-base-url", "-lang",
	"-ds-jwt", "-ds-jwt-secret", "-ds-jwt-header", "-require-token",
	"-fetch-connect-timeout", "-fetch-read-timeout", "-callback-timeout",
	"-save-attempts", "-retry-base", "-retry-max", "-max-doc-size",
	"-lock",
}

// parseFlags populates Config fields from command-line flags.
//
// The short flags keep the historical meaning:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   host JWT secret
//	-u/-p       S3 user / password
//	-b/-g/-e    S3 bucket / region / endpoint
//
// The gateway flags are spelled out (-ds-url, -hmac-secret, ...). Only
// known flags are parsed; everything else in os.Args is ignored.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "host token secret key")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&config.SignatureSecret, "hmac-secret", config.SignatureSecret, "capability URL signing secret")
	fs.StringVar(&config.StorageDriver, "storage", config.StorageDriver, "object storage driver (s3, minio)")
	fs.BoolVar(&config.S3UsePathStyle, "path-style", config.S3UsePathStyle, "use path-style bucket addressing")
	fs.BoolVar(&config.DownloadRedirect, "download-redirect", config.DownloadRedirect, "redirect downloads to presigned URLs")
	fs.DurationVar(&config.PresignTTL, "presign-ttl", config.PresignTTL, "presigned URL lifetime")

	fs.StringVar(&config.DocumentServerURL, "ds-url", config.DocumentServerURL, "document server base URL")
	fs.StringVar(&config.APIBaseURL, "api-base-url", config.APIBaseURL, "externally reachable base URL of this gateway")
	fs.StringVar(&config.EditorLang, "lang", config.EditorLang, "editor UI language")

	fs.BoolVar(&config.EditorJWTEnabled, "ds-jwt", config.EditorJWTEnabled, "sign editor configs and commands")
	fs.StringVar(&config.EditorJWTSecret, "ds-jwt-secret", config.EditorJWTSecret, "secret shared with the document server")
	fs.StringVar(&config.EditorJWTHeader, "ds-jwt-header", config.EditorJWTHeader, "header carrying the document server token")
	fs.BoolVar(&config.RequireInboundToken, "require-token", config.RequireInboundToken, "reject callbacks without a valid token")

	fs.DurationVar(&config.FetchConnectTimeout, "fetch-connect-timeout", config.FetchConnectTimeout, "connect timeout when fetching edited files")
	fs.DurationVar(&config.FetchReadTimeout, "fetch-read-timeout", config.FetchReadTimeout, "read timeout when fetching edited files")
	fs.DurationVar(&config.CallbackTimeout, "callback-timeout", config.CallbackTimeout, "upper bound on handling one callback")
	fs.IntVar(&config.SaveAttempts, "save-attempts", config.SaveAttempts, "fetch-and-store attempts per save")
	fs.DurationVar(&config.RetryBaseDelay, "retry-base", config.RetryBaseDelay, "base delay for save retries")
	fs.DurationVar(&config.RetryMaxDelay, "retry-max", config.RetryMaxDelay, "max delay between save retries")
	fs.Int64Var(&config.MaxDocumentSize, "max-doc-size", config.MaxDocumentSize, "largest accepted edited document in bytes")

	fs.StringVar(&config.LockBackend, "lock", config.LockBackend, "per-asset lock backend (postgres, memory)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
