package gateway

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// BaseURL returns the externally reachable base of the gateway without a
// trailing slash. A configured override wins; otherwise the base is taken
// from the request, honouring X-Forwarded-Proto and X-Forwarded-Host.
func BaseURL(override string, r *http.Request) string {
	if override != "" {
		return strings.TrimRight(override, "/")
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := firstHeaderValue(r.Header.Get("X-Forwarded-Proto")); p != "" {
		scheme = p
	}

	host := r.Host
	if h := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); h != "" {
		host = h
	}

	return scheme + "://" + host
}

func firstHeaderValue(v string) string {
	v, _, _ = strings.Cut(v, ",")
	return strings.TrimSpace(v)
}

// AssetPath is the route prefix of every gateway endpoint for scope.
func AssetPath(scope models.AssetScope) string {
	return "/api/workspaces/" + url.PathEscape(scope.WorkspaceSlug) +
		"/projects/" + url.PathEscape(scope.ProjectID) +
		"/filestore/assets/" + url.PathEscape(scope.AssetID) +
		"/onlyoffice/"
}

// CapabilityURL builds the signed download or callback URL for docKey.
func (s *Signer) CapabilityURL(base string, scope models.AssetScope, purpose Purpose, docKey string) string {
	q := url.Values{}
	q.Set("key", docKey)
	q.Set("sig", s.Sign(purpose, scope.AssetID, docKey))
	return base + AssetPath(scope) + string(purpose) + "/?" + q.Encode()
}
