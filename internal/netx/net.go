// Package netx wraps the outbound HTTP calls the gateway makes to the
// document server: fetching edited files and posting commands.
package netx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// ErrTooLarge is returned by Fetch when the body exceeds the given limit.
var ErrTooLarge = errors.New("response body too large")

// NewClient returns a client whose dial is bounded by connectTimeout and
// whose wait for response headers is bounded by readTimeout. The overall
// lifetime of a request is left to the caller's context.
func NewClient(connectTimeout, readTimeout time.Duration) *http.Client {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return &http.Client{Timeout: connectTimeout + readTimeout}
	}
	tr := base.Clone()
	tr.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = connectTimeout
	tr.ResponseHeaderTimeout = readTimeout
	return &http.Client{Transport: tr}
}

// Download is a fully read response body.
type Download struct {
	Body        []byte
	ContentType string
}

// Fetch GETs url and reads at most limit bytes of body. Non-2xx answers
// are errors. A limit <= 0 disables the size check.
func Fetch(ctx context.Context, client *http.Client, url string, limit int64) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch failed: %s; body: %s", resp.Status, string(b))
	}

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if limit > 0 && int64(len(body)) > limit {
		return nil, ErrTooLarge
	}

	return &Download{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// Response is the raw answer to PostJSON.
type Response struct {
	StatusCode int
	Body       []byte
}

// PostJSON encodes payload as JSON and POSTs it with the extra headers.
// Any HTTP status is returned to the caller; only transport failures are
// errors.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) (*Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
