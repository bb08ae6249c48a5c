package netx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	client := NewClient(time.Second, time.Second)

	t.Run("success", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
			_, _ = w.Write([]byte("edited bytes"))
		}))
		defer ts.Close()

		d, err := Fetch(context.Background(), client, ts.URL+"/cache/files/abc/output.docx", 0)
		require.NoError(t, err)
		assert.Equal(t, "edited bytes", string(d.Body))
		assert.Contains(t, d.ContentType, "wordprocessingml")
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("gone"))
		}))
		defer ts.Close()

		_, err := Fetch(context.Background(), client, ts.URL, 0)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "404"), err.Error())
		assert.Contains(t, err.Error(), "gone")
	})

	t.Run("limit exceeded", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 64)))
		}))
		defer ts.Close()

		_, err := Fetch(context.Background(), client, ts.URL, 10)
		assert.True(t, errors.Is(err, ErrTooLarge), "got %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Fetch(ctx, client, "http://127.0.0.1:1/never", 0)
		require.Error(t, err)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := Fetch(context.Background(), client, "://bad", 0)
		require.Error(t, err)
	})
}

func TestPostJSON(t *testing.T) {
	client := NewClient(time.Second, time.Second)

	var gotBody map[string]any
	var gotCT, gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("AuthorizationJwt")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"error":0,"key":"k1"}`))
	}))
	defer ts.Close()

	resp, err := PostJSON(context.Background(), client, ts.URL, map[string]string{"c": "forcesave", "key": "k1"},
		map[string]string{"AuthorizationJwt": "Bearer t"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"error":0,"key":"k1"}`, string(resp.Body))
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "Bearer t", gotAuth)
	assert.Equal(t, "forcesave", gotBody["c"])

	_, err = PostJSON(context.Background(), client, "http://127.0.0.1:1/none", map[string]string{}, nil)
	require.Error(t, err)
}
