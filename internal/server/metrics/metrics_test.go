package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/docgate/internal/server/gateway"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ gateway.Metrics = (*Collector)(nil)

func TestCollector_Counts(t *testing.T) {
	c := NewCollector()

	c.ObserveCallback(2)
	c.ObserveCallback(2)
	c.ObserveCallback(4)
	c.ObserveSave(gateway.OutcomeOK, 1, 200*time.Millisecond)
	c.ObserveSave(gateway.OutcomeFailed, 3, time.Second)
	c.ObserveSave(gateway.OutcomeMissingURL, 0, 0)
	c.ObserveRestore(gateway.OutcomeOK)
	c.ObserveForceSave(gateway.OutcomeFailed)
	c.ObserveRequest("GET", "", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.callbacks.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.callbacks.WithLabelValues("4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saves.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.saves.WithLabelValues("missing_url")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.restores.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.forcesaves.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.saveAttempts))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveRestore(gateway.OutcomeOK)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `docgate_restores_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
