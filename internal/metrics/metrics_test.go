package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := New()

	m.ObserveRequest("/books", http.MethodGet, 200, 5*time.Millisecond)
	m.ObserveRequest("/books/{id}", http.MethodGet, 404, time.Millisecond)
	m.ObserveRequest("", http.MethodGet, 404, time.Millisecond)
	m.RateLimited()
	m.RatingWritten(true)
	m.RatingWritten(false)
	m.RatingWritten(false)

	snap, err := m.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, int64(3), snap.RequestsTotal)
	assert.Equal(t, int64(1), snap.RateLimitedTotal)
	assert.Equal(t, int64(3), snap.RatingWritesTotal)
	assert.GreaterOrEqual(t, snap.UptimeS, int64(0))

	assert.InDelta(t, 2, testutil.ToFloat64(m.ratingWrites.WithLabelValues("updated")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.requests.WithLabelValues("unmatched", "GET", "404")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("/tags", http.MethodGet, 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics/prometheus", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `goodbooks_http_requests_total{method="GET",route="/tags",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
