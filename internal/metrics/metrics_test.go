package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New("test")

	r.ObserveAnalysis(ResultDetected, 200*time.Millisecond, 2)
	r.ObserveAnalysis(ResultClean, 100*time.Millisecond, 0)
	r.CacheHit()
	r.CacheMiss()
	r.CacheMiss()
	r.ProviderError(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.AnalysesTotal.WithLabelValues(ResultDetected)))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.ZonesDetected))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ProviderErrors.WithLabelValues("true")))
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder
	r.ObserveAnalysis(ResultError, time.Second, 0)
	r.CacheHit()
	r.InFlight(1)
	r.ObserveHTTP("/health", "200", time.Millisecond)
	r.WatchCacheEntries(func() int { return 1 })
}

func TestRecorder_WatchCacheEntries(t *testing.T) {
	r := New("test")
	entries := 3
	r.WatchCacheEntries(func() int { return entries })

	scrape := func() string {
		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		return rec.Body.String()
	}
	assert.Contains(t, scrape(), "test_cache_entries 3")

	entries = 7
	assert.Contains(t, scrape(), "test_cache_entries 7")
}

func TestRecorder_Handler(t *testing.T) {
	r := New("")
	r.CacheHit()

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `vdflow_cache_lookups_total{outcome="hit"} 1`))
}
