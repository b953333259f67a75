package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vdflow/internal/analyzer"
	"vdflow/internal/metrics"
	"vdflow/internal/provider"
	"vdflow/internal/scanner"
	"vdflow/internal/storage"
)

type fakeAnalyzer struct {
	snaps map[string]storage.Snapshot
	errs  map[string]error
	calls []bool // refresh flag per call
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, ticker string, refresh bool) (storage.Snapshot, error) {
	f.calls = append(f.calls, refresh)
	if err, ok := f.errs[ticker]; ok {
		return storage.Snapshot{}, err
	}
	snap, ok := f.snaps[ticker]
	if !ok {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	return snap, nil
}

func zone(start time.Time, c analyzer.Components) analyzer.AccumulationZone {
	z := analyzer.AccumulationZone{
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, 27),
		WindowDays: 20,
		WindowScore: analyzer.WindowScore{
			DurationMultiplier: 1.0,
			ConcordancePenalty: 1.0,
			OverallPriceChange: -4.04,
			Components:         c,
		},
	}
	z.Score = analyzer.Rescore(z, analyzer.DefaultWeights())
	z.RawScore = z.Score
	return z
}

func fixture() (*fakeAnalyzer, *storage.MemoryStore) {
	start := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	// divergence-heavy zone ranks first under reference weights
	a := zone(start, analyzer.Components{NetDelta: 0.2, Absorption: 0.2, Divergence: 0.9})
	b := zone(start.AddDate(0, 2, 0), analyzer.Components{NetDelta: 0.9, DeltaSlope: 0.9, Absorption: 0.3})

	result := analyzer.AnalysisResult{Ticker: "AAPL", Days: 84, Zones: []analyzer.AccumulationZone{a, b}}
	snap := storage.NewSnapshot(result, start.AddDate(0, 4, 0), time.Date(2025, 6, 4, 21, 0, 0, 0, time.UTC))

	st := storage.NewMemoryStore(0)
	_ = st.Save(context.Background(), snap)

	return &fakeAnalyzer{
		snaps: map[string]storage.Snapshot{"AAPL": snap},
		errs: map[string]error{
			"TINY": fmt.Errorf("TINY: %w", scanner.ErrNoData),
			"DOWN": &provider.ProviderError{Provider: "yahoo", Err: errors.New("503"), Retryable: true},
		},
	}, st
}

func newTestServer(secret string) (*Server, *fakeAnalyzer) {
	fa, st := fixture()
	srv := NewServer(fa, st, metrics.New("test"), zerolog.Nop(), Options{
		JWTSecret:    secret,
		RefreshLimit: 1,
		Precision:    analyzer.DefaultPrecision(),
	})
	return srv, fa
}

func do(t *testing.T, srv *Server, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer("")
	rec := do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAnalysis(t *testing.T) {
	srv, fa := newTestServer("")

	rec := do(t, srv, http.MethodGet, "/api/vdf/aapl", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap storage.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "AAPL", snap.Ticker)
	require.Len(t, snap.Result.Zones, 2)
	assert.Equal(t, -4.0, snap.Result.Zones[0].OverallPriceChange, "percentages round to one decimal")
	assert.Equal(t, []bool{false}, fa.calls)
}

func TestAnalysis_Markdown(t *testing.T) {
	srv, _ := newTestServer("")
	rec := do(t, srv, http.MethodGet, "/api/vdf/AAPL?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, rec.Body.String(), "# Volume-delta flow: AAPL")

	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysis_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer("")

	tests := []struct {
		ticker string
		status int
	}{
		{"TINY", http.StatusUnprocessableEntity},
		{"DOWN", http.StatusBadGateway},
		{"NONE", http.StatusNotFound},
		{"TOOLONGX", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			rec := do(t, srv, http.MethodGet, "/api/vdf/"+tt.ticker, "")
			if rec.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestAnalysis_RefreshThrottled(t *testing.T) {
	srv, fa := newTestServer("")

	rec := do(t, srv, http.MethodGet, "/api/vdf/AAPL?refresh=true", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL?refresh=true", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// cached reads are never throttled
	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []bool{true, false}, fa.calls)
}

func TestHistory(t *testing.T) {
	srv, _ := newTestServer("")

	rec := do(t, srv, http.MethodGet, "/api/vdf/AAPL/history?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)

	rec = do(t, srv, http.MethodGet, "/api/vdf/MSFT/history", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRescore(t *testing.T) {
	srv, _ := newTestServer("")

	// reference weights: divergence zone first
	rec := do(t, srv, http.MethodPost, "/api/vdf/AAPL/rescore", `{"weights":{}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RescoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Zones, 2)
	assert.Equal(t, analyzer.DefaultWeights(), resp.Weights)
	assert.Equal(t, 2025, resp.Zones[0].StartDate.Year())
	assert.Equal(t, time.February, resp.Zones[0].StartDate.Month())

	// dropping s8 and s6 flips the ranking
	rec = do(t, srv, http.MethodPost, "/api/vdf/AAPL/rescore", `{"weights":{"s6":0,"s8":0}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0.0, resp.Weights.S8)
	assert.Equal(t, 0.15, resp.Weights.S1)
	assert.Equal(t, time.April, resp.Zones[0].StartDate.Month())
	assert.GreaterOrEqual(t, resp.Zones[0].Score, resp.Zones[1].Score)
}

func TestRescore_Validation(t *testing.T) {
	srv, _ := newTestServer("")

	bodies := map[string]string{
		"above one": `{"weights":{"s1":1.5}}`,
		"negative":  `{"weights":{"s2":-0.1}}`,
		"all zero":  `{"weights":{"s1":0,"s2":0,"s3":0,"s4":0,"s5":0,"s6":0,"s7":0,"s8":0}}`,
		"not json":  `{"weights":`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/vdf/AAPL/rescore", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret"
	srv, _ := newTestServer(secret)

	sign := func(exp time.Time, key string, method jwt.SigningMethod) string {
		claims := jwt.MapClaims{"sub": "analyst"}
		if !exp.IsZero() {
			claims["exp"] = exp.Unix()
		}
		s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(key))
		require.NoError(t, err)
		return s
	}

	rec := do(t, srv, http.MethodGet, "/api/vdf/AAPL", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	valid := sign(time.Now().Add(time.Hour), secret, jwt.SigningMethodHS256)
	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL", "", "Authorization", "Bearer "+valid)
	assert.Equal(t, http.StatusOK, rec.Code)

	expired := sign(time.Now().Add(-time.Hour), secret, jwt.SigningMethodHS256)
	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL", "", "Authorization", "Bearer "+expired)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	noExp := sign(time.Time{}, secret, jwt.SigningMethodHS256)
	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL", "", "Authorization", "Bearer "+noExp)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrongKey := sign(time.Now().Add(time.Hour), "other", jwt.SigningMethodHS256)
	rec = do(t, srv, http.MethodGet, "/api/vdf/AAPL", "", "Authorization", "Bearer "+wrongKey)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// health stays open
	rec = do(t, srv, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer("")
	do(t, srv, http.MethodGet, "/api/health", "")

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_request_duration_seconds")
}
