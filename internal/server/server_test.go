package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
)

type mockAnalyzer struct {
	result     *analytics.AnalysisResult
	err        error
	gotTicker  string
	gotExps    []string
	resetCount int
	resetFor   string
}

func (m *mockAnalyzer) Analyze(_ context.Context, ticker string, exps []string) (*analytics.AnalysisResult, error) {
	m.gotTicker = ticker
	m.gotExps = exps
	return m.result, m.err
}

func (m *mockAnalyzer) Expirations(_ context.Context, ticker string) ([]string, error) {
	m.gotTicker = ticker
	if m.err != nil {
		return nil, m.err
	}
	return []string{"2025-01-17", "2025-01-24"}, nil
}

func (m *mockAnalyzer) ResetCache(_ context.Context, ticker string) (int, error) {
	m.resetFor = ticker
	return m.resetCount, m.err
}

func newTestRouter(a *mockAnalyzer) http.Handler {
	cfg := &config.ServerConfig{ProviderMode: "file", DataDate: "2025-01-17"}
	srv := NewServer(a, []string{"SPX", "SPY"}, cfg, zap.NewNop())
	return NewRouter(srv, Routes{
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("metrics"))
		}),
	}, zap.NewNop())
}

func sampleResult() *analytics.AnalysisResult {
	spot := 5002.0
	return &analytics.AnalysisResult{
		Ticker:    "^SPX",
		Snapshot:  analytics.ChainSnapshot{Ticker: "^SPX", Rows: []analytics.StrikeRow{{Strike: 5000}}, Spot: &spot},
		Regime:    analytics.RegimeBearish,
		GammaFlip: &analytics.GammaFlipZone{Strike: 4995, Direction: analytics.PositiveToNegative},
	}
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestRouter(&mockAnalyzer{}), http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	decode(t, rec, &body)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "file", body.ProviderMode)
	assert.Equal(t, "2025-01-17", body.DataDate)
}

func TestTickers(t *testing.T) {
	rec := do(t, newTestRouter(&mockAnalyzer{}), http.MethodGet, "/api/v1/tickers")

	var body tickersResponse
	decode(t, rec, &body)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "SPX", body.Tickers[0].Symbol)
	assert.Equal(t, "^SPX", body.Tickers[0].Provider)
}

func TestAnalysis(t *testing.T) {
	a := &mockAnalyzer{result: sampleResult()}
	rec := do(t, newTestRouter(a), http.MethodGet, "/api/v1/analysis/SPX?expirations=2025-01-17,2025-01-24&expirations=2025-01-31")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SPX", a.gotTicker)
	assert.Equal(t, []string{"2025-01-17", "2025-01-24", "2025-01-31"}, a.gotExps)

	var got analytics.AnalysisResult
	decode(t, rec, &got)
	require.NotNil(t, got.GammaFlip)
	assert.Equal(t, 4995.0, got.GammaFlip.Strike)
	assert.Equal(t, analytics.RegimeBearish, got.Regime)
}

func TestAnalysis_NoExpirationsUsesDefault(t *testing.T) {
	a := &mockAnalyzer{result: sampleResult()}
	do(t, newTestRouter(a), http.MethodGet, "/api/v1/analysis/SPY")
	assert.Nil(t, a.gotExps)
}

func TestAnalysis_EmptyChainIsNotAnError(t *testing.T) {
	empty := &analytics.AnalysisResult{
		Ticker:       "^SPX",
		Snapshot:     analytics.ChainSnapshot{Ticker: "^SPX"},
		ScoredLevels: []analytics.ScoredLevel{},
		Regime:       analytics.RegimeNeutral,
	}
	h := newTestRouter(&mockAnalyzer{result: empty})

	rec := do(t, h, http.MethodGet, "/api/v1/analysis/SPX")
	require.Equal(t, http.StatusOK, rec.Code)

	var got analytics.AnalysisResult
	decode(t, rec, &got)
	assert.Empty(t, got.ScoredLevels)
	assert.Nil(t, got.GammaFlip)
	assert.Equal(t, analytics.RegimeNeutral, got.Regime)

	rec = do(t, h, http.MethodGet, "/api/v1/forecast/SPX")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No option data available.")
}

func TestAnalysis_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad expiration", fmt.Errorf("%w: %q", analyzer.ErrInvalidExpiration, "soon"), http.StatusBadRequest},
		{"unknown ticker", fmt.Errorf("%w: NOPE", analyzer.ErrUnknownTicker), http.StatusNotFound},
		{"no expirations", analyzer.ErrNoExpirations, http.StatusNotFound},
		{"malformed", &analytics.RowValidationError{Rows: []analytics.InvalidRow{{Reason: "negative strike"}}}, http.StatusUnprocessableEntity},
		{"timeout", fmt.Errorf("fetching quote: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"upstream", errors.New("connection refused"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestRouter(&mockAnalyzer{err: tt.err}), http.MethodGet, "/api/v1/analysis/SPX")
			assert.Equal(t, tt.want, rec.Code)

			var body errorResponse
			decode(t, rec, &body)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestForecast(t *testing.T) {
	rec := do(t, newTestRouter(&mockAnalyzer{result: sampleResult()}), http.MethodGet, "/api/v1/forecast/SPX")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "Gamma flip: 4,995 (positive to negative)")
}

func TestExpirations(t *testing.T) {
	rec := do(t, newTestRouter(&mockAnalyzer{}), http.MethodGet, "/api/v1/expirations/spx")

	var body expirationsResponse
	decode(t, rec, &body)
	assert.Equal(t, "SPX", body.Ticker)
	assert.Len(t, body.Expirations, 2)
}

func TestResetCache(t *testing.T) {
	a := &mockAnalyzer{resetCount: 3}
	rec := do(t, newTestRouter(a), http.MethodPost, "/api/v1/cache/reset?ticker=SPX")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "SPX", a.resetFor)

	var body resetResponse
	decode(t, rec, &body)
	assert.Equal(t, 3, body.Count)
	assert.Equal(t, "Cached chains dropped for SPX", body.Message)
}

func TestMetricsAndCORS(t *testing.T) {
	h := newTestRouter(&mockAnalyzer{})

	rec := do(t, h, http.MethodGet, "/metrics")
	assert.Equal(t, "metrics", rec.Body.String())

	rec = do(t, h, http.MethodOptions, "/api/v1/tickers")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
