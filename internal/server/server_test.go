package server

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/commutesim/internal/cache"
	"github.com/rshade/commutesim/internal/engine"
	"github.com/rshade/commutesim/internal/factors"
	"github.com/rshade/commutesim/internal/logging"
	"github.com/rshade/commutesim/internal/metrics"
	"github.com/rshade/commutesim/internal/scenario"
)

const carScenario = `{
  "name": "car only",
  "population": 1000,
  "region": "uk",
  "distance_convention": "round_trip",
  "modes": {"car": {"share": 1, "distance": {"kind": "fixed", "value": 10}}}
}`

const emptyScenario = `{
  "population": 0,
  "region": "uk",
  "modes": {"car": {"share": 1, "distance": {"kind": "fixed", "value": 10}}}
}`

const carFactors = `{"name": "test", "factors": [{"category": "commute", "mode": "car", "value": 0.17}]}`

type fixture struct {
	handler  http.Handler
	metrics  *metrics.Metrics
	store    *cache.MemoryStore
	registry *prometheus.Registry
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	e, err := engine.New(engine.WithWorkers(2), engine.WithMetrics(m))
	require.NoError(t, err)
	table, err := factors.Default()
	require.NoError(t, err)
	store, err := cache.NewMemoryStore(16, 60)
	require.NoError(t, err)

	logs := &bytes.Buffer{}
	opts := Options{
		RateLimit:    0,
		Burst:        10,
		MaxBodyBytes: 64 << 10,
		Engine:       e,
		Table:        table,
		Store:        store,
		Metrics:      m,
		Gatherer:     reg,
		Logger:       zerolog.New(logs).Hook(logging.TraceHook{}),
		Version:      "test",
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := New(opts)
	require.NoError(t, err)
	return &fixture{handler: s.Handler(), metrics: m, store: store, registry: reg, logs: logs}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"scenario": ` + carScenario + `, "factors": ` + carFactors + `, "runs": 5, "seed": 42}`

	rec := f.do(t, http.MethodPost, "/v1/evaluate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "miss", rec.Header().Get(HeaderCache))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	var res engine.AggregateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 5, res.Runs)
	assert.Equal(t, uint64(42), res.Seed)
	assert.Equal(t, "test", res.FactorTable)
	assert.InDelta(t, 391_000.0, res.Total.Mean, 1e-6)
	assert.InDelta(t, 391.0, res.PerCapita.Mean, 1e-9)
	assert.Zero(t, res.Total.StdDev)

	again := f.do(t, http.MethodPost, "/v1/evaluate", body)
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, "hit", again.Header().Get(HeaderCache))
	assert.JSONEq(t, rec.Body.String(), again.Body.String())
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.CacheRequestsTotal.WithLabelValues("hit")), 0)
}

func TestEvaluate_DefaultRunsAndUnseeded(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/v1/evaluate", `{"scenario": `+carScenario+`, "factors": `+carFactors+`}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "miss", rec.Header().Get(HeaderCache))

	var res engine.AggregateResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, scenario.DefaultRuns, res.Runs)
	assert.Zero(t, f.store.Len(), "unseeded results are not cached")
}

func TestEvaluate_Errors(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxIndividuals = 1_000_000 })

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name: "shares do not sum to one",
			body: `{"scenario": {"population": 10, "region": "uk", "modes": {
				"car": {"share": 0.5, "distance": {"kind": "fixed", "value": 5}},
				"bus": {"share": 0.4, "distance": {"kind": "fixed", "value": 5}}}}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   metrics.OutcomeConfiguration,
		},
		{
			name:       "negative runs",
			body:       `{"scenario": ` + carScenario + `, "factors": ` + carFactors + `, "runs": -3}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   metrics.OutcomeInvalidRuns,
		},
		{
			name:       "missing factor",
			body:       `{"scenario": ` + carScenario + `, "factors": {"factors": [{"category": "commute", "mode": "bus", "value": 0.1}]}, "seed": 1}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   metrics.OutcomeMissingFactor,
		},
		{
			name:       "invalid inline factors",
			body:       `{"scenario": ` + carScenario + `, "factors": {"factors": []}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_factors",
		},
		{
			name:       "unknown field",
			body:       `{"scenario": ` + carScenario + `, "iterations": 5}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_json",
		},
		{
			name:       "malformed json",
			body:       `{"scenario": `,
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_json",
		},
		{
			name:       "runs above the maximum",
			body:       `{"scenario": ` + emptyScenario + `, "factors": ` + carFactors + `, "runs": 3000000, "seed": 1}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   metrics.OutcomeInvalidRuns,
		},
		{
			name:       "too many individuals",
			body:       `{"scenario": ` + carScenario + `, "runs": 2000}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "too_large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/evaluate", tt.body)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			detail := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, detail.Code)
			assert.NotEmpty(t, detail.Message)
			assert.Equal(t, rec.Header().Get(HeaderRequestID), detail.RequestID)
		})
	}

	t.Run("problems are listed", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/evaluate", tests[0].body)
		detail := decodeError(t, rec)
		require.NotEmpty(t, detail.Problems)
		assert.Equal(t, "modes", detail.Problems[0].Field)
	})
}

func TestEvaluate_BodyTooLarge(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxBodyBytes = 1024 })
	body := `{"scenario": {"name": "` + strings.Repeat("x", 2048) + `"}}`
	rec := f.do(t, http.MethodPost, "/v1/evaluate", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large", decodeError(t, rec).Code)
}

func TestValidate(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/validate", carScenario)
	require.Equal(t, http.StatusOK, rec.Code)
	var ok ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Problems)

	rec = f.do(t, http.MethodPost, "/v1/validate", `{"population": -1, "modes": {}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var bad ValidateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	assert.False(t, bad.Valid)
	assert.GreaterOrEqual(t, len(bad.Problems), 2)
}

func TestFactorsAndHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/v1/factors", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var doc factors.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.NotEmpty(t, doc.Factors)

	rec = f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "test", health["version"])

	rec = f.do(t, http.MethodGet, "/v1/evaluate", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/healthz", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "commutesim_http_requests_total")
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.HTTPRequestsTotal.WithLabelValues("GET /healthz", "200")), 0)
}

func TestRequestID(t *testing.T) {
	f := newFixture(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
	assert.Contains(t, f.logs.String(), `"trace_id":"abc-123"`)
	assert.Contains(t, f.logs.String(), `"route":"GET /healthz"`)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.RateLimit = 0.001
		o.Burst = 2
	})

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = f.do(t, http.MethodGet, "/v1/factors", "").Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.InDelta(t, 1.0, testutil.ToFloat64(f.metrics.RateLimitedTotal), 0)

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "").Code, "health checks are not limited")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "10.0.0.1", clientIP(req, false))
	assert.Equal(t, "203.0.113.7", clientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", clientIP(req, true))
}

func TestNew_RequiresEngineAndTable(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
	e, err := engine.New()
	require.NoError(t, err)
	_, err = New(Options{Engine: e})
	require.Error(t, err)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	e, err := engine.New()
	require.NoError(t, err)
	table, err := factors.Default()
	require.NoError(t, err)
	s, err := New(Options{Engine: e, Table: table, Gatherer: reg, Logger: zerolog.Nop()})
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestEvaluate_EmptyPopulationStillCountsRuns(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.MaxIndividuals = 1000 })

	rec := f.do(t, http.MethodPost, "/v1/evaluate", `{"scenario": `+emptyScenario+`, "factors": `+carFactors+`, "runs": 5000}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	assert.Equal(t, "too_large", decodeError(t, rec).Code)

	rec = f.do(t, http.MethodPost, "/v1/evaluate", `{"scenario": `+emptyScenario+`, "factors": `+carFactors+`, "runs": 1000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
