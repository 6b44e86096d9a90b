package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/prayertimes/api/handler"
	"github.com/use-agent/prayertimes/config"
	"github.com/use-agent/prayertimes/models"
)

func testAggregate() *models.Aggregate {
	agg := models.NewAggregate()
	sofia := models.NewCityTimes()
	sofia.Put("2025-01-01", models.ZipRecord(
		[]string{"Ден", "Зора", "Обедна"},
		[]string{"1", "05:30", "12:10"},
	))
	agg.Merge("София", sofia)
	agg.Merge("Айтос", models.NewCityTimes())
	return agg
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Mode: "test"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 0},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	store := handler.NewStore(testAggregate(), "all_prayer_times_2025.json")
	return NewRouter(ctx, store, cfg, time.Now())
}

func get(t *testing.T, h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func timesURL(prefix, city, date string) string {
	q := url.Values{}
	if city != "" {
		q.Set("city", city)
	}
	if date != "" {
		q.Set("date", date)
	}
	return prefix + "/times?" + q.Encode()
}

func TestTimes(t *testing.T) {
	h := newTestRouter(t, testConfig())

	tests := []struct {
		name     string
		city     string
		date     string
		wantCode int
		wantBody string
	}{
		{
			name:     "found",
			city:     "София",
			date:     "2025-01-01",
			wantCode: http.StatusOK,
			wantBody: `{"Ден":"1","Зора":"05:30","Обедна":"12:10"}`,
		},
		{
			name:     "missing city",
			date:     "2025-01-01",
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Missing city or date parameter","code":"INVALID_INPUT"}`,
		},
		{
			name:     "missing date",
			city:     "София",
			wantCode: http.StatusBadRequest,
			wantBody: `{"error":"Missing city or date parameter","code":"INVALID_INPUT"}`,
		},
		{
			name:     "unknown city",
			city:     "Варна",
			date:     "2025-01-01",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"City not found","code":"NOT_FOUND"}`,
		},
		{
			name:     "unknown date",
			city:     "София",
			date:     "2025-01-02",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Date not found","code":"NOT_FOUND"}`,
		},
		{
			name:     "city is matched verbatim",
			city:     " София",
			date:     "2025-01-01",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"City not found","code":"NOT_FOUND"}`,
		},
		{
			name:     "date is matched verbatim",
			city:     "София",
			date:     "2025-01-01 ",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Date not found","code":"NOT_FOUND"}`,
		},
		{
			name:     "city without records",
			city:     "Айтос",
			date:     "2025-01-01",
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"Date not found","code":"NOT_FOUND"}`,
		},
	}

	for _, prefix := range []string{"", "/api/v1"} {
		for _, tt := range tests {
			t.Run(prefix+" "+tt.name, func(t *testing.T) {
				w := get(t, h, timesURL(prefix, tt.city, tt.date), nil)
				assert.Equal(t, tt.wantCode, w.Code)
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			})
		}
	}
}

func TestTimesKeepsHeaderOrder(t *testing.T) {
	h := newTestRouter(t, testConfig())

	w := get(t, h, timesURL("", "София", "2025-01-01"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"Ден":"1","Зора":"05:30","Обедна":"12:10"}`, strings.TrimSpace(w.Body.String()))
}

func TestTimesWritesMarkupLiterally(t *testing.T) {
	agg := models.NewAggregate()
	times := models.NewCityTimes()
	times.Put("2025-01-01", models.ZipRecord([]string{"Ден", "A<B&C"}, []string{"1", "x>y"}))
	agg.Merge("Sofia & <Co>", times)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewRouter(ctx, handler.NewStore(agg, ""), testConfig(), time.Now())

	w := get(t, h, timesURL("", "Sofia & <Co>", "2025-01-01"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `{"Ден":"1","A<B&C":"x>y"}`, strings.TrimSpace(w.Body.String()))
}

func TestCities(t *testing.T) {
	h := newTestRouter(t, testConfig())

	w := get(t, h, "/cities", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cities []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cities))
	assert.Equal(t, []string{"София", "Айтос"}, cities)
}

func TestCitiesEmptyStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewRouter(ctx, handler.NewStore(nil, ""), testConfig(), time.Now())

	w := get(t, h, "/cities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `[]`, strings.TrimSpace(w.Body.String()))
}

func TestHealth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	h := newTestRouter(t, cfg)

	w := get(t, h, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 2, resp.Cities)
	assert.Equal(t, 1, resp.Records)
	assert.Equal(t, "all_prayer_times_2025.json", resp.Source)
	assert.Equal(t, handler.Version, resp.Version)
}

func TestHealthEmpty(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewRouter(ctx, handler.NewStore(nil, ""), testConfig(), time.Now())

	w := get(t, h, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"empty"`)
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"secret"}}
	h := newTestRouter(t, cfg)

	tests := []struct {
		name     string
		header   http.Header
		wantCode int
	}{
		{"no key", nil, http.StatusUnauthorized},
		{"wrong key", http.Header{"X-Api-Key": {"nope"}}, http.StatusUnauthorized},
		{"x-api-key", http.Header{"X-Api-Key": {"secret"}}, http.StatusOK},
		{"bearer", http.Header{"Authorization": {"Bearer secret"}}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, h, "/cities", tt.header)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	h := newTestRouter(t, cfg)

	for i := 0; i < 2; i++ {
		w := get(t, h, "/cities", nil)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}

	w := get(t, h, "/cities", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1000", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded, please slow down","code":"RATE_LIMITED"}`, w.Body.String())

	// Health is outside the limited group.
	w = get(t, h, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodOptions, "/times", nil)
	req.Header.Set("Origin", "https://example.org")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = get(t, h, "/cities", nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestStoreReplace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := handler.NewStore(nil, "")
	h := NewRouter(ctx, store, testConfig(), time.Now())

	w := get(t, h, timesURL("", "София", "2025-01-01"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	store.Replace(testAggregate(), "reloaded.json")

	w = get(t, h, timesURL("", "София", "2025-01-01"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reloaded.json", store.Source())
}
