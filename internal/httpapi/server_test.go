package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meterbook-dev/meterbook/internal/ledger"
	"github.com/meterbook-dev/meterbook/internal/readings"
)

func newTestServer(t *testing.T, opts Options) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	svc := ledger.NewService(ledger.Options{
		Store:       readings.NewStore(readings.Options{Path: filepath.Join(dir, "energy_data.csv")}),
		ChangesPath: filepath.Join(dir, "meter_changes.yaml"),
		ImportDir:   filepath.Join(dir, "import"),
		Now:         func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) },
	})
	return New(svc, opts), dir
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodGet, "/api/readings", "")

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "meterbook_http_requests_total")
}

func TestSubmitListDelete(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/readings", `{"date":"01.01.2023","values":{"strom":"10"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[submitResponseJSON](t, rr)
	assert.Equal(t, "2023-01-01", created.Date)
	assert.False(t, created.Replaced)

	rr = do(t, srv, http.MethodPost, "/api/readings", `{"date":"2023-01-01","values":{"strom":"20"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	replaced := decode[submitResponseJSON](t, rr)
	assert.True(t, replaced.Replaced)
	assert.NotEmpty(t, replaced.Warning)

	rr = do(t, srv, http.MethodGet, "/api/readings", "")
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode[ledger.ListView](t, rr)
	require.Len(t, view.Rows, 1)
	assert.Equal(t, "01.01.2023", view.Rows[0].Date)
	assert.Equal(t, int64(20), *view.Rows[0].Values[0])

	rr = do(t, srv, http.MethodDelete, "/api/readings/2023-01-01", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[deleteResponseJSON](t, rr).Deleted)

	rr = do(t, srv, http.MethodDelete, "/api/readings/2023-01-01", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestErrorMapping(t *testing.T) {
	srv, dir := newTestServer(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_data.csv"), []byte("datum;strom\n2023-01-01;5\n"), 0o644))

	tests := []struct {
		name   string
		method string
		target string
		body   string
		status int
		code   string
	}{
		{"bad date", http.MethodPost, "/api/readings", `{"date":"gestern","values":{}}`, http.StatusBadRequest, "invalid_argument"},
		{"bad value", http.MethodPost, "/api/readings", `{"date":"2023-01-02","values":{"strom":"x"}}`, http.StatusBadRequest, "invalid_argument"},
		{"bad body", http.MethodPost, "/api/readings", `{"datum":1}`, http.StatusBadRequest, "invalid_argument"},
		{"unknown column on submit", http.MethodPost, "/api/readings", `{"date":"2023-01-02","values":{"oil":"1"}}`, http.StatusNotFound, "not_found"},
		{"unknown metric", http.MethodGet, "/api/data/oil", "", http.StatusNotFound, "not_found"},
		{"bad timeframe", http.MethodGet, "/api/aggregates/strom?timeframe=Q", "", http.StatusBadRequest, "invalid_argument"},
		{"bad year", http.MethodGet, "/api/insights/strom?year=abc", "", http.StatusBadRequest, "invalid_argument"},
		{"bad delete date", http.MethodDelete, "/api/readings/tomorrow", "", http.StatusBadRequest, "invalid_argument"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.target, tt.body)
			require.Equal(t, tt.status, rr.Code, rr.Body.String())
			assert.Equal(t, tt.code, decode[errorResponseJSON](t, rr).Error.Code)
		})
	}
}

func TestStorageErrorIs500(t *testing.T) {
	srv, dir := newTestServer(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_data.csv"), []byte("wrong;strom\n"), 0o644))

	rr := do(t, srv, http.MethodGet, "/api/readings", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal_error", decode[errorResponseJSON](t, rr).Error.Code)
}

func TestSeriesAndAggregates(t *testing.T) {
	srv, dir := newTestServer(t, Options{})
	data := "datum;strom\n2024-01-01;10\n2024-01-02;\n2024-01-03;\n2024-01-04;40\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_data.csv"), []byte(data), 0o644))

	rr := do(t, srv, http.MethodGet, "/api/data/strom", "")
	require.Equal(t, http.StatusOK, rr.Code)
	series := decode[ledger.ChartSeries](t, rr)
	assert.Equal(t, []string{"2024-01-01", "2024-01-04"}, series.Labels)
	assert.Equal(t, []int64{10, 40}, series.Values)

	rr = do(t, srv, http.MethodGet, "/api/data/Strom", "")
	require.Equal(t, http.StatusOK, rr.Code, "display names resolve")
	assert.Equal(t, series.Values, decode[ledger.ChartSeries](t, rr).Values)

	rr = do(t, srv, http.MethodGet, "/api/aggregates/strom?timeframe=D", "")
	require.Equal(t, http.StatusOK, rr.Code)
	agg := decode[ledger.AggregateView](t, rr)
	require.Len(t, agg.Values, 4)
	assert.InDelta(t, 20, *agg.Values[1], 1e-9)
	assert.Nil(t, agg.Pivot)

	rr = do(t, srv, http.MethodGet, "/api/aggregates/strom", "")
	require.Equal(t, http.StatusOK, rr.Code)
	agg = decode[ledger.AggregateView](t, rr)
	assert.Equal(t, "M", agg.Timeframe)
	require.NotNil(t, agg.Pivot)
	assert.Equal(t, []int{2024}, agg.Pivot.Years)

	rr = do(t, srv, http.MethodGet, "/api/insights/strom?year=2024", "")
	require.Equal(t, http.StatusOK, rr.Code)
	in := decode[ledger.Insights](t, rr)
	assert.Equal(t, 2024, in.YearOverYear.ReferenceYear)
	assert.False(t, in.YearOverYear.Available)
}

func TestExport(t *testing.T) {
	srv, dir := newTestServer(t, Options{})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_data.csv"), []byte("datum;strom\n2024-01-01;10\n"), 0o644))

	rr := do(t, srv, http.MethodGet, "/api/export.xlsx", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), `filename="energy_data.xlsx"`)

	xl, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err)
	defer xl.Close()
	rows, err := xl.GetRows("energy_data")
	require.NoError(t, err)
	assert.Equal(t, []string{"Datum", "Strom"}, rows[0])
}

func TestImport(t *testing.T) {
	srv, dir := newTestServer(t, Options{})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "import"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "old.csv"), []byte("datum;strom\n2022-01-01;1\n"), 0o644))

	rr := do(t, srv, http.MethodPost, "/api/import", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	res := decode[ledger.ImportResult](t, rr)
	assert.Equal(t, []string{"old.csv"}, res.Files)
	assert.Equal(t, 1, res.Added)
}

func TestWriteRateLimit(t *testing.T) {
	srv, _ := newTestServer(t, Options{WriteRPS: 0.001, WriteBurst: 1})

	rr := do(t, srv, http.MethodPost, "/api/readings", `{"date":"2023-01-01","values":{"strom":"1"}}`)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, http.MethodPost, "/api/readings", `{"date":"2023-01-02","values":{"strom":"1"}}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("Retry-After"))

	rr = do(t, srv, http.MethodGet, "/api/readings", "")
	assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/api/readings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}
