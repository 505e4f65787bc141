package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabloom-cli/internal/metrics"
)

func newTestServer(t *testing.T, maxBody int64) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	s := New(Config{
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:      m,
		MaxBodyBytes: maxBody,
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, m
}

func post(t *testing.T, ts *httptest.Server, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestProcessEndpoint(t *testing.T) {
	ts, m := newTestServer(t, 0)
	resp, out := post(t, ts, "/api/v1/process", `{
		"headers": ["name", "amount"],
		"rows": [
			{"name": "alice  smith", "amount": "$1,200"},
			{"name": "Alice Smith", "amount": "1200"},
			{"name": "", "amount": null}
		]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := uuid.Parse(resp.Header.Get(RunIDHeader))
	assert.NoError(t, err)

	assert.Equal(t, 3.0, out["originalRowCount"])
	assert.Equal(t, 1.0, out["cleanedRowCount"])
	data := out["data"].([]any)
	require.Len(t, data, 1)
	row := data[0].(map[string]any)
	assert.Equal(t, "Alice Smith", row["name"])
	assert.Equal(t, 1200.0, row["amount"])

	report := out["qualityReport"].(map[string]any)
	assert.Equal(t, 1.0, report["duplicateRows"])

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RowsIn))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Duplicates))
}

func TestRequestsCountedByRoute(t *testing.T) {
	m := metrics.New()
	h := New(Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Metrics: m}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/eda", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/eda", strings.NewReader(`nope`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/eda", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/v1/eda", "400")))
}

func TestImputeEndpoint(t *testing.T) {
	ts, m := newTestServer(t, 0)
	resp, out := post(t, ts, "/api/v1/impute", `{
		"data": [{"v": 1}, {"v": null}, {"v": 3}],
		"columns": [{"name": "v", "type": "number", "nullable": true, "unique": false, "stats": {"nullCount": 1, "uniqueCount": 2}}],
		"strategies": [{"column": "v", "method": "mean"}, {"column": "w", "method": "custom"}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := out["data"].([]any)
	assert.Equal(t, 2.0, data[1].(map[string]any)["v"])
	results := out["results"].(map[string]any)
	v := results["v"].(map[string]any)
	assert.Equal(t, true, v["success"])
	assert.Equal(t, 1.0, v["imputedCount"])
	assert.NotContains(t, results, "w", "unknown columns are ignored")

	cols := out["columns"].([]any)
	stats := cols[0].(map[string]any)["stats"].(map[string]any)
	assert.Equal(t, 0.0, stats["nullCount"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Imputations.WithLabelValues("mean")))
}

func TestEDAEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp, out := post(t, ts, "/api/v1/eda", `{
		"data": [{"a": 1, "b": 2}, {"a": 2, "b": 4}, {"a": 3, "b": 6}],
		"columns": [
			{"name": "a", "type": "number", "stats": {"nullCount": 0, "uniqueCount": 3}},
			{"name": "b", "type": "number", "stats": {"nullCount": 0, "uniqueCount": 3}}
		]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := out["summary"].(map[string]any)
	assert.Equal(t, 2.0, summary["numericColumns"])
	corr := out["correlations"].([]any)
	require.Len(t, corr, 1)
	assert.InDelta(t, 1.0, corr[0].(map[string]any)["correlation"].(float64), 1e-9)
}

func TestUnsupportedMethodsShareMetricSeries(t *testing.T) {
	ts, m := newTestServer(t, 0)
	for i := 0; i < 50; i++ {
		resp, out := post(t, ts, "/api/v1/impute", fmt.Sprintf(`{
			"data": [{"v": 1}, {"v": null}],
			"columns": [{"name": "v", "type": "number"}],
			"strategies": [{"column": "v", "method": "bogus%d"}]
		}`, i))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		v := out["results"].(map[string]any)["v"].(map[string]any)
		require.Equal(t, true, v["success"])
	}
	assert.Equal(t, 1, testutil.CollectAndCount(m.Imputations))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Imputations.WithLabelValues(metrics.UnsupportedMethod)))
}

func TestExtremeNumbersStaySerializable(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp, out := post(t, ts, "/api/v1/process", `{"headers": ["a"], "rows": [{"a": 1.5e308}, {"a": 1.4e308}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := out["columns"].([]any)[0].(map[string]any)["stats"].(map[string]any)
	assert.InDelta(t, 1.45e308, stats["avg"].(float64), 1e294)

	resp, out = post(t, ts, "/api/v1/eda", `{
		"data": [{"a": -1.5e308}, {"a": 0}, {"a": 1.5e308}],
		"columns": [{"name": "a", "type": "number", "stats": {"nullCount": 0, "uniqueCount": 3}}]
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	dists := out["distributions"].([]any)
	require.Len(t, dists, 1)
	assert.Len(t, dists[0].(map[string]any)["bins"], 10)
}

func TestMalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	for _, path := range []string{"/api/v1/process", "/api/v1/impute", "/api/v1/eda"} {
		resp, out := post(t, ts, path, `{"headers": [`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, 400.0, out["status"], path)
		assert.Contains(t, out["error"], "malformed JSON", path)
	}
}

func TestNestedCellIsRejected(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp, _ := post(t, ts, "/api/v1/process", `{"headers": ["a"], "rows": [{"a": {"x": 1}}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestValidationErrors(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	resp, out := post(t, ts, "/api/v1/process", `{"headers": ["a", ""], "rows": []}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "invalid request")

	resp, _ = post(t, ts, "/api/v1/process", `{"rows": [{"a": 1}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = post(t, ts, "/api/v1/impute", `{"strategies": [{"method": "mean"}]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBodyLimit(t *testing.T) {
	ts, _ := newTestServer(t, 64)
	body := `{"headers": ["a"], "rows": [` + strings.Repeat(`{"a": 1},`, 20) + `{"a": 1}]}`
	resp, out := post(t, ts, "/api/v1/process", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, 413.0, out["status"])
}

func TestRunIDIsReused(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RunIDHeader, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, resp.Header.Get(RunIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	post(t, ts, "/api/v1/process", `{"headers": ["a"], "rows": [{"a": 1}]}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "tabloom_rows_received_total 1")
}
