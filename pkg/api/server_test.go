package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasi-python/abtest/pkg/analysis"
	"github.com/yasi-python/abtest/pkg/storage"
)

func newTestServer(t *testing.T, withStore bool) *httptest.Server {
	t.Helper()
	var store Store
	if withStore {
		db, err := storage.Open(filepath.Join(t.TempDir(), "runs.bolt"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })
		store = db
	}
	srv := httptest.NewServer(New(store, analysis.DefaultConfig(), nil, "/metrics", "/healthz").Routes())
	t.Cleanup(srv.Close)
	return srv
}

func records(purchases ...float64) []map[string]float64 {
	out := make([]map[string]float64, len(purchases))
	for i, p := range purchases {
		out[i] = map[string]float64{"Purchase": p, "Earning": p * 3}
	}
	return out
}

func post(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url+"/api/v1/analyze", "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealthzAndMetrics(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeStoresRun(t *testing.T) {
	srv := newTestServer(t, true)
	resp, out := post(t, srv.URL, map[string]any{
		"control": records(2, 1, 3, 4),
		"test":    records(6, 5, 7, 9),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Equal(t, true, out["ok"])
	id, _ := out["id"].(string)
	require.NotEmpty(t, id)

	reports := out["reports"].([]any)
	require.Len(t, reports, 1)
	rep := reports[0].(map[string]any)
	assert.Equal(t, "Purchase", rep["metric"])
	assert.Equal(t, true, rep["significant"])

	got, err := http.Get(srv.URL + "/api/v1/runs/" + id)
	require.NoError(t, err)
	var run storage.RunRecord
	require.NoError(t, json.NewDecoder(got.Body).Decode(&run))
	got.Body.Close()
	assert.Equal(t, id, run.ID)
	require.Len(t, run.Reports, 1)
	assert.InDelta(t, 0.0073640592242113214, run.Reports[0].Comparison().Result.PValue, 1e-9)

	list, err := http.Get(srv.URL + "/api/v1/runs?limit=5")
	require.NoError(t, err)
	var runs []storage.RunRecord
	require.NoError(t, json.NewDecoder(list.Body).Decode(&runs))
	list.Body.Close()
	assert.Len(t, runs, 1)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/v1/runs/"+id, nil)
	require.NoError(t, err)
	del, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	del.Body.Close()
	assert.Equal(t, http.StatusOK, del.StatusCode)

	missing, err := http.Get(srv.URL + "/api/v1/runs/" + id)
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestAnalyzeAllMetrics(t *testing.T) {
	srv := newTestServer(t, false)
	resp, out := post(t, srv.URL, map[string]any{
		"all_metrics": true,
		"alpha":       0.01,
		"control":     records(2, 1, 3, 4),
		"test":        records(6, 5, 7, 9),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out)
	assert.Nil(t, out["id"])
	reports := out["reports"].([]any)
	require.Len(t, reports, 2)
	for _, r := range reports {
		assert.Equal(t, 0.01, r.(map[string]any)["alpha"])
		assert.Equal(t, true, r.(map[string]any)["significant"])
	}
}

func TestAnalyzeErrors(t *testing.T) {
	srv := newTestServer(t, true)
	cases := []struct {
		name  string
		body  map[string]any
		code  int
		stage string
	}{
		{"too few", map[string]any{"control": records(1, 2), "test": records(3, 4, 5)}, http.StatusUnprocessableEntity, "normality"},
		{"constant", map[string]any{"control": records(1, 2, 4), "test": records(5, 5, 5)}, http.StatusUnprocessableEntity, "normality"},
		{"unknown metric", map[string]any{"metric": "Click", "control": records(1, 2, 4), "test": records(3, 5, 6)}, http.StatusUnprocessableEntity, "extract"},
		{"schema", map[string]any{"control": records(1, 2, 4), "test": []map[string]float64{{"Purchase": 1}, {"Purchase": 2}, {"Purchase": 3}}}, http.StatusUnprocessableEntity, "input"},
		{"bad alpha", map[string]any{"alpha": 2, "control": records(1, 2, 4), "test": records(3, 5, 6)}, http.StatusUnprocessableEntity, "config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, out := post(t, srv.URL, tc.body)
			assert.Equal(t, tc.code, resp.StatusCode)
			assert.Equal(t, false, out["ok"])
			assert.Equal(t, tc.stage, out["stage"])
		})
	}

	resp, err := http.Post(srv.URL+"/api/v1/analyze", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHistoryDisabled(t *testing.T) {
	srv := newTestServer(t, false)
	resp, err := http.Get(srv.URL + "/api/v1/runs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
