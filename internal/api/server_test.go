package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viniciushammett/go-dataset-prep/internal/loader"
	"github.com/viniciushammett/go-dataset-prep/internal/logger"
	"github.com/viniciushammett/go-dataset-prep/internal/pipeline"
	"github.com/viniciushammett/go-dataset-prep/internal/split"
	"github.com/viniciushammett/go-dataset-prep/internal/store"
)

func newTestServer(t *testing.T, baseDir string, st *store.Store) http.Handler {
	t.Helper()
	log := logger.Nop()
	svc := pipeline.New(pipeline.Deps{Log: log, Loader: loader.New(log, baseDir, ".json")}, pipeline.Config{
		Split: split.Options{
			Seed: 42, Train: 0.6, Validation: 0.2, Test: 0.2, StratifyColumn: "protocol_type",
		},
		LabelColumn: "class",
		SampleRows:  2,
		Folder:      "raw_emails",
	})
	return NewServer(Deps{Log: log, Service: svc, Store: st}, Config{CORSOrigins: []string{"*"}, MaxBodyBytes: 1 << 20}).Router()
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func protocolPayload() string {
	parts := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		proto := "tcp"
		if i >= 7 {
			proto = "udp"
		}
		parts = append(parts, fmt.Sprintf(`{"duration": %d, "protocol_type": %q}`, i, proto))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestSplitEndpoint(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	for _, path := range []string{"/split", "/split/", "/api/split/"} {
		rec, out := do(t, h, http.MethodPost, path, protocolPayload())
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "success", out["status"])
		assert.Equal(t, 10.0, out["original_size"])
		assert.Equal(t, map[string]any{"train_set": 6.0, "validation_set": 2.0, "test_set": 2.0}, out["splits"])
	}
}

func TestPrepareEndpoint(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	rec, out := do(t, h, http.MethodPost, "/prepare", `[
		{"duration": 0, "service": "http"},
		{"duration": 1, "service": "ftp"},
		{"duration": 2, "service": null},
		{"duration": 3, "service": "http"},
		{"duration": 4, "service": "smtp"}
	]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5.0, out["rows_before"])
	assert.Equal(t, 4.0, out["rows_after"])
	assert.Equal(t, 1.0, out["dropped_rows"])
}

func TestPipelineEndpoint(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	rec, out := do(t, h, http.MethodPost, "/pipeline", `[
		{"src_bytes": 100, "protocol_type": "tcp", "class": "normal"},
		{"src_bytes": 200, "protocol_type": "udp", "class": "anomaly"},
		{"src_bytes": 300, "protocol_type": "icmp", "class": "normal"}
	]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{3.0, 2.0}, out["input_shape"])
	assert.Equal(t, []any{3.0, 4.0}, out["output_shape"])
	assert.Len(t, out["sample_data"], 2)
	assert.Equal(t, []any{"num", "cat"}, out["pipeline_steps"])
}

func TestBadPayloads(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	tests := []struct {
		name string
		path string
		body string
		kind string
	}{
		{"not json", "/split", `hello`, "MalformedInput"},
		{"object instead of array", "/prepare", `{"a": 1}`, "MalformedInput"},
		{"nested value", "/pipeline", `[{"a": {"b": 1}}]`, "MalformedInput"},
		{"extra closing bracket", "/split", `[{"a": 1}]]`, "MalformedInput"},
		{"extra closing brace", "/prepare", `[{"a": 1}]}`, "MalformedInput"},
		{"empty array", "/pipeline", `[]`, "EmptyInput"},
		{"empty split", "/split", `[]`, "EmptyInput"},
		{"too few rows", "/split", `[{"a": 1}, {"a": 2}]`, "InsufficientData"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, out := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "error", out["status"])
			assert.Equal(t, tt.kind, out["kind"])
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestErrorBodyCarriesLocation(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	rec, out := do(t, h, http.MethodPost, "/pipeline", `[
		{"src_bytes": 1}, {"src_bytes": 2}, {"src_bytes": 3}, {"src_bytes": {"hi": 1}}
	]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MalformedInput", out["kind"])
	assert.Equal(t, "/3/src_bytes", out["location"])
}

func TestBodyLimit(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	big := `[{"a": "` + strings.Repeat("x", 2<<20) + `"}]`
	rec, out := do(t, h, http.MethodPost, "/split", big)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "MalformedInput", out["kind"])
}

func TestTrainLocalEndpoint(t *testing.T) {
	base := t.TempDir()
	h := newTestServer(t, base, nil)

	rec, out := do(t, h, http.MethodPost, "/train-local", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", out["kind"])

	dir := filepath.Join(base, "raw_emails")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	rec, _ = do(t, h, http.MethodPost, "/api/train-local/", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for i := 0; i < 10; i++ {
		proto := "tcp"
		if i >= 7 {
			proto = "udp"
		}
		body := fmt.Sprintf(`{"duration": %d, "protocol_type": %q, "class": "normal"}`, i, proto)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%03d.json", i)), []byte(body), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "999.json"), []byte(`not json`), 0o644))

	rec, out = do(t, h, http.MethodPost, "/train-local", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Pipeline fitted using 10 local files.", out["message"])
	assert.Equal(t, map[string]any{
		"files_loaded":       10.0,
		"files_skipped":      1.0,
		"training_samples":   6.0,
		"features_processed": 3.0,
		"pipeline_steps":     []any{"num", "cat"},
	}, out["details"])
	assert.Len(t, out["sample_processed_data"], 2)
}

func TestRunsEndpoint(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer st.Close()
	_, err = st.PutRun(store.Run{Op: "split", Status: "success", Rows: 10})
	require.NoError(t, err)

	h := newTestServer(t, t.TempDir(), st)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/runs?limit=5", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []store.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "split", runs[0].Op)
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, t.TempDir(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
