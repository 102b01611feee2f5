package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug")

	h := log.HTTP(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/split", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "POST", line["method"])
	assert.Equal(t, "/split", line["path"])
	assert.EqualValues(t, 404, line["status"])
	assert.Equal(t, "info", line["level"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud")
	log.Debug().Msg("hidden")
	assert.Empty(t, buf.String())
	log.Info().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
