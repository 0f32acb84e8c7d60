package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/banshee-data/scan360/internal/fsutil"
	"github.com/banshee-data/scan360/internal/scan/broadcast"
	"github.com/banshee-data/scan360/internal/scan/scanconfig"
	"github.com/banshee-data/scan360/internal/scan/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() (*Server, fsutil.FileSystem) {
	fs := fsutil.NewMemoryFileSystem()
	s := NewServer(Config{
		Addr:    ":0",
		UDPPort: 2115,
		Hub:     broadcast.NewHub(),
		FS:      fs,
		Stats:   stats.New(),
		Initial: scanconfig.Default(),
	})
	return s, fs
}

func TestHandleHealth_ReturnsOK(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	s.handleHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestHandleConfig_GetReturnsCurrentConfig(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()

	s.handleConfig(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var cfg scanconfig.Config
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, scanconfig.Default(), cfg)
}

func TestHandleConfig_PostPersistsAndTriggersRestart(t *testing.T) {
	s, fs := newTestServer()
	restarted := make(chan scanconfig.Config, 1)
	s.onConfigPersisted = func(cfg scanconfig.Config) { restarted <- cfg }

	next := scanconfig.Default()
	next.DBSCANEps = 0.9
	body, err := json.Marshal(next)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleConfig(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	loaded, err := scanconfig.Load(fs)
	require.NoError(t, err)
	assert.Equal(t, 0.9, loaded.DBSCANEps)

	select {
	case cfg := <-restarted:
		assert.Equal(t, 0.9, cfg.DBSCANEps)
	case <-time.After(time.Second):
		t.Fatal("expected onConfigPersisted to be invoked")
	}
}

func TestHandleConfig_PostRejectsInvalidConfig(t *testing.T) {
	s, _ := newTestServer()
	invalid := scanconfig.Default()
	invalid.DBSCANEps = -5
	body, _ := json.Marshal(invalid)

	req := httptest.NewRequest(http.MethodPost, "/config", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.handleConfig(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleConfig_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/config", nil)
	rec := httptest.NewRecorder()
	s.handleConfig(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
