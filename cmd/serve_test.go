package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/fmtplay/internal/daemon"
	"github.com/joescharf/fmtplay/internal/engine"
)

func TestPidFile_Path(t *testing.T) {
	dir := testEnv(t)

	pf := pidFile()
	expected := filepath.Join(dir, "fmtplay-serve.pid")
	assert.Equal(t, expected, pf.Path)
}

func TestServeLogPath(t *testing.T) {
	dir := testEnv(t)

	logPath := serveLogPath()
	expected := filepath.Join(dir, "fmtplay-serve.log")
	assert.Equal(t, expected, logPath)
}

func TestServeStatusRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so status should show "not running" without error.
	err := serveStatusRun()
	assert.NoError(t, err)
}

func TestServeStopRun_NotRunning(t *testing.T) {
	testEnv(t)

	// No PID file exists, so stop should return an error.
	err := serveStopRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")
}

func TestServeStartRun_AlreadyRunning(t *testing.T) {
	dir := testEnv(t)

	// Write a PID file for the current process (which is alive).
	pf := daemon.NewPIDFile(filepath.Join(dir, "fmtplay-serve.pid"))
	require.NoError(t, pf.Write())
	t.Cleanup(func() { _ = os.Remove(pf.Path) })

	err := serveStartRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestServeStartRun_DryRun(t *testing.T) {
	testEnv(t)
	_, errOut := captureUI(t)
	dryRun = true
	ui.DryRun = true
	t.Cleanup(func() { dryRun = false })

	require.NoError(t, serveStartRun())
	assert.Contains(t, errOut.String(), "Would start")
	_, err := os.Stat(serveLogPath())
	assert.True(t, os.IsNotExist(err))
}

func TestServeStatusRun_Running(t *testing.T) {
	dir := testEnv(t)
	out, _ := captureUI(t)

	pf := daemon.NewPIDFile(filepath.Join(dir, "fmtplay-serve.pid"))
	require.NoError(t, pf.Write())
	t.Cleanup(func() { _ = os.Remove(pf.Path) })

	require.NoError(t, serveStatusRun())
	assert.Contains(t, out.String(), "Server running")
}

func TestNewServeHandler(t *testing.T) {
	testEnv(t)
	useEngine(t, engine.FuncEngine{})

	h, err := newServeHandler()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/version", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version"`)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<html")
}

func permalinkFrom(t *testing.T, h http.Handler, host string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/permalink", strings.NewReader(`{"source":"x"}`))
	req.Host = host
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.URL
}

func TestNewServeHandler_LinksFollowServingPort(t *testing.T) {
	testEnv(t)
	useEngine(t, engine.FuncEngine{})
	viper.Set("port", 9090)

	h, err := newServeHandler()
	require.NoError(t, err)

	link := permalinkFrom(t, h, "localhost:9090")
	assert.True(t, strings.HasPrefix(link, "http://localhost:9090/?"), link)
}

func TestNewServeHandler_PinnedBaseURL(t *testing.T) {
	testEnv(t)
	useEngine(t, engine.FuncEngine{})
	t.Setenv("FMTPLAY_PLAYGROUND_BASE_URL", "https://play.example.com/")
	viper.Set("playground.base_url", "https://play.example.com/")

	h, err := newServeHandler()
	require.NoError(t, err)

	link := permalinkFrom(t, h, "localhost:9090")
	assert.True(t, strings.HasPrefix(link, "https://play.example.com/?"), link)
}

func TestBaseURLPinned(t *testing.T) {
	dir := testEnv(t)
	assert.False(t, baseURLPinned(), "defaults are not pinned")

	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("playground:\n  base_url: \"http://localhost:9000/\"\n"), 0o644))
	viper.SetConfigFile(cfg)
	require.NoError(t, viper.ReadInConfig())
	assert.True(t, baseURLPinned())
}
