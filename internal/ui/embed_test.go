package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	h, err := Handler()
	require.NoError(t, err)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
	return w
}

func TestHandler_Index(t *testing.T) {
	for _, target := range []string{"/", "/?mode=django&width=120&indent=4&code=abc", "/index.html"} {
		w := serve(t, target)
		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Contains(t, w.Body.String(), "djangofmt playground")
		assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	}
}

func TestHandler_Assets(t *testing.T) {
	w := serve(t, "/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/format")

	w = serve(t, "/style.css")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/css")
}

func TestHandler_Fallback(t *testing.T) {
	w := serve(t, "/playground/shared")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "djangofmt playground")

	w = serve(t, "/missing.js")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
