package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavesentry/wavesentry/pkg/logger"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte("OK"))
		require.NoError(t, err)
	})
}

func TestCommonMiddlewareCORS(t *testing.T) {
	cors := CORSConfig{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
	}

	handler := CommonMiddleware(okHandler(t), cors, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Origin", "http://evil.example")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestCommonMiddlewareAnswersPreflight(t *testing.T) {
	handler := CommonMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("preflight must not reach the inner handler")
	}), CORSConfig{}, logger.NewTestLogger())

	req := httptest.NewRequest(http.MethodOptions, "/devices/summary/devices.json", http.NoBody)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPIKeyMiddleware(t *testing.T) {
	middleware := APIKeyMiddleware("test-key", logger.NewTestLogger())
	handler := middleware(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/devices/all_devices.ekjson", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/devices/all_devices.ekjson", http.NoBody)
	req.Header.Set("X-API-Key", "test-key")

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/devices/all_devices.ekjson?api_key=test-key", http.NoBody)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPIKeyMiddlewareDisabledWhenUnset(t *testing.T) {
	middleware := APIKeyMiddleware("", logger.NewTestLogger())
	handler := middleware(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/devices/all_devices.ekjson", http.NoBody)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
