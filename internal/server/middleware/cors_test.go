package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	wrapped := CORS([]string{"http://localhost:3000"})(next)

	get := func(origin, method string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/markets", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		rec := httptest.NewRecorder()
		wrapped.ServeHTTP(rec, req)
		return rec
	}

	rec := get("http://localhost:3000", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, corsHeaders, rec.Header().Get("Access-Control-Allow-Headers"))

	// Unlisted origins get no CORS grant, but the request itself still runs.
	rec = get("http://evil.example", http.MethodGet)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	// Preflight is answered without reaching the handler.
	rec = get("http://localhost:3000", http.MethodOptions)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, corsMethods, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed(nil, "http://anything.example"))
	assert.True(t, originAllowed([]string{"*"}, "http://anything.example"))
	assert.True(t, originAllowed([]string{"HTTP://A.example"}, "http://a.example"))
	assert.False(t, originAllowed([]string{"http://a.example"}, "http://b.example"))
}
