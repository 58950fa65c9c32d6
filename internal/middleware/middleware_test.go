package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
}

func corsRequest(h http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/users", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORSWildcardEchoesOrigin(t *testing.T) {
	rec := corsRequest(CORS(NewOrigins([]string{"*"}), okHandler()), http.MethodGet, "https://any.test")

	assert.Equal(t, "https://any.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORSAdvertisesServedRoutesOnly(t *testing.T) {
	rec := corsRequest(CORS(NewOrigins([]string{"*"}), okHandler()), http.MethodGet, "https://any.test")

	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, Accept", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORSAllowList(t *testing.T) {
	h := CORS(NewOrigins([]string{"https://a.test/"}), okHandler())

	rec := corsRequest(h, http.MethodGet, "https://A.test")
	assert.Equal(t, "https://A.test", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = corsRequest(h, http.MethodGet, "https://b.test")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = corsRequest(h, http.MethodGet, "")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	rec := corsRequest(CORS(NewOrigins([]string{"*"}), okHandler()), http.MethodOptions, "https://any.test")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOrigins(t *testing.T) {
	testCases := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "https://x.test", want: true},
		{name: "wildcard without origin", allowed: []string{"*"}, origin: "", want: false},
		{name: "listed", allowed: []string{"https://a.test", " https://b.test "}, origin: "https://b.test", want: true},
		{name: "case", allowed: []string{"https://A.test"}, origin: "https://a.TEST", want: true},
		{name: "unlisted", allowed: []string{"https://a.test"}, origin: "https://a.test.evil", want: false},
		{name: "empty config", allowed: nil, origin: "https://a.test", want: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewOrigins(tc.allowed).Allows(tc.origin))
		})
	}
}

func TestSameHost(t *testing.T) {
	assert.True(t, SameHost("http://localhost:8080", "localhost:8080"))
	assert.False(t, SameHost("http://localhost:9090", "localhost:8080"))
	assert.False(t, SameHost("not a url", "localhost:8080"))
}

func TestLoggingKeepsStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	Logging(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
