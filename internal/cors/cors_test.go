package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestLoopbackAlwaysAllowed(t *testing.T) {
	for _, cfg := range []Config{{}, {Origins: "https://app.example.com"}} {
		p := Resolve(cfg)
		assert.True(t, p.AllowOrigin("http://localhost:54321"))
		assert.True(t, p.AllowOrigin("http://127.0.0.1:8080"))
		assert.False(t, p.AllowOrigin("http://evil.example.com"))
		assert.False(t, p.AllowOrigin("http://localhost"))
		assert.False(t, p.AllowOrigin("http://localhost:80.evil.com"))
		assert.False(t, p.AllowOrigin("https://localhost:3000"))
	}
}

func TestLiteralOrigins(t *testing.T) {
	p := Resolve(Config{Origins: " https://a.example.com ,https://b.example.com,, "})
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, p.Origins)
	assert.True(t, p.AllowOrigin("https://b.example.com"))
	assert.False(t, p.AllowOrigin("https://c.example.com"))
}

func TestDefaults(t *testing.T) {
	p := Resolve(Config{})
	assert.Equal(t, []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}, p.Methods)
	assert.Equal(t, []string{"Content-Type", "Authorization"}, p.Headers)
	assert.True(t, p.Credentials)

	p = Resolve(Config{Methods: "GET, POST", Headers: "X-Api-Key"})
	assert.Equal(t, []string{"GET", "POST"}, p.Methods)
	assert.Equal(t, []string{"X-Api-Key"}, p.Headers)
}

func TestCredentialsFlag(t *testing.T) {
	tests := map[string]bool{"": true, "false": false, "true": true, "FALSE": true, "0": true, "no": true}
	for in, want := range tests {
		assert.Equal(t, want, Resolve(Config{Credentials: in}).Credentials, "%q", in)
	}
}

func TestHandler(t *testing.T) {
	p := Resolve(Config{Origins: "https://app.example.com", Credentials: "true"})
	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest("POST", "/graphql", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/graphql", nil)
	pre.Header.Set("Origin", "https://app.example.com")
	pre.Header.Set("Access-Control-Request-Method", "POST")
	pre.Header.Set("Access-Control-Request-Headers", "content-type")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, pre)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "content-type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestDescribe(t *testing.T) {
	want := []string{
		"CORS Origins: https://a.example.com",
		"CORS Methods: GET, POST, PUT, DELETE, OPTIONS",
		"CORS Headers: Content-Type, Authorization",
		"CORS Credentials: false",
	}
	if diff := cmp.Diff(want, Resolve(Config{Origins: "https://a.example.com", Credentials: "false"}).Describe()); diff != "" {
		t.Fatalf("describe mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, Resolve(Config{}).Describe(), 3)
}
