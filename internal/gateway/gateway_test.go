package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	compose "github.com/hanpama/graphgate/internal/compose"
	config "github.com/hanpama/graphgate/internal/config"
	fragment "github.com/hanpama/graphgate/internal/fragment"
	lifecycle "github.com/hanpama/graphgate/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookSchema = fragment.InMemoryLoader{{
	Name:   "books.graphql",
	Source: `extend type Query { book(id: ID!): Book } type Book { id: ID! title: String }`,
}}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Env = config.Test
	return cfg
}

func bookResolvers(inits *atomic.Int32, initErr error) fragment.ResolverFragment {
	return fragment.ResolverFragment{
		Name: "books",
		Fields: fragment.Resolvers{"Query": {
			"book": func(_ context.Context, _ any, args map[string]any) (any, error) {
				return map[string]any{"id": args["id"], "title": "Dune"}, nil
			},
		}},
		Init: func(context.Context) error {
			inits.Add(1)
			return initErr
		},
	}
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) (*App, *httptest.Server) {
	t.Helper()
	app, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(app.Close)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, srv
}

func postQuery(t *testing.T, url, query string) (*http.Response, map[string]any) {
	t.Helper()
	body, _ := json.Marshal(map[string]any{"query": query})
	resp, err := http.Post(url, "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestEngineStartsOnFirstGraphQLRequest(t *testing.T) {
	var inits atomic.Int32
	app, srv := newApp(t, testConfig(), WithSchemas(bookSchema), WithResolvers(bookResolvers(&inits, nil)))

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, lifecycle.NotStarted, app.Lifecycle().State())
	assert.Equal(t, int32(0), inits.Load())

	resp, out := postQuery(t, srv.URL+"/graphql", `{ book(id: "7") { id title } ping }`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{
		"book": map[string]any{"id": "7", "title": "Dune"},
		"ping": true,
	}, out["data"])
	assert.Equal(t, lifecycle.Started, app.Lifecycle().State())

	_, _ = postQuery(t, srv.URL+"/graphql/", `{ ping }`)
	assert.Equal(t, int32(1), inits.Load())
}

func TestGatewayInfo(t *testing.T) {
	_, srv := newApp(t, testConfig(), WithSchemas(bookSchema), WithVersion("1.2.3"))

	_, out := postQuery(t, srv.URL+"/graphql", `{ gateway { name version environment fragments } }`)
	assert.Equal(t, map[string]any{"gateway": map[string]any{
		"name":        "graphgate",
		"version":     "1.2.3",
		"environment": "test",
		"fragments":   []any{"builtin/gateway.graphql", "builtin/health.graphql", "books.graphql"},
	}}, out["data"])
}

func TestStartupFailureIsTerminal(t *testing.T) {
	var inits atomic.Int32
	app, srv := newApp(t, testConfig(), WithSchemas(bookSchema), WithResolvers(bookResolvers(&inits, errors.New("database unreachable"))))

	for i := 0; i < 3; i++ {
		resp, out := postQuery(t, srv.URL+"/graphql", `{ ping }`)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		errs := out["errors"].([]any)
		assert.Equal(t, "GraphQL engine is unavailable: startup failed", errs[0].(map[string]any)["message"])
	}
	assert.Equal(t, int32(1), inits.Load())
	assert.Equal(t, lifecycle.Failed, app.Lifecycle().State())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "failed", health["engine"])
	assert.Contains(t, health["error"], "database unreachable")

	resp, err = http.Get(srv.URL + "/api-docs.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownResolverFailsStartup(t *testing.T) {
	_, srv := newApp(t, testConfig(), WithResolvers(fragment.ResolverFragment{
		Name:   "stray",
		Fields: fragment.Resolvers{"Query": {"nope": func(context.Context, any, map[string]any) (any, error) { return nil, nil }}},
	}))
	resp, _ := postQuery(t, srv.URL+"/graphql", `{ ping }`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCompositionErrorIsFatal(t *testing.T) {
	_, err := New(context.Background(), testConfig(), WithSchemas(fragment.InMemoryLoader{{
		Name:   "bad.graphql",
		Source: `extend type Query { ping: String }`,
	}}))
	var ce compose.CompositionError
	require.ErrorAs(t, err, &ce)
}

func TestConflictingRoutesAreRejected(t *testing.T) {
	for _, path := range []string{"/", "/health", "/metrics"} {
		cfg := testConfig()
		cfg.GraphQLPath = path
		_, err := New(context.Background(), cfg)
		assert.ErrorContains(t, err, "is already used by", path)
	}
	cfg := testConfig()
	cfg.DocsPath = "/metrics"
	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "DOCS_PATH")
}

func TestDocsUseRequestOrigin(t *testing.T) {
	_, srv := newApp(t, testConfig())

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api-docs.json", nil)
	req.Host = "api.internal:8080"
	req.Header.Set("X-Forwarded-Proto", "https")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, []any{map[string]any{"url": "https://api.internal:8080"}}, doc["servers"])

	resp, err = http.Get(srv.URL + "/api-docs")
	require.NoError(t, err)
	defer resp.Body.Close()
	html, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(html), "swagger-ui")
}

func TestDocsHostOverride(t *testing.T) {
	cfg := testConfig()
	cfg.HostURL = "https://graph.example.com/"
	_, srv := newApp(t, cfg)

	resp, err := http.Get(srv.URL + "/api-docs.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var doc map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, []any{map[string]any{"url": "https://graph.example.com"}}, doc["servers"])
}

func TestRouterFallback(t *testing.T) {
	router := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "app:"+r.URL.Path)
	})
	app, srv := newApp(t, testConfig(), WithRouter(router))

	for _, path := range []string{"/", "/users/1", "/graphql/deeper"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, "app:"+path, string(body))
	}
	assert.Equal(t, lifecycle.NotStarted, app.Lifecycle().State())
}

func TestNotFoundWithoutRouter(t *testing.T) {
	_, srv := newApp(t, testConfig())
	resp, err := http.Get(srv.URL + "/nothing-here")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSPreflightFromLoopback(t *testing.T) {
	_, srv := newApp(t, testConfig())

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/graphql", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestRequestIDAndMetrics(t *testing.T) {
	app, srv := newApp(t, testConfig())

	postQuery(t, srv.URL+"/graphql", `{ ping }`)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Contains(t, string(body), "graphgate_engine_ready 1")
	assert.NotNil(t, app.Metrics())
}

func TestServeShutsDownWithContext(t *testing.T) {
	cfg := testConfig()
	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer app.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestRunRefusesInTestMode(t *testing.T) {
	app, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer app.Close()
	assert.Error(t, app.Run(context.Background()))
}
