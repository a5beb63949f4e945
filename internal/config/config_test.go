package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	cors "github.com/hanpama/graphgate/internal/cors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load(NewViper())
	require.NoError(t, err)

	want := &Config{
		Port: 3000,
		Env:  Development,
		CORS: cors.Config{
			Methods: "GET,POST,PUT,DELETE,OPTIONS",
			Headers: "Content-Type,Authorization",
		},
		GraphQLPath:    "/graphql",
		Introspection:  true,
		Playground:     true,
		Timeout:        10 * time.Second,
		MaxBodyBytes:   1 << 20,
		MaxConcurrency: 16,
		DocsPath:       "/api-docs",
		LogLevel:       "info",
		LogFormat:      "text",
		OtelService:    "graphgate",
	}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "http://localhost:3000", c.PublicURL())
	assert.True(t, c.ListenSocket())
	assert.Empty(t, c.Warnings())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("APP_ENV", "Production")
	t.Setenv("HOST_URL", "https://api.example.com/")
	t.Setenv("CORS_ORIGINS", "https://a.example.com")
	t.Setenv("CORS_CREDENTIALS", "false")
	t.Setenv("GRAPHQL_TIMEOUT", "250ms")
	t.Setenv("GRAPHQL_INTROSPECTION", "false")

	c, err := Load(NewViper())
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, Production, c.Env)
	assert.Equal(t, "https://api.example.com", c.PublicURL())
	assert.Equal(t, "https://a.example.com", c.CORS.Origins)
	assert.Equal(t, "false", c.CORS.Credentials)
	assert.Equal(t, 250*time.Millisecond, c.Timeout)
	assert.False(t, c.Introspection)
}

func TestServerlessAndTestModesDoNotListen(t *testing.T) {
	t.Setenv("VERCEL", "1")
	c, err := Load(NewViper())
	require.NoError(t, err)
	assert.False(t, c.ListenSocket())

	t.Setenv("VERCEL", "")
	t.Setenv("APP_ENV", "test")
	c, err = Load(NewViper())
	require.NoError(t, err)
	assert.False(t, c.ListenSocket())
}

func TestWarningsOnlyInProduction(t *testing.T) {
	c := Default()
	assert.Empty(t, c.Warnings())

	c.Env = Production
	ws := c.Warnings()
	require.Len(t, ws, 2)
	assert.Equal(t, KeyOpenAIKey, ws[0].Key)
	assert.Equal(t, KeyHostURL, ws[1].Key)
	assert.Contains(t, ws[1].Message, "http://localhost:3000")

	c.OpenAIKey = "sk-test"
	c.HostURL = "https://api.example.com"
	assert.Empty(t, c.Warnings())
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"APP_ENV must be one of":  func(c *Config) { c.Env = "staging" },
		"PORT out of range":       func(c *Config) { c.Port = 70000 },
		"GRAPHQL_PATH must start": func(c *Config) { c.GraphQLPath = "graphql" },
		"DOCS_PATH must start":    func(c *Config) { c.DocsPath = "docs" },
		`DOCS_PATH route "/graphql" is already used by GRAPHQL_PATH`:       func(c *Config) { c.DocsPath = c.GraphQLPath },
		`DOCS_PATH route "/graphql/" is already used by GRAPHQL_PATH`:      func(c *Config) { c.DocsPath = "/graphql/" },
		`GRAPHQL_PATH route "/" is already used by the fallback router`:    func(c *Config) { c.GraphQLPath = "/" },
		`GRAPHQL_PATH route "/health" is already used by the health check`: func(c *Config) { c.GraphQLPath = "/health" },
		`GRAPHQL_PATH route "/metrics" is already used by the metrics`:     func(c *Config) { c.GraphQLPath = "/metrics" },
		`DOCS_PATH route "/" is already used by the fallback router`:       func(c *Config) { c.DocsPath = "/" },
		`DOCS_PATH route "/health" is already used by the health check`:    func(c *Config) { c.DocsPath = "/health" },
		`DOCS_PATH route "/api.json" is already used by GRAPHQL_PATH`:      func(c *Config) { c.GraphQLPath, c.DocsPath = "/api.json", "/api" },
	}
	for msg, mutate := range tests {
		c := Default()
		mutate(c)
		assert.ErrorContains(t, c.Validate(), msg)
	}

	c := Default()
	c.GraphQLPath, c.DocsPath = "/api/graphql", "/api/docs"
	assert.NoError(t, c.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("GRAPHGATE_DOTENV_PROBE=from-file\nPORT_PROBE_KEPT=file\n"), 0o644))
	t.Setenv("PORT_PROBE_KEPT", "env")
	t.Cleanup(func() { os.Unsetenv("GRAPHGATE_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("GRAPHGATE_DOTENV_PROBE"))
	assert.Equal(t, "env", os.Getenv("PORT_PROBE_KEPT"))
}
