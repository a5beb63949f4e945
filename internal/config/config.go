// Package config reads the gateway settings from the environment. A .env
// file in the working directory is loaded first and never overrides
// variables that are already set.
package config

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	cors "github.com/hanpama/graphgate/internal/cors"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	Development = "development"
	Test        = "test"
	Production  = "production"
)

// Environment keys.
const (
	KeyPort           = "PORT"
	KeyAppEnv         = "APP_ENV"
	KeyServerless     = "SERVERLESS"
	KeyVercel         = "VERCEL"
	KeyHostURL        = "HOST_URL"
	KeyOpenAIKey      = "OPENAI_API_KEY"
	KeyCORSOrigins    = "CORS_ORIGINS"
	KeyCORSMethods    = "CORS_METHODS"
	KeyCORSHeaders    = "CORS_HEADERS"
	KeyCORSCreds      = "CORS_CREDENTIALS"
	KeyGraphQLRoot    = "GRAPHQL_ROOT"
	KeyGraphQLPath    = "GRAPHQL_PATH"
	KeyIntrospection  = "GRAPHQL_INTROSPECTION"
	KeyPlayground     = "GRAPHQL_PLAYGROUND"
	KeyTimeout        = "GRAPHQL_TIMEOUT"
	KeyMaxBodyBytes   = "GRAPHQL_MAX_BODY_BYTES"
	KeyMaxConcurrency = "GRAPHQL_MAX_CONCURRENCY"
	KeyDocsPath       = "DOCS_PATH"
	KeyDocsTemplate   = "DOCS_TEMPLATE"
	KeyLogLevel       = "LOG_LEVEL"
	KeyLogFormat      = "LOG_FORMAT"
	KeyOtelEndpoint   = "OTEL_ENDPOINT"
	KeyOtelService    = "OTEL_SERVICE"
)

var defaults = map[string]any{
	KeyPort:           3000,
	KeyAppEnv:         Development,
	KeyServerless:     false,
	KeyCORSMethods:    strings.Join(cors.DefaultMethods, ","),
	KeyCORSHeaders:    strings.Join(cors.DefaultHeaders, ","),
	KeyGraphQLPath:    "/graphql",
	KeyIntrospection:  true,
	KeyPlayground:     true,
	KeyTimeout:        "10s",
	KeyMaxBodyBytes:   1 << 20,
	KeyMaxConcurrency: 16,
	KeyDocsPath:       "/api-docs",
	KeyLogLevel:       "info",
	KeyLogFormat:      "text",
	KeyOtelService:    "graphgate",
}

type Config struct {
	Port       int
	Env        string
	Serverless bool
	HostURL    string
	OpenAIKey  string

	CORS cors.Config

	GraphQLRoot    string
	GraphQLPath    string
	Introspection  bool
	Playground     bool
	Timeout        time.Duration
	MaxBodyBytes   int64
	MaxConcurrency int

	DocsPath     string
	DocsTemplate string

	LogLevel  string
	LogFormat string

	OtelEndpoint string
	OtelService  string
}

// Warning is a missing optional setting. The gateway keeps running with
// the documented fallback.
type Warning struct {
	Key     string
	Message string
}

func (w Warning) String() string { return w.Key + ": " + w.Message }

// NewViper returns a viper instance with every key defaulted and bound to
// the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	return v
}

// LoadDotEnv loads the given files (".env" when none) into the process
// environment. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return errors.Wrapf(err, "failed to load %s", f)
		}
	}
	return nil
}

// Load reads and validates the configuration from v.
func Load(v *viper.Viper) (*Config, error) {
	c := &Config{
		Port:       v.GetInt(KeyPort),
		Env:        strings.ToLower(strings.TrimSpace(v.GetString(KeyAppEnv))),
		Serverless: v.GetBool(KeyServerless) || v.GetString(KeyVercel) != "",
		HostURL:    strings.TrimRight(strings.TrimSpace(v.GetString(KeyHostURL)), "/"),
		OpenAIKey:  v.GetString(KeyOpenAIKey),
		CORS: cors.Config{
			Origins:     v.GetString(KeyCORSOrigins),
			Methods:     v.GetString(KeyCORSMethods),
			Headers:     v.GetString(KeyCORSHeaders),
			Credentials: v.GetString(KeyCORSCreds),
		},
		GraphQLRoot:    v.GetString(KeyGraphQLRoot),
		GraphQLPath:    v.GetString(KeyGraphQLPath),
		Introspection:  v.GetBool(KeyIntrospection),
		Playground:     v.GetBool(KeyPlayground),
		Timeout:        v.GetDuration(KeyTimeout),
		MaxBodyBytes:   v.GetInt64(KeyMaxBodyBytes),
		MaxConcurrency: v.GetInt(KeyMaxConcurrency),
		DocsPath:       v.GetString(KeyDocsPath),
		DocsTemplate:   v.GetString(KeyDocsTemplate),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		OtelEndpoint:   v.GetString(KeyOtelEndpoint),
		OtelService:    v.GetString(KeyOtelService),
	}
	if c.Env == "" {
		c.Env = Development
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Default returns the configuration with every key at its default value.
func Default() *Config {
	c, err := Load(NewViper())
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Config) Validate() error {
	switch c.Env {
	case Development, Test, Production:
	default:
		return errors.Errorf("%s must be one of development, test or production, got %q", KeyAppEnv, c.Env)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Errorf("%s out of range: %d", KeyPort, c.Port)
	}
	if !strings.HasPrefix(c.GraphQLPath, "/") {
		return errors.Errorf("%s must start with /, got %q", KeyGraphQLPath, c.GraphQLPath)
	}
	if !strings.HasPrefix(c.DocsPath, "/") {
		return errors.Errorf("%s must start with /, got %q", KeyDocsPath, c.DocsPath)
	}
	if err := c.checkRoutes(); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return errors.Errorf("%s must not be negative", KeyTimeout)
	}
	return nil
}

// checkRoutes rejects paths that would claim a route the gateway already
// serves. "/" belongs to the fallback router.
func (c *Config) checkRoutes() error {
	owners := map[string]string{"/": "the fallback router", "/health": "the health check", "/metrics": "the metrics endpoint"}
	claims := []struct{ key, path string }{
		{KeyGraphQLPath, c.GraphQLPath},
		{KeyGraphQLPath, c.GraphQLPath + "/"},
		{KeyDocsPath, c.DocsPath},
		{KeyDocsPath, c.DocsPath + ".json"},
	}
	for _, cl := range claims {
		if owner, ok := owners[cl.path]; ok && owner != cl.key {
			return errors.Errorf("%s route %q is already used by %s", cl.key, cl.path, owner)
		}
		owners[cl.path] = cl.key
	}
	return nil
}

func (c *Config) Production() bool { return c.Env == Production }

// ListenSocket reports whether the process binds its own listener.
func (c *Config) ListenSocket() bool { return c.Env != Test && !c.Serverless }

// PublicURL is HOST_URL, or the local address when unset.
func (c *Config) PublicURL() string {
	if c.HostURL != "" {
		return c.HostURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// Warnings lists missing optional settings. Outside production it is always
// empty.
func (c *Config) Warnings() []Warning {
	if !c.Production() {
		return nil
	}
	var out []Warning
	if c.OpenAIKey == "" {
		out = append(out, Warning{Key: KeyOpenAIKey, Message: "not set; features that need it are unavailable"})
	}
	if c.HostURL == "" {
		out = append(out, Warning{Key: KeyHostURL, Message: fmt.Sprintf("not set; defaulting to %s. Ensure this matches your public domain", c.PublicURL())})
	}
	return out
}
