// Package gateway assembles the HTTP surface: composed schema, lazily
// started GraphQL engine, documentation, health and metrics endpoints,
// wrapped in the CORS, request gate and compression middleware.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	builtin "github.com/hanpama/graphgate/internal/builtin"
	compose "github.com/hanpama/graphgate/internal/compose"
	config "github.com/hanpama/graphgate/internal/config"
	cors "github.com/hanpama/graphgate/internal/cors"
	docs "github.com/hanpama/graphgate/internal/docs"
	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	fragment "github.com/hanpama/graphgate/internal/fragment"
	gate "github.com/hanpama/graphgate/internal/gate"
	introspection "github.com/hanpama/graphgate/internal/introspection"
	lifecycle "github.com/hanpama/graphgate/internal/lifecycle"
	metrics "github.com/hanpama/graphgate/internal/metrics"
	middleware "github.com/hanpama/graphgate/internal/middleware"
	resolverrt "github.com/hanpama/graphgate/internal/resolverrt"
	server "github.com/hanpama/graphgate/internal/server"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

type options struct {
	router    http.Handler
	loaders   []fragment.Loader
	resolvers []fragment.ResolverFragment
	version   string
	builtin   bool
}

type Option func(*options)

// WithRouter handles every request that no gateway endpoint claims.
func WithRouter(h http.Handler) Option { return func(o *options) { o.router = h } }

// WithSchemas adds schema fragment loaders after the built-in fragments
// and GRAPHQL_ROOT.
func WithSchemas(loaders ...fragment.Loader) Option {
	return func(o *options) { o.loaders = append(o.loaders, loaders...) }
}

// WithResolvers adds resolver fragments. Later fragments override earlier
// ones field by field.
func WithResolvers(frags ...fragment.ResolverFragment) Option {
	return func(o *options) { o.resolvers = append(o.resolvers, frags...) }
}

// WithRegistry adds every fragment of r, in registration order.
func WithRegistry(r *fragment.Registry) Option {
	return func(o *options) { o.resolvers = append(o.resolvers, r.Fragments()...) }
}

func WithVersion(v string) Option { return func(o *options) { o.version = v } }

// WithoutBuiltin leaves out the built-in gateway schema.
func WithoutBuiltin() Option { return func(o *options) { o.builtin = false } }

func newOptions(opts []Option) *options {
	o := &options{version: "dev", builtin: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *options) compose(ctx context.Context, cfg *config.Config) (*compose.ComposedSchema, error) {
	var loaders fragment.MultiLoader
	if o.builtin {
		loaders = append(loaders, builtin.Schemas())
	}
	if cfg.GraphQLRoot != "" {
		loaders = append(loaders, fragment.NewDirLoader(cfg.GraphQLRoot))
	}
	loaders = append(loaders, o.loaders...)

	frags, err := loaders.LoadSchemas(ctx)
	if err != nil {
		return nil, err
	}
	return compose.Compose(frags)
}

// ComposeSchema merges the schema New would serve, without building
// anything else. Only the schema options are used.
func ComposeSchema(ctx context.Context, cfg *config.Config, opts ...Option) (*compose.ComposedSchema, error) {
	return newOptions(opts).compose(ctx, cfg)
}

type App struct {
	cfg       *config.Config
	composed  *compose.ComposedSchema
	resolvers *compose.ResolverMap
	slot      *lifecycle.Slot
	lifecycle *lifecycle.Lifecycle
	docs      *docs.Renderer
	cors      *cors.Policy
	metrics   *metrics.Registry
	handler   http.Handler

	unsubscribe func()
}

// New validates cfg, composes the schema and wires the HTTP surface.
// Composition errors are returned as compose.CompositionError and no engine
// is created. The engine itself is only built by Run or by the first GraphQL
// request.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	log := pfxlog.Logger()

	info := &builtin.Info{Name: "graphgate", Version: o.version, Environment: cfg.Env, StartedAt: time.Now()}
	var resolverFrags []fragment.ResolverFragment
	if o.builtin {
		resolverFrags = append(resolverFrags, builtin.Resolvers(info))
	}
	resolverFrags = append(resolverFrags, o.resolvers...)

	composed, err := o.compose(ctx, cfg)
	if err != nil {
		return nil, err
	}
	info.Fragments = composed.Fragments
	resolvers := compose.ComposeResolvers(resolverFrags)
	for _, ov := range resolvers.Overrides {
		log.WithField("type", ov.Type).WithField("field", ov.Field).
			Debugf("resolver from %q overrides the one from %q", ov.Winner, ov.Previous)
	}
	if cfg.Env == config.Development {
		log.Infof("\n=== GraphQL Schema Start ===\n\n%s\n=== GraphQL Schema End ===\n", composed.SDL())
	}
	for _, w := range cfg.Warnings() {
		log.Warnf("WARNING: %s", w)
	}

	tpl, err := docs.LoadTemplate(cfg.DocsTemplate)
	if err != nil {
		return nil, err
	}

	if eventbus.Global() == nil {
		eventbus.Use(eventbus.New())
	}
	reg := metrics.New()

	a := &App{
		cfg:         cfg,
		composed:    composed,
		resolvers:   resolvers,
		slot:        &lifecycle.Slot{},
		docs:        docs.NewRenderer(tpl, cfg.HostURL),
		cors:        cors.Resolve(cfg.CORS),
		metrics:     reg,
		unsubscribe: reg.Subscribe(),
	}
	a.lifecycle = lifecycle.New(a.buildEngine, a.slot)
	a.handler = a.routes(o.router)
	return a, nil
}

// buildEngine runs once per process, from lifecycle.EnsureStarted.
func (a *App) buildEngine(ctx context.Context) (http.Handler, error) {
	sch := a.composed.Schema
	if err := compose.CheckResolvers(sch, a.resolvers); err != nil {
		return nil, err
	}
	if err := a.resolvers.Init(ctx); err != nil {
		return nil, err
	}
	rt := introspection.Wrap(
		resolverrt.New(sch, a.resolvers, resolverrt.WithConcurrency(a.cfg.MaxConcurrency)),
		sch,
		a.cfg.Introspection,
	)
	opts := []server.Option{
		server.WithTimeout(a.cfg.Timeout),
		server.WithMaxBodyBytes(a.cfg.MaxBodyBytes),
		server.WithGraphiQL(a.cfg.Playground),
	}
	if a.cfg.Env == config.Development {
		opts = append(opts, server.WithPretty())
	}
	return server.New(rt, sch, opts...), nil
}

func (a *App) routes(router http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.DocsPath, a.docs.HTMLHandler())
	mux.Handle(a.cfg.DocsPath+".json", a.docs.JSONHandler())
	mux.HandleFunc("/health", a.health)
	mux.Handle("/metrics", a.metrics.Handler())
	mux.Handle(a.cfg.GraphQLPath, a.slot)
	mux.Handle(a.cfg.GraphQLPath+"/", exactSlash(a.cfg.GraphQLPath, a.slot, router))
	if router == nil {
		router = http.NotFoundHandler()
	}
	mux.Handle("/", router)

	// innermost -> outermost
	var h http.Handler = mux
	h = middleware.NewCompressionHandler(h)
	h = gate.New(a.cfg.GraphQLPath, a.lifecycle).Middleware(h)
	h = a.cors.Handler(h)
	h = middleware.NewRecoveryHandler(h)
	h = middleware.NewRequestHandler(h)
	return h
}

// exactSlash sends "<path>/" to the engine and deeper paths to fallback.
func exactSlash(path string, engine, fallback http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gate.IsEngineEntryPath(path, r.URL.Path) {
			engine.ServeHTTP(w, r)
			return
		}
		if fallback == nil {
			http.NotFound(w, r)
			return
		}
		fallback.ServeHTTP(w, r)
	})
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	state := a.lifecycle.State()
	status := http.StatusOK
	body := map[string]any{"status": "ok", "engine": state.String()}
	if state == lifecycle.Failed {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["error"] = a.lifecycle.Err().Error()
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Handler is the complete HTTP surface. Serverless hosts mount it directly.
func (a *App) Handler() http.Handler { return a.handler }

func (a *App) Lifecycle() *lifecycle.Lifecycle { return a.lifecycle }

func (a *App) Schema() *compose.ComposedSchema { return a.composed }

func (a *App) Docs() *docs.Renderer { return a.docs }

func (a *App) Metrics() *metrics.Registry { return a.metrics }

// Close detaches the metrics subscribers.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// EnsureStarted starts the engine now instead of on the first request.
func (a *App) EnsureStarted(ctx context.Context) error {
	return errors.WithStack(a.lifecycle.EnsureStarted(ctx))
}
