package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/hanpama/graphgate/internal/config"
	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	gateway "github.com/hanpama/graphgate/internal/gateway"
	otel "github.com/hanpama/graphgate/internal/otel"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root)
		},
	}

	f := cmd.Flags()
	f.Int("port", 3000, "listen port ("+config.KeyPort+")")
	f.String("host-url", "", "public base URL ("+config.KeyHostURL+")")
	f.String("graphql-path", "/graphql", "GraphQL endpoint path ("+config.KeyGraphQLPath+")")
	f.Bool("introspection", true, "allow introspection queries ("+config.KeyIntrospection+")")
	f.Bool("playground", true, "serve GraphiQL to browsers ("+config.KeyPlayground+")")
	f.Duration("timeout", 10*time.Second, "per-request timeout, e.g. 10s ("+config.KeyTimeout+")")
	f.String("docs-path", "/api-docs", "documentation page path ("+config.KeyDocsPath+")")
	f.String("otel-endpoint", "", "OTLP gRPC collector endpoint ("+config.KeyOtelEndpoint+")")
	f.String("otel-service", "graphgate", "OpenTelemetry service name ("+config.KeyOtelService+")")
	mustBind(root.v, f, map[string]string{
		"port":          config.KeyPort,
		"host-url":      config.KeyHostURL,
		"graphql-path":  config.KeyGraphQLPath,
		"introspection": config.KeyIntrospection,
		"playground":    config.KeyPlayground,
		"timeout":       config.KeyTimeout,
		"docs-path":     config.KeyDocsPath,
		"otel-endpoint": config.KeyOtelEndpoint,
		"otel-service":  config.KeyOtelService,
	})
	return cmd
}

func runServe(ctx context.Context, root *rootOptions) error {
	cfg, err := root.config()
	if err != nil {
		return err
	}
	if !cfg.ListenSocket() {
		return errors.Errorf("serve needs a listening environment; %s=%s, serverless=%t", config.KeyAppEnv, cfg.Env, cfg.Serverless)
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(cfg.OtelEndpoint, cfg.OtelService)
	if err != nil {
		return errors.Wrap(err, "otel setup")
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			pfxlog.Logger().WithError(err).Warn("otel shutdown")
		}
	}()

	app, err := gateway.New(ctx, cfg, gateway.WithVersion(version))
	if err != nil {
		return errors.Wrap(err, "build gateway")
	}
	defer app.Close()
	return app.Run(ctx)
}
