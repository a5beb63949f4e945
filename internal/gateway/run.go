package gateway

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

const shutdownTimeout = 10 * time.Second

// Run listens on PORT until ctx ends. Outside serverless and test
// environments the engine is started right away; a failed start is logged
// once and the process keeps serving docs and health.
func (a *App) Run(ctx context.Context) error {
	if !a.cfg.ListenSocket() {
		return errors.Errorf("listening is disabled in %s mode", a.mode())
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Port))
	if err != nil {
		return errors.Wrapf(err, "listen on port %d", a.cfg.Port)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on a caller-provided listener.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	log := pfxlog.Logger()
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if a.cfg.ListenSocket() {
		go func() {
			// failures are logged by the lifecycle and answered by the gate
			_ = a.lifecycle.EnsureStarted(ctx)
		}()
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	a.banner(ln.Addr())

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

func (a *App) banner(addr net.Addr) {
	log := pfxlog.Logger()
	url := a.cfg.PublicURL()
	log.Infof("App started in port %s", portOf(addr))
	log.Infof("For API docs: %s%s", url, a.cfg.DocsPath)
	log.Infof("Open %s in browser.", url)
	log.Infof("For graphql: %s%s", url, a.cfg.GraphQLPath)
	for _, line := range a.cors.Describe() {
		log.Info(line)
	}
}

func (a *App) mode() string {
	if a.cfg.Serverless {
		return "serverless"
	}
	return a.cfg.Env
}

func portOf(addr net.Addr) string {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return fmt.Sprint(tcp.Port)
	}
	return addr.String()
}
