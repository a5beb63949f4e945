package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"

	lifecycle "github.com/hanpama/graphgate/internal/lifecycle"
	server "github.com/hanpama/graphgate/internal/server"
	"github.com/michaelquigley/pfxlog"
)

// IsEngineEntryPath reports whether path targets the engine mounted at entry.
// A single trailing slash is tolerated.
func IsEngineEntryPath(entry, path string) bool {
	if path == entry {
		return true
	}
	return strings.HasSuffix(path, "/") && path[:len(path)-1] == entry && entry != ""
}

// Starter is the part of the engine lifecycle the gate needs.
type Starter interface {
	EnsureStarted(ctx context.Context) error
}

type Gate struct {
	entry   string
	starter Starter
}

func New(entry string, starter Starter) *Gate {
	return &Gate{entry: entry, starter: starter}
}

// Middleware holds requests for the engine entry path until the engine has
// started. Every other request passes straight through.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsEngineEntryPath(g.entry, r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}
		if err := g.starter.EnsureStarted(r.Context()); err != nil {
			var se *lifecycle.StartupError
			if errors.As(err, &se) {
				server.WriteError(w, http.StatusServiceUnavailable, "GraphQL engine is unavailable: startup failed")
				return
			}
			pfxlog.Logger().WithField("path", r.URL.Path).Debugf("request abandoned while waiting for the engine: %v", err)
			server.WriteError(w, http.StatusServiceUnavailable, "GraphQL engine is starting")
			return
		}
		next.ServeHTTP(w, r)
	})
}
