package lifecycle

import (
	"net/http"
	"sync/atomic"

	server "github.com/hanpama/graphgate/internal/server"
	"github.com/pkg/errors"
)

var ErrAlreadyBound = errors.New("engine handler already bound")

// Slot is the one place the engine handler is mounted. It is registered on
// the router once, before the engine exists, and bound at most once.
type Slot struct {
	h atomic.Pointer[http.Handler]
}

func (s *Slot) Bind(h http.Handler) error {
	if !s.h.CompareAndSwap(nil, &h) {
		return ErrAlreadyBound
	}
	return nil
}

func (s *Slot) Bound() bool { return s.h.Load() != nil }

func (s *Slot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h := s.h.Load()
	if h == nil {
		server.WriteError(w, http.StatusServiceUnavailable, "engine is not ready")
		return
	}
	(*h).ServeHTTP(w, r)
}
