package middleware

import (
	"net/http"
	"time"

	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	events "github.com/hanpama/graphgate/internal/events"
	reqid "github.com/hanpama/graphgate/internal/reqid"
)

// NewRequestHandler attaches a request id to the context and the
// X-Request-ID response header, and publishes HTTPStart and HTTPFinish
// around next.
func NewRequestHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, rid := reqid.FromRequest(r)
		r = r.WithContext(ctx)
		w.Header().Set(reqid.Header, rid)

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		eventbus.Publish(ctx, events.HTTPStart{Request: r})
		defer func() {
			eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: sw.Status(), Duration: time.Since(start)})
		}()
		next.ServeHTTP(sw, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusWriter) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(p)
}

func (s *statusWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusWriter) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (s *statusWriter) Status() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}
