package middleware

import (
	"net/http"
	"runtime/debug"

	reqid "github.com/hanpama/graphgate/internal/reqid"
	"github.com/michaelquigley/pfxlog"
)

// NewRecoveryHandler turns a panic in next into a 500 response and logs the
// stack. http.ErrAbortHandler is re-panicked so net/http can abort the
// connection.
func NewRecoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			panicVal := recover()
			if panicVal == nil {
				return
			}
			if panicVal == http.ErrAbortHandler {
				panic(panicVal)
			}
			rid, _ := reqid.FromContext(r.Context())
			pfxlog.Logger().
				WithField("requestId", rid).
				WithField("path", r.URL.Path).
				Errorf("panic caught by server handler: %v\n%s", panicVal, debug.Stack())
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
