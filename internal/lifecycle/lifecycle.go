// Package lifecycle owns the single protocol engine of the process. The
// engine is built at most once, on the first EnsureStarted call; every
// concurrent caller waits for that one attempt and sees its outcome.
package lifecycle

import (
	"context"
	"net/http"
	"sync"
	"time"

	eventbus "github.com/hanpama/graphgate/internal/eventbus"
	events "github.com/hanpama/graphgate/internal/events"
	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
)

type State int32

const (
	NotStarted State = iota
	Starting
	Started
	// Failed is terminal: a failed build is never retried by this process.
	Failed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Starting:
		return "starting"
	case Started:
		return "started"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// BuildFunc constructs the engine handler. ctx is detached from any request.
type BuildFunc func(ctx context.Context) (http.Handler, error)

// StartupError is returned to every caller of EnsureStarted after the build
// or bind step failed.
type StartupError struct {
	Err error
}

func (e *StartupError) Error() string { return "engine startup failed: " + e.Err.Error() }
func (e *StartupError) Unwrap() error { return e.Err }

type Lifecycle struct {
	build BuildFunc
	slot  *Slot

	mu    sync.Mutex
	state State
	done  chan struct{}
	err   error
}

func New(build BuildFunc, slot *Slot) *Lifecycle {
	return &Lifecycle{build: build, slot: slot}
}

// EnsureStarted returns nil once the engine is bound to the slot. The first
// call starts the build; later calls join it. A caller whose ctx ends first
// gets ctx.Err() while the build keeps running for everyone else.
func (l *Lifecycle) EnsureStarted(ctx context.Context) error {
	l.mu.Lock()
	switch l.state {
	case Started:
		l.mu.Unlock()
		return nil
	case Failed:
		err := l.err
		l.mu.Unlock()
		return err
	case NotStarted:
		l.state = Starting
		l.done = make(chan struct{})
		go l.run(context.WithoutCancel(ctx))
	}
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
		return l.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run reports the outcome to subscribers before waiters are released, so a
// caller that saw EnsureStarted return also sees its effects.
func (l *Lifecycle) run(ctx context.Context) {
	start := time.Now()
	eventbus.Publish(ctx, events.EngineStart{})
	log := pfxlog.Logger()
	log.Info("starting engine")

	err := l.buildAndBind(ctx)
	elapsed := time.Since(start)
	if err != nil {
		log.WithError(err).Error("engine startup failed")
	} else {
		log.WithField("duration", elapsed).Info("engine started")
	}
	eventbus.Publish(ctx, events.EngineReady{Err: err, Duration: elapsed})

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = Failed
		l.err = &StartupError{Err: err}
	} else {
		l.state = Started
	}
	close(l.done)
}

func (l *Lifecycle) buildAndBind(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("engine build panicked: %v", p)
		}
	}()
	h, err := l.build(ctx)
	if err != nil {
		return err
	}
	if h == nil {
		return errors.New("engine build returned no handler")
	}
	return l.slot.Bind(h)
}

// Ready reports whether the engine serves requests.
func (l *Lifecycle) Ready() bool { return l.State() == Started }

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Err returns the StartupError of a failed build, or nil.
func (l *Lifecycle) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}
