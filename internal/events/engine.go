package events

import "time"

// EngineStart is emitted once, when the first caller triggers the engine
// build.
type EngineStart struct{}

// EngineReady is emitted when the engine build finishes. Err is nil on
// success.
type EngineReady struct {
	Err      error
	Duration time.Duration
}

// DocsRendered is emitted after the documentation template was rendered for
// a request.
type DocsRendered struct {
	Origin string
	Format string
}
