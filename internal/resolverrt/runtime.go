package resolverrt

import (
	"context"
	"fmt"
	"runtime/debug"

	compose "github.com/hanpama/graphgate/internal/compose"
	executor "github.com/hanpama/graphgate/internal/executor"
	fragment "github.com/hanpama/graphgate/internal/fragment"
	language "github.com/hanpama/graphgate/internal/language"
	"github.com/michaelquigley/pfxlog"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 16

// Runtime implements executor.Runtime over the composed resolver map.
//
//   - Fields with a registered resolver are async and run in
//     BatchResolveAsync. Resolvers registered on an interface apply to every
//     implementing object type that has none of its own.
//   - Every other field is sync and projected from the source value.
//   - BatchResolveAsync runs up to the configured number of resolvers
//     concurrently. Results keep task order; a panicking resolver fails only
//     its own task.
type Runtime struct {
	schema      *language.Schema
	resolvers   *compose.ResolverMap
	concurrency int
}

var _ executor.Runtime = (*Runtime)(nil)

type Option func(*Runtime)

// WithConcurrency bounds the number of resolvers running at once within one
// batch. Values below 1 mean no limit.
func WithConcurrency(n int) Option {
	return func(r *Runtime) { r.concurrency = n }
}

func New(sch *language.Schema, resolvers *compose.ResolverMap, opts ...Option) *Runtime {
	r := &Runtime{schema: sch, resolvers: resolvers, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) IsAsync(objectType, field string) bool {
	return r.lookup(objectType, field) != nil
}

// ResolveSync projects field from source. It never calls resolvers.
func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	return project(ctx, source, field)
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if len(tasks) == 1 {
		results[0] = r.resolve(ctx, tasks[0])
		return results
	}

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i := range tasks {
		g.Go(func() error {
			results[i] = r.resolve(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) resolve(ctx context.Context, task executor.AsyncResolveTask) (res executor.AsyncResolveResult) {
	fn := r.lookup(task.ObjectType, task.Field)
	if fn == nil {
		return executor.AsyncResolveResult{Error: fmt.Errorf("no resolver registered for %s.%s", task.ObjectType, task.Field)}
	}
	if err := ctx.Err(); err != nil {
		return executor.AsyncResolveResult{Error: err}
	}
	defer func() {
		if p := recover(); p != nil {
			pfxlog.Logger().
				WithField("type", task.ObjectType).
				WithField("field", task.Field).
				Errorf("resolver panic: %v\n%s", p, debug.Stack())
			res = executor.AsyncResolveResult{Error: fmt.Errorf("resolver for %s.%s panicked: %v", task.ObjectType, task.Field, p)}
		}
	}()
	v, err := fn(ctx, task.Source, task.Args)
	return executor.AsyncResolveResult{Value: v, Error: err}
}

func (r *Runtime) lookup(objectType, field string) fragment.FieldResolver {
	if fn, ok := r.resolvers.Lookup(objectType, field); ok {
		return fn
	}
	def := r.schema.Types[objectType]
	if def == nil {
		return nil
	}
	for _, iface := range def.Interfaces {
		if fn, ok := r.resolvers.Lookup(iface, field); ok {
			return fn
		}
	}
	return nil
}

// ResolveType asks the fragment type resolver for abstractType first, then
// falls back to a "__typename" map key or a TypeName() method on the value.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if tr, ok := r.resolvers.TypeResolver(abstractType); ok {
		return tr(ctx, value)
	}
	switch v := value.(type) {
	case map[string]any:
		if name, ok := v["__typename"].(string); ok && name != "" {
			return name, nil
		}
	case interface{ TypeName() string }:
		return v.TypeName(), nil
	}
	if possible := r.schema.PossibleTypes[abstractType]; len(possible) == 1 {
		return possible[0].Name, nil
	}
	return "", fmt.Errorf("cannot determine the concrete type of %s value %T", abstractType, value)
}
