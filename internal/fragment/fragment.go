package fragment

import (
	"context"
)

// SchemaFragment is one independently authored unit of SDL.
type SchemaFragment struct {
	// Name identifies the fragment in composition errors, usually a relative
	// file path.
	Name   string
	Source string
}

// FieldResolver produces the raw value of a single field.
type FieldResolver func(ctx context.Context, source any, args map[string]any) (any, error)

// TypeResolver returns the concrete object type name of a value of an
// interface or union type.
type TypeResolver func(ctx context.Context, value any) (string, error)

// ScalarSerializer converts a custom scalar value into a JSON-safe value.
type ScalarSerializer func(value any) (any, error)

// Resolvers maps type name -> field name -> resolver.
type Resolvers map[string]map[string]FieldResolver

// Set registers fn for typ.field, creating the inner map when needed.
func (r Resolvers) Set(typ, field string, fn FieldResolver) {
	fields := r[typ]
	if fields == nil {
		fields = map[string]FieldResolver{}
		r[typ] = fields
	}
	fields[field] = fn
}

// ResolverFragment is a set of handlers contributed by one module. Several
// fragments may provide handlers for disjoint fields of the same type.
type ResolverFragment struct {
	Name          string
	Fields        Resolvers
	TypeResolvers map[string]TypeResolver
	Scalars       map[string]ScalarSerializer

	// Init runs once while the engine starts. A failing Init fails the
	// startup.
	Init func(ctx context.Context) error
}

// Loader supplies schema fragments in a stable order.
type Loader interface {
	LoadSchemas(ctx context.Context) ([]SchemaFragment, error)
}

// InMemoryLoader serves a fixed list of fragments.
type InMemoryLoader []SchemaFragment

func (l InMemoryLoader) LoadSchemas(ctx context.Context) ([]SchemaFragment, error) {
	out := make([]SchemaFragment, len(l))
	copy(out, l)
	return out, nil
}

// MultiLoader concatenates the output of several loaders, in order.
type MultiLoader []Loader

func (l MultiLoader) LoadSchemas(ctx context.Context) ([]SchemaFragment, error) {
	var out []SchemaFragment
	for _, loader := range l {
		frags, err := loader.LoadSchemas(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, frags...)
	}
	return out, nil
}
