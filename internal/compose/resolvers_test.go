package compose

import (
	"context"
	"testing"

	fragment "github.com/hanpama/graphgate/internal/fragment"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constResolver(v any) fragment.FieldResolver {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

func call(t *testing.T, m *ResolverMap, typ, field string) any {
	t.Helper()
	fn, ok := m.Lookup(typ, field)
	require.True(t, ok, "no resolver for %s.%s", typ, field)
	v, err := fn(context.Background(), nil, nil)
	require.NoError(t, err)
	return v
}

func TestComposeResolversLastWriteWins(t *testing.T) {
	m := ComposeResolvers([]fragment.ResolverFragment{
		{Name: "F1", Fields: fragment.Resolvers{"Query": {"field": constResolver("one"), "other": constResolver("keep")}}},
		{Name: "F2", Fields: fragment.Resolvers{"Query": {"field": constResolver("two")}}},
	})

	assert.Equal(t, "two", call(t, m, "Query", "field"))
	assert.Equal(t, "keep", call(t, m, "Query", "other"))
	assert.Equal(t, "F2", m.Origin("Query", "field"))
	assert.Equal(t, []Override{{Type: "Query", Field: "field", Previous: "F1", Winner: "F2"}}, m.Overrides)
	assert.Equal(t, 2, m.Len())
}

func TestComposeResolversDisjointFields(t *testing.T) {
	m := ComposeResolvers([]fragment.ResolverFragment{
		{Name: "users", Fields: fragment.Resolvers{"Query": {"users": constResolver(1)}}},
		{Name: "posts", Fields: fragment.Resolvers{"Query": {"posts": constResolver(2)}}},
	})
	assert.Equal(t, 1, call(t, m, "Query", "users"))
	assert.Equal(t, 2, call(t, m, "Query", "posts"))
	assert.Empty(t, m.Overrides)
	assert.False(t, m.Has("Query", "missing"))
}

func TestComposeResolversTypeResolversAndScalars(t *testing.T) {
	first := func(context.Context, any) (string, error) { return "A", nil }
	second := func(context.Context, any) (string, error) { return "B", nil }
	m := ComposeResolvers([]fragment.ResolverFragment{
		{Name: "F1", TypeResolvers: map[string]fragment.TypeResolver{"Node": first}},
		{Name: "F2", TypeResolvers: map[string]fragment.TypeResolver{"Node": second},
			Scalars: map[string]fragment.ScalarSerializer{"Date": func(v any) (any, error) { return v, nil }}},
	})
	tr, ok := m.TypeResolver("Node")
	require.True(t, ok)
	name, err := tr(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "B", name)

	_, ok = m.Scalar("Date")
	assert.True(t, ok)
	assert.Len(t, m.Overrides, 1)
}

func TestResolverMapInitOrderAndFailure(t *testing.T) {
	var order []string
	m := ComposeResolvers([]fragment.ResolverFragment{
		{Name: "a", Init: func(context.Context) error { order = append(order, "a"); return nil }},
		{Name: "b", Init: func(context.Context) error { order = append(order, "b"); return errors.New("boom") }},
		{Name: "c", Init: func(context.Context) error { order = append(order, "c"); return nil }},
	})
	err := m.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestCheckResolvers(t *testing.T) {
	cs, err := Compose(frags(`
		type Query { user: User node: Node }
		type User implements Node { id: ID! }
		interface Node { id: ID! }
		scalar Date
	`))
	require.NoError(t, err)

	ok := ComposeResolvers([]fragment.ResolverFragment{{
		Name:          "good",
		Fields:        fragment.Resolvers{"Query": {"user": constResolver(nil)}},
		TypeResolvers: map[string]fragment.TypeResolver{"Node": func(context.Context, any) (string, error) { return "User", nil }},
		Scalars:       map[string]fragment.ScalarSerializer{"Date": func(v any) (any, error) { return v, nil }},
	}})
	require.NoError(t, CheckResolvers(cs.Schema, ok))

	bad := ComposeResolvers([]fragment.ResolverFragment{{
		Name:          "bad",
		Fields:        fragment.Resolvers{"Query": {"nope": constResolver(nil)}, "Ghost": {"x": constResolver(nil)}},
		TypeResolvers: map[string]fragment.TypeResolver{"User": func(context.Context, any) (string, error) { return "User", nil }},
		Scalars:       map[string]fragment.ScalarSerializer{"User": func(v any) (any, error) { return v, nil }},
	}})
	err = CheckResolvers(cs.Schema, bad)
	ce := compositionError(t, err)
	require.Len(t, ce, 4)
	assert.Contains(t, ce[0].Message, "Ghost.x")
	assert.Contains(t, ce[1].Message, "Query.nope")
	assert.Equal(t, "bad", ce[0].Fragment)
}
