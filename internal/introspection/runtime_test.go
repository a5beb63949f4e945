package introspection

import (
	"context"
	"testing"

	compose "github.com/hanpama/graphgate/internal/compose"
	executor "github.com/hanpama/graphgate/internal/executor"
	fragment "github.com/hanpama/graphgate/internal/fragment"
	language "github.com/hanpama/graphgate/internal/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopRuntime implements executor.Runtime with no behaviour.
type noopRuntime struct{}

func (noopRuntime) IsAsync(string, string) bool { return false }

func (noopRuntime) ResolveSync(context.Context, string, string, any, map[string]any) (any, error) {
	return nil, nil
}

func (noopRuntime) BatchResolveAsync(context.Context, []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return nil
}

func (noopRuntime) ResolveType(context.Context, string, any) (string, error) {
	return "", nil
}

func (noopRuntime) SerializeLeafValue(_ context.Context, _ string, value any) (any, error) {
	return value, nil
}

func buildSchema(t *testing.T) *language.Schema {
	t.Helper()
	cs, err := compose.Compose([]fragment.SchemaFragment{{Name: "test.graphql", Source: `
		type Query { hello: String user(id: ID!): User }
		"A person"
		type User { id: ID! tags: [String!]! old: String @deprecated(reason: "use id") role: Role }
		enum Role { ADMIN GUEST @deprecated }
	`}})
	require.NoError(t, err)
	return cs.Schema
}

func execute(t *testing.T, rt executor.Runtime, sch *language.Schema, q string) *executor.ExecutionResult {
	t.Helper()
	doc, errs := language.LoadQuery(sch, q)
	require.Empty(t, errs)
	return executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)
}

func TestIntrospectionEnabled(t *testing.T) {
	sch := buildSchema(t)
	res := execute(t, Wrap(noopRuntime{}, sch, true), sch, "{__schema{queryType{name} mutationType{name}}}")
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{
		"__schema": map[string]any{
			"queryType":    map[string]any{"name": "Query"},
			"mutationType": nil,
		},
	}, res.Data)
}

func TestIntrospectionTypeRefs(t *testing.T) {
	sch := buildSchema(t)
	res := execute(t, Wrap(noopRuntime{}, sch, true), sch, `{
		__type(name: "User") {
			kind name description
			fields { name isDeprecated type { kind name ofType { kind name ofType { kind name } } } }
		}
	}`)
	require.Empty(t, res.Errors)

	typ := res.Data.(map[string]any)["__type"].(map[string]any)
	assert.Equal(t, "OBJECT", typ["kind"])
	assert.Equal(t, "A person", typ["description"])

	fields := typ["fields"].([]any)
	require.Len(t, fields, 3, "deprecated fields are hidden by default")
	byName := map[string]map[string]any{}
	for _, f := range fields {
		m := f.(map[string]any)
		byName[m["name"].(string)] = m
	}
	assert.Equal(t, map[string]any{
		"kind": "NON_NULL",
		"name": nil,
		"ofType": map[string]any{
			"kind":   "LIST",
			"name":   nil,
			"ofType": map[string]any{"kind": "NON_NULL", "name": nil},
		},
	}, byName["tags"]["type"])
	assert.Equal(t, map[string]any{"kind": "ENUM", "name": "Role", "ofType": nil}, byName["role"]["type"])
}

func TestIntrospectionDeprecatedAndEnums(t *testing.T) {
	sch := buildSchema(t)
	res := execute(t, Wrap(noopRuntime{}, sch, true), sch, `{
		__type(name: "Role") { enumValues(includeDeprecated: true) { name isDeprecated deprecationReason } }
		user: __type(name: "User") { fields(includeDeprecated: true) { name deprecationReason } }
		query: __type(name: "Query") { fields { name args { name defaultValue type { kind } } } }
		missing: __type(name: "Nope") { name }
	}`)
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]any)

	assert.Equal(t, []any{
		map[string]any{"name": "ADMIN", "isDeprecated": false, "deprecationReason": nil},
		map[string]any{"name": "GUEST", "isDeprecated": true, "deprecationReason": "No longer supported"},
	}, data["__type"].(map[string]any)["enumValues"])

	var reason any
	for _, f := range data["user"].(map[string]any)["fields"].([]any) {
		if m := f.(map[string]any); m["name"] == "old" {
			reason = m["deprecationReason"]
		}
	}
	assert.Equal(t, "use id", reason)

	queryFields := data["query"].(map[string]any)["fields"].([]any)
	require.Len(t, queryFields, 2, "meta fields are not listed")
	assert.Nil(t, data["missing"])
}

func TestIntrospectionDisabled(t *testing.T) {
	sch := buildSchema(t)
	res := execute(t, Wrap(noopRuntime{}, sch, false), sch, "{__schema{queryType{name}}}")
	require.Len(t, res.Errors, 1)
	assert.Equal(t, ErrDisabled.Error(), res.Errors[0].Message)
	assert.Nil(t, res.Data)
}

func TestTypenameField(t *testing.T) {
	sch := buildSchema(t)
	// __typename works without the wrapper
	res := execute(t, noopRuntime{}, sch, "{__typename}")
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"__typename": "Query"}, res.Data)
}
