package resolverrt

import (
	"context"
	"math"
	"testing"

	fragment "github.com/hanpama/graphgate/internal/fragment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type role string

func TestSerializeLeafValue(t *testing.T) {
	rt, _ := newRuntime(t, []fragment.ResolverFragment{{
		Name: "scalars",
		Scalars: map[string]fragment.ScalarSerializer{
			"Date": func(v any) (any, error) { return "2024-01-02", nil },
		},
	}})
	ctx := context.Background()
	name := "Ann"

	tests := []struct {
		typ   string
		in    any
		want  any
		fails bool
	}{
		{typ: "Int", in: int64(7), want: 7},
		{typ: "Int", in: float64(3), want: 3},
		{typ: "Int", in: 3.5, fails: true},
		{typ: "Int", in: int64(math.MaxInt32) + 1, fails: true},
		{typ: "Int", in: "12", want: 12},
		{typ: "Float", in: 2, want: float64(2)},
		{typ: "Float", in: math.Inf(1), fails: true},
		{typ: "String", in: &name, want: "Ann"},
		{typ: "String", in: 10, want: "10"},
		{typ: "Boolean", in: true, want: true},
		{typ: "Boolean", in: "yes", fails: true},
		{typ: "ID", in: 42, want: "42"},
		{typ: "ID", in: "abc", want: "abc"},
		{typ: "Role", in: role("ADMIN"), want: "ADMIN"},
		{typ: "Role", in: "OWNER", fails: true},
		{typ: "Date", in: "anything", want: "2024-01-02"},
		{typ: "Unknown", in: []byte("hi"), want: "aGk="},
		{typ: "String", in: nil, want: nil},
	}
	for _, tt := range tests {
		got, err := rt.SerializeLeafValue(ctx, tt.typ, tt.in)
		if tt.fails {
			assert.Error(t, err, "%s %v", tt.typ, tt.in)
			continue
		}
		require.NoError(t, err, "%s %v", tt.typ, tt.in)
		assert.Equal(t, tt.want, got, "%s %v", tt.typ, tt.in)
	}
}

type article struct {
	Title   string `json:"headline"`
	Summary string
	hidden  string
}

func (a article) Slug() string { return "slug" }

func (a *article) Words(ctx context.Context) (int, error) { return 3, nil }

func TestProject(t *testing.T) {
	ctx := context.Background()
	a := &article{Title: "T", Summary: "S", hidden: "h"}

	cases := map[string]any{
		"headline": "T",
		"summary":  "S",
		"slug":     "slug",
		"words":    3,
		"hidden":   nil,
		"missing":  nil,
	}
	for field, want := range cases {
		got, err := project(ctx, a, field)
		require.NoError(t, err, field)
		assert.Equal(t, want, got, field)
	}

	got, err := project(ctx, map[string]string{"k": "v"}, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	var nilPtr *article
	got, err = project(ctx, nilPtr, "headline")
	require.NoError(t, err)
	assert.Nil(t, got)
}
