// Package builtin holds the schema and resolvers the gateway always serves,
// whatever other fragments are configured.
package builtin

import (
	"context"
	"embed"
	"io/fs"
	"time"

	fragment "github.com/hanpama/graphgate/internal/fragment"
)

//go:embed schema/*.graphql
var schemaFS embed.FS

// Schemas returns the built-in SDL fragments.
func Schemas() fragment.Loader {
	sub, err := fs.Sub(schemaFS, "schema")
	if err != nil {
		panic(err)
	}
	return fragment.NewFSLoader(sub, "builtin")
}

type Info struct {
	Name        string
	Version     string
	Environment string
	StartedAt   time.Time
	Fragments   []string
}

// Resolvers returns the resolver fragment backing the built-in schema.
// fragments is read when the gateway field is resolved, so the list can be
// filled in after composition.
func Resolvers(info *Info) fragment.ResolverFragment {
	return fragment.ResolverFragment{
		Name: "builtin",
		Fields: fragment.Resolvers{
			"Query": {
				"gateway": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
					return map[string]any{
						"name":          info.Name,
						"version":       info.Version,
						"environment":   info.Environment,
						"startedAt":     info.StartedAt.UTC().Format(time.RFC3339),
						"uptimeSeconds": time.Since(info.StartedAt).Seconds(),
						"fragments":     info.Fragments,
					}, nil
				},
				"ping": func(ctx context.Context, _ any, _ map[string]any) (any, error) {
					return true, nil
				},
			},
		},
	}
}
