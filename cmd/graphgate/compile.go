package main

import (
	"encoding/json"
	"fmt"
	"os"

	config "github.com/hanpama/graphgate/internal/config"
	docs "github.com/hanpama/graphgate/internal/docs"
	gateway "github.com/hanpama/graphgate/internal/gateway"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCompileSDLCommand(root *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compile-sdl",
		Short: "Merge and validate the schema fragments into one SDL document",
		Long: `Merge the built-in fragments and the fragments under the GraphQL root
into one schema. Validation always runs; any violation is an error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			cs, err := gateway.ComposeSchema(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write([]byte(cs.SDL()))
				return err
			}
			return errors.Wrapf(os.WriteFile(out, []byte(cs.SDL()), 0644), "write %s", out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SDL to a file instead of stdout")
	return cmd
}

func newRenderDocsCommand(root *rootOptions) *cobra.Command {
	var origin, format string
	cmd := &cobra.Command{
		Use:   "render-docs",
		Short: "Print the OpenAPI document with its server list set to an origin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.config()
			if err != nil {
				return err
			}
			tpl, err := docs.LoadTemplate(cfg.DocsTemplate)
			if err != nil {
				return err
			}
			if origin == "" {
				origin = cfg.PublicURL()
			}
			doc := tpl.Render(origin)
			w := cmd.OutOrStdout()
			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(doc)
			case "yaml":
				enc := yaml.NewEncoder(w)
				defer enc.Close()
				return enc.Encode(doc)
			}
			return errors.Errorf("invalid format %q: must be json or yaml", format)
		},
	}
	cmd.Flags().StringVar(&origin, "origin", "", "server origin (default "+config.KeyHostURL+" or the local address)")
	cmd.Flags().StringVar(&format, "format", "json", "output format (json|yaml)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "graphgate "+version)
		},
	}
}
