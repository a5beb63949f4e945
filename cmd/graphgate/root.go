package main

import (
	config "github.com/hanpama/graphgate/internal/config"
	logging "github.com/hanpama/graphgate/internal/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type rootOptions struct {
	envFiles []string
	v        *viper.Viper
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	cmd := &cobra.Command{
		Use:   "graphgate",
		Short: "graphgate - GraphQL gateway assembled from schema and resolver fragments",
		Long: `graphgate merges GraphQL schema fragments into one schema and serves it
over HTTP next to an OpenAPI documentation page, a health check and metrics.

Every flag can also be set with the environment variable named in its help.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(opts.envFiles...); err != nil {
				return err
			}
			return logging.Init(opts.v.GetString(config.KeyLogLevel), opts.v.GetString(config.KeyLogFormat))
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default .env)")
	pf.String("log-level", "info", "log level ("+config.KeyLogLevel+")")
	pf.String("log-format", "text", "log format, text or json ("+config.KeyLogFormat+")")
	pf.String("graphql-root", "", "directory of .graphql schema fragments ("+config.KeyGraphQLRoot+")")
	pf.String("docs-template", "", "OpenAPI template file, YAML or JSON ("+config.KeyDocsTemplate+")")
	pf.String("env", config.Development, "development, test or production ("+config.KeyAppEnv+")")
	mustBind(opts.v, pf, map[string]string{
		"log-level":     config.KeyLogLevel,
		"log-format":    config.KeyLogFormat,
		"graphql-root":  config.KeyGraphQLRoot,
		"env":           config.KeyAppEnv,
		"docs-template": config.KeyDocsTemplate,
	})

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCompileSDLCommand(opts))
	cmd.AddCommand(newRenderDocsCommand(opts))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

// mustBind binds flags to configuration keys. A flag left unset falls back
// to the environment and then to the configuration default.
func mustBind(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(errors.Wrapf(err, "bind --%s", flag))
		}
	}
}

func (o *rootOptions) config() (*config.Config, error) {
	return config.Load(o.v)
}
