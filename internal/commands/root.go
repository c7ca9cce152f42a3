// Package commands holds the cobra commands shared by the apidoc binaries.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/gaborage/go-bricks-apidoc/app"
	"github.com/gaborage/go-bricks-apidoc/config"
)

// AppFactory builds the application served or documented by the commands.
// Implementations register their modules before returning.
type AppFactory func(cfg *config.Config) (*app.App, error)

// RootOptions holds the flags shared by every command.
type RootOptions struct {
	ConfigFile string
}

// NewRootCommand creates the root command with serve, generate, routes and version.
func NewRootCommand(use, short, version string, factory AppFactory) *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:           use,
		Short:         short,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "Configuration file (default config.yaml and config.<env>.yaml)")

	root.AddCommand(
		NewServeCommand(opts, factory),
		NewGenerateCommand(opts, factory),
		NewRoutesCommand(opts, factory),
		NewVersionCommand(use, version),
	)
	return root
}

func (o *RootOptions) load() (*config.Config, error) {
	if o.ConfigFile != "" {
		return config.LoadFile(o.ConfigFile)
	}
	return config.Load()
}

func (o *RootOptions) newApp(factory AppFactory) (*app.App, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	return factory(cfg)
}
