package commands

import (
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command
func NewServeCommand(root *RootOptions, factory AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the API and its documentation",
		Long: `Starts the HTTP server with the module routes, the OpenAPI document
endpoints and, when gateway.enabled is set, the documentation gateway.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			a, err := root.newApp(factory)
			if err != nil {
				return err
			}
			return a.Run()
		},
	}
}
