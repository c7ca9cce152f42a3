// Command apidoc runs the documentation gateway: it aggregates the OpenAPI
// documents of the configured downstream services behind one swagger-ui.
package main

import (
	"fmt"
	"os"

	"github.com/gaborage/go-bricks-apidoc/app"
	"github.com/gaborage/go-bricks-apidoc/config"
	"github.com/gaborage/go-bricks-apidoc/internal/commands"
)

var version = "dev" // Will be set during build

func main() {
	root := commands.NewRootCommand(
		"apidoc",
		"Serve and aggregate OpenAPI documentation",
		version,
		func(cfg *config.Config) (*app.App, error) {
			return app.NewWithConfig(cfg, nil)
		},
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
