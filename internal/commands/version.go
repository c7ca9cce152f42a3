package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-bricks-apidoc/openapi"
)

// NewVersionCommand creates the version command
func NewVersionCommand(name, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout(), name, version)
		},
	}
}

func printVersion(w io.Writer, name, version string) {
	fmt.Fprintf(w, "%s version %s\n", name, version)
	fmt.Fprintf(w, "Built with %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "OpenAPI specification version: %s\n", openapi.Version)
}
