package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand(root *RootOptions, factory AppFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the documented routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newApp(factory)
			if err != nil {
				return err
			}
			if err := a.Prepare(); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH\tMODULE\tOPERATION\tTAGS")
			for _, r := range a.Routes() {
				if r.Hidden {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Method, r.Path, r.Module, r.OperationID, strings.Join(r.Tags, ","))
			}
			return w.Flush()
		},
	}
}
