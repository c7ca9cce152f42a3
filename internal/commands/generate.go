package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gaborage/go-bricks-apidoc/app"
	"github.com/gaborage/go-bricks-apidoc/observability"
	"github.com/gaborage/go-bricks-apidoc/openapi"
)

const (
	stdoutPath       = "-"
	disabledLogLevel = "disabled"
)

// GenerateOptions holds options for the generate command
type GenerateOptions struct {
	OutputFile string
	Format     string
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand(root *RootOptions, factory AppFactory) *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the OpenAPI document without starting the server",
		Long: `Registers every module, expands the request types of the documented routes
and writes the resulting OpenAPI 3.0.1 document.`,
		Example: `  # Print the JSON document
  apidoc generate

  # Write YAML next to the service
  apidoc generate --format yaml --output docs/openapi`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, root, factory, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", stdoutPath, "Output file path, - for stdout")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", string(openapi.FormatJSON), "Output format (json|yaml)")

	return cmd
}

func runGenerate(cmd *cobra.Command, root *RootOptions, factory AppFactory, opts *GenerateOptions) error {
	if err := validateGenerateOptions(opts); err != nil {
		return err
	}

	cfg, err := root.load()
	if err != nil {
		return err
	}
	if opts.OutputFile == stdoutPath {
		// Keep stdout for the document.
		cfg.Log.Level = disabledLogLevel
	}
	a, err := factory(cfg)
	if err != nil {
		return err
	}
	defer flushTelemetry(cmd, a)

	doc, err := a.Document(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to build document: %w", err)
	}
	out, err := doc.Render(openapi.Format(opts.Format))
	if err != nil {
		return err
	}

	if opts.OutputFile == stdoutPath {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(opts.OutputFile, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "OpenAPI document written to %s (%d paths)\n", opts.OutputFile, len(doc.Paths))
	return nil
}

// flushTelemetry exports the spans of the document build before the process exits.
func flushTelemetry(cmd *cobra.Command, a *app.App) {
	if err := observability.Shutdown(a.Observability(), observability.DefaultShutdownTimeout); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
}

func validateGenerateOptions(opts *GenerateOptions) error {
	switch opts.Format {
	case "yml":
		opts.Format = string(openapi.FormatYAML)
	case string(openapi.FormatYAML), string(openapi.FormatJSON):
	default:
		return fmt.Errorf("unsupported format: %s (supported: yaml, json)", opts.Format)
	}

	if opts.OutputFile == "" {
		opts.OutputFile = stdoutPath
	}
	if opts.OutputFile != stdoutPath && filepath.Ext(opts.OutputFile) == "" {
		opts.OutputFile += "." + opts.Format
	}
	return nil
}
