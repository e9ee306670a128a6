// Package commands implements the CLI commands for greenroom.
package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.trai.ch/greenroom/internal/app"
	"go.trai.ch/greenroom/internal/build"
	"go.trai.ch/greenroom/internal/core/domain"
)

// CLI represents the command line interface for greenroom.
type CLI struct {
	app      Application
	rootCmd  *cobra.Command
	exitCode int
}

// Application represents the application logic interface.
type Application interface {
	Wrap(ctx context.Context, args []string, streams app.Streams) (int, error)
	Render(ctx context.Context, args []string, w io.Writer, opts app.RenderOptions) error
	EnsureBuilder(ctx context.Context) (*domain.BuilderHandle, error)
	RemoveBuilder(ctx context.Context, purge bool) error
}

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:           domain.AppName,
		Short:         "Compile Rust crates in content-addressed BuildKit sandboxes",
		Long:          "greenroom is a RUSTC_WRAPPER. Cargo calls it with the compiler path first;\neach call is built in a sandbox and its outputs, streams and exit code are replayed.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	rootCmd.AddCommand(c.newRustcCmd())
	rootCmd.AddCommand(c.newRenderCmd())
	rootCmd.AddCommand(c.newBuilderCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// ExitCode is the exit code of the last wrapped compiler call, or 0.
func (c *CLI) ExitCode() int {
	return c.exitCode
}

// SetArgs sets the arguments for the root command.
// A compiler path in first position is routed to the rustc command, which is how cargo
// invokes a RUSTC_WRAPPER.
func (c *CLI) SetArgs(args []string) {
	if len(args) > 0 && IsCompiler(args[0]) {
		args = append([]string{"rustc"}, args...)
	}
	c.rootCmd.SetArgs(args)
}

// SetInput sets the input stream handed to wrapped compiler calls.
func (c *CLI) SetInput(in io.Reader) {
	c.rootCmd.SetIn(in)
}

// SetOutput sets the output and error streams for the root command.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// IsCompiler reports whether arg names a compiler rather than a subcommand.
// Subcommand names never contain a path separator.
func IsCompiler(arg string) bool {
	if strings.ContainsRune(arg, '/') || strings.ContainsRune(arg, filepath.Separator) {
		return true
	}
	return strings.TrimSuffix(arg, ".exe") == "rustc"
}
