package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/greenroom/internal/app"
)

func (c *CLI) newRustcCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "rustc <compiler> [args...]",
		Short:              "Run one compiler call in the sandbox",
		Hidden:             true,
		DisableFlagParsing: true,
		Args:               cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := c.app.Wrap(cmd.Context(), args, app.Streams{
				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
				Err: cmd.ErrOrStderr(),
			})
			c.exitCode = code
			return err
		},
	}
}
