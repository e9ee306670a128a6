package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/greenroom/internal/app"
)

func (c *CLI) newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render [flags] <compiler> [args...]",
		Short: "Print the build description of a compiler call without building it",
		Example: "  greenroom render rustc --crate-name demo --edition=2021 src/lib.rs \\\n" +
			"    --crate-type lib --emit=metadata,link --out-dir target/debug/deps",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contexts, _ := cmd.Flags().GetBool("contexts")
			return c.app.Render(cmd.Context(), args, cmd.OutOrStdout(), app.RenderOptions{Contexts: contexts})
		},
	}
	// Everything from the compiler path on belongs to the compiler.
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().Bool("contexts", false, "Print the named build contexts instead of the Dockerfile")
	return cmd
}
