package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newBuilderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builder",
		Short: "Manage the BuildKit builder",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ensure",
		Short: "Create the builder or bring it up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			handle, err := c.app.EnsureBuilder(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "builder %s is %s\n", handle.Name, handle.State)
			return err
		},
	})

	rm := &cobra.Command{
		Use:   "rm",
		Short: "Remove the managed builder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			purge, _ := cmd.Flags().GetBool("purge")
			return c.app.RemoveBuilder(cmd.Context(), purge)
		},
	}
	rm.Flags().Bool("purge", false, "Also delete the builder's cache state")
	cmd.AddCommand(rm)

	return cmd
}
