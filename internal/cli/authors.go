package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/deps"
)

func (c *CLI) authorsCommand() *cobra.Command {
	opts := newQueryOptions()
	cmd := &cobra.Command{
		Use:   "authors",
		Short: "List all authors in the dependency graph, as specified in Cargo.toml",
		Long: `List all authors in the dependency graph, as specified in Cargo.toml.

The authors field is self-declared and not verified by any registry, so
only authors of workspace members are marked local; every other entry is
reported as coming from an unknown registry.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkgs, err := c.loadPackages(cmd.Context(), opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, a := range deps.AuthorsOf(pkgs) {
				fmt.Fprintln(out, a)
			}
			return nil
		},
	}
	opts.registerMetadata(cmd)
	return cmd
}
