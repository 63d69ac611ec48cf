package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/render/ownership"
)

const (
	graphFormatDOT = "dot"
	graphFormatSVG = "svg"
)

func (c *CLI) graphCommand() *cobra.Command {
	opts := newQueryOptions()
	var (
		format     string
		output     string
		showNames  bool
		horizontal bool
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Draw which publishers can release which crates",
		Long: `Draw the ownership graph of the dependency tree: an edge from a publisher
to every crate it can publish. Crates with a single publisher are highlighted.

Output is Graphviz DOT by default; --format svg renders it.

` + cacheHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != graphFormatDOT && format != graphFormatSVG {
				return fmt.Errorf("unknown format %q: want %s or %s", format, graphFormatDOT, graphFormatSVG)
			}
			report, err := c.collect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report.complainAboutNonCratesIO()

			data := []byte(ownership.ToDOT(report.owners, ownership.Options{
				ShowNames:   showNames,
				LeftToRight: horizontal,
			}))
			if format == graphFormatSVG {
				if data, err = ownership.RenderSVG(cmd.Context(), string(data)); err != nil {
					return err
				}
			}
			return writeOutput(cmd.OutOrStdout(), output, data)
		},
	}
	opts.register(cmd, false)
	cmd.Flags().StringVarP(&format, "format", "f", graphFormatDOT, "output format: dot or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&showNames, "names", false, "show display names next to logins")
	cmd.Flags().BoolVar(&horizontal, "horizontal", false, "lay the graph out left to right")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{graphFormatDOT, graphFormatSVG}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

// writeOutput writes data to path, or to w when path is empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := w.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	printSuccess("Wrote %s", path)
	return nil
}
