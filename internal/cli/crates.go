package cli

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

func (c *CLI) cratesCommand() *cobra.Command {
	opts := newQueryOptions()
	cmd := &cobra.Command{
		Use:   "crates",
		Short: "List all crates in the dependency graph and crates.io publishers for each",
		Long: `List all crates in the dependency graph and crates.io publishers for each.

` + cacheHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.collect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report.complainAboutNonCratesIO()
			writeCrates(cmd.OutOrStdout(), report.owners, opts.diffable)
			return nil
		},
	}
	opts.register(cmd, true)
	return cmd
}

// crateEntry is one crate and everyone who can publish it, teams first.
type crateEntry struct {
	name       string
	publishers []publishers.PublisherData
}

func (e crateEntry) hasTeam() bool {
	return slices.ContainsFunc(e.publishers, func(p publishers.PublisherData) bool {
		return p.Kind == publishers.KindTeam
	})
}

// orderCrates lists team-owned crates first, then crates with more
// publishers, then by name.
func orderCrates(owners publishers.Owners) []crateEntry {
	names := owners.Crates()
	out := make([]crateEntry, 0, len(names))
	for _, name := range names {
		ps := owners.All(name)
		slices.SortStableFunc(ps, func(a, b publishers.PublisherData) int {
			if a.Kind != b.Kind {
				if a.Kind == publishers.KindTeam {
					return -1
				}
				return 1
			}
			return cmp.Compare(a.Login, b.Login)
		})
		out = append(out, crateEntry{name: name, publishers: ps})
	}
	slices.SortStableFunc(out, func(a, b crateEntry) int {
		if at, bt := a.hasTeam(), b.hasTeam(); at != bt {
			if at {
				return -1
			}
			return 1
		}
		if n := cmp.Compare(len(b.publishers), len(a.publishers)); n != 0 {
			return n
		}
		return cmp.Compare(a.name, b.name)
	})
	return out
}

func publisherLabel(p publishers.PublisherData) string {
	if p.Kind == publishers.KindTeam {
		return fmt.Sprintf("team %q", p.Login)
	}
	return p.Login
}

func writeCrates(w io.Writer, owners publishers.Owners, diffable bool) {
	entries := orderCrates(owners)

	if diffable {
		for _, e := range entries {
			labels := make([]string, len(e.publishers))
			for i, p := range e.publishers {
				labels[i] = publisherLabel(p)
			}
			fmt.Fprintf(w, "%s: %s\n", e.name, commaList(labels))
		}
		return
	}

	fmt.Fprintln(w, "\n"+StyleTitle.Render("Dependency crates with the people and teams that can publish them to crates.io:")+"\n")
	if len(entries) == 0 {
		return
	}

	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		labels := make([]string, len(e.publishers))
		for j, p := range e.publishers {
			labels[j] = publisherLabel(p)
			if p.Kind == publishers.KindTeam {
				labels[j] = styleTeam.Render(labels[j])
			}
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), e.name, commaList(labels)})
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(colorCyan).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("#", "Crate", "Publishers").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return cellStyle.Foreground(colorGray)
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())

	fmt.Fprintln(w, "\n"+StyleDim.Render(invitationsNote))
	fmt.Fprintln(w, StyleDim.Render(invitationsLink))
}
