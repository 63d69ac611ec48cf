package cli

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

const (
	invitationsNote = "Note: there may be outstanding publisher invitations. crates.io provides no way to list them."
	invitationsLink = "See https://github.com/rust-lang/crates.io/issues/2868 for more info."
	teamsNote       = "Github teams are black boxes. It's impossible to get the member list without explicit permission."
)

func (c *CLI) publishersCommand() *cobra.Command {
	opts := newQueryOptions()
	cmd := &cobra.Command{
		Use:   "publishers",
		Short: "List all crates.io publishers in the dependency graph and owned crates for each",
		Long: `Lists all crates.io publishers in the dependency graph and owned crates for each.

` + cacheHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := c.collect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			report.complainAboutNonCratesIO()
			writePublishers(cmd.OutOrStdout(), report.owners, opts.diffable)
			return nil
		},
	}
	opts.register(cmd, true)
	return cmd
}

// writePublishers prints who can publish which crates. Logins are printed,
// never display names, since names can carry terminal control sequences.
func writePublishers(w io.Writer, owners publishers.Owners, diffable bool) {
	users := publishers.ByPublisher(owners.Users)
	teams := publishers.ByPublisher(owners.Teams)

	if diffable {
		sortForDiffing(users)
		for _, g := range users {
			fmt.Fprintf(w, "user \"%s\": %s\n", g.Publisher.Login, commaList(g.Crates))
		}
		sortForDiffing(teams)
		for _, g := range teams {
			fmt.Fprintf(w, "team \"%s\": %s\n", g.Publisher.Login, commaList(g.Crates))
		}
		return
	}

	if len(users) > 0 {
		fmt.Fprintln(w, "\n"+StyleTitle.Render("The following individuals can publish updates for your dependencies:")+"\n")
		sortForDisplay(users)
		for i, g := range users {
			fmt.Fprintf(w, " %d. %s via crates: %s\n", i+1, StyleHighlight.Render(g.Publisher.Login), commaList(g.Crates))
		}
		fmt.Fprintln(w, "\n"+StyleDim.Render(invitationsNote))
		fmt.Fprintln(w, StyleDim.Render(invitationsLink))
	}

	if len(teams) > 0 {
		fmt.Fprintln(w, "\n"+StyleTitle.Render("All members of the following teams can publish updates for your dependencies:")+"\n")
		sortForDisplay(teams)
		for i, g := range teams {
			login := styleTeam.Render(fmt.Sprintf("%q", g.Publisher.Login))
			if org, ok := g.Publisher.GitHubOrg(); ok {
				fmt.Fprintf(w, " %d. %s (%s) via crates: %s\n", i+1, login,
					StyleLink.Render("https://github.com/"+org), commaList(g.Crates))
				continue
			}
			fmt.Fprintf(w, " %d. %s via crates: %s\n", i+1, login, commaList(g.Crates))
		}
		fmt.Fprintln(w, "\n"+StyleDim.Render(teamsNote))
	}
}

// sortForDisplay puts publishers controlling the most crates first.
func sortForDisplay(gs []publishers.Grouped) {
	slices.SortStableFunc(gs, func(a, b publishers.Grouped) int {
		if n := cmp.Compare(len(b.Crates), len(a.Crates)); n != 0 {
			return n
		}
		return cmp.Compare(a.Publisher.Login, b.Publisher.Login)
	})
}

func sortForDiffing(gs []publishers.Grouped) {
	slices.SortStableFunc(gs, func(a, b publishers.Grouped) int {
		return cmp.Compare(a.Publisher.Login, b.Publisher.Login)
	})
}
