package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/cratescache"
)

func (c *CLI) updateCommand() *cobra.Command {
	maxAge := ageFlag(cratescache.DefaultMaxAge)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the latest daily dump from crates.io to speed up other commands",
		Long: `Download the latest daily dump from crates.io to speed up other commands.

If the local cache is younger than --cache-max-age, crates.io is only asked
whether the dump changed and nothing is downloaded when it did not.

Note that this downloads the entire crates.io database, which is hundreds of MB of data!
If you are on a metered connection, you should not be running the 'update' command.
Instead, rely on requests to the live API; they are slower, but use much less data.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUpdate(cmd.Context(), time.Duration(maxAge))
		},
	}
	registerMaxAge(cmd, &maxAge)
	return cmd
}

func (c *CLI) runUpdate(ctx context.Context, maxAge time.Duration) error {
	const label = "Downloading crates.io dump"
	spinner := newSpinnerWithContext(ctx, label)
	dump := c.newDumpCache(func(read, total int64, entry string) {
		msg := fmt.Sprintf("%s %s", label, cratescache.FormatBytes(read))
		if total > 0 {
			msg += " / " + cratescache.FormatBytes(total)
		}
		if entry != "" {
			msg += " (" + entry + ")"
		}
		spinner.SetMessage(msg)
	})

	prog := newProgress(c.Logger)
	spinner.Start()
	state, err := dump.Download(ctx, c.httpClient(), maxAge)
	if err != nil {
		if spinner.Cancelled() {
			spinner.Stop()
			return ctx.Err()
		}
		spinner.StopWithError("Update failed")
		return fmt.Errorf("update crates.io cache: %w", err)
	}

	switch state {
	case cratescache.DownloadFresh:
		spinner.StopWithSuccess("crates.io cache is up to date")
	case cratescache.DownloadStale:
		spinner.Stop()
		printInfo("crates.io dump has not been updated since the last check")
	default:
		spinner.StopWithSuccess("crates.io cache updated")
	}
	prog.done("Update finished")
	printDetail("Directory: %s", dump.Dir())
	return nil
}
