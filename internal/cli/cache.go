package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/cache"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/cratescache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the local crates.io cache",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheAgeCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.resolveCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheAgeCommand creates the "cache age" subcommand.
func (c *CLI) cacheAgeCommand() *cobra.Command {
	maxAge := ageFlag(cratescache.DefaultMaxAge)
	cmd := &cobra.Command{
		Use:   "age",
		Short: "Show how old the crates.io dump is and whether it would be used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dump := c.newDumpCache(nil)
			age, err := dump.Age()
			if err != nil {
				printWarning("The `crates.io` cache was not found or it is invalid.")
				printNextStep("Run", "cargo supply-chain update")
				return nil
			}
			state := dump.Expire(time.Duration(maxAge))
			printKeyValue("Directory", dump.Dir())
			printKeyValue("Age", formatAge(age))
			printKeyValue("Max age", formatAge(time.Duration(maxAge)))
			printKeyValue("State", state.String())
			fmt.Fprintln(cmd.OutOrStdout(), formatAge(age))
			return nil
		},
	}
	registerMaxAge(cmd, &maxAge)
	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cached crates.io API responses",
		Long: `Clear cached crates.io API responses.

With --dump the downloaded crates.io database is removed as well; the next
query falls back to the live API until 'update' is run again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.resolveCacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}

			api, err := cache.NewFileCache(filepath.Join(dir, apiCacheSubdir))
			if err != nil {
				return fmt.Errorf("open API cache: %w", err)
			}
			if err := api.Clear(); err != nil {
				return fmt.Errorf("clear API cache: %w", err)
			}
			printSuccess("Cleared cached API responses")
			printDetail("Directory: %s", api.Dir())

			if dump {
				removed, err := c.newDumpCache(nil).Clear()
				if err != nil {
					return fmt.Errorf("clear crates.io dump: %w", err)
				}
				printSuccess("Removed %d crates.io dump files", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "also delete the downloaded crates.io dump")
	return cmd
}
