package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/buildinfo"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/cache"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/cratescache"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/httputil"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/integrations/crates"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the command name, also the cargo subcommand name.
	appName = "supply-chain"

	// cacheDirEnv overrides the default cache directory.
	cacheDirEnv = "SUPPLY_CHAIN_CACHE_DIR"

	// apiCacheSubdir holds cached crates.io API responses inside the cache dir.
	apiCacheSubdir = "api"

	// defaultAPICacheTTL is how long a cached owner_user/owner_team answer is reused.
	defaultAPICacheTTL = 24 * time.Hour
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	cacheDir string

	// Overridden in tests.
	dumpURL    string
	apiBaseURL string
	http       *httputil.RateLimitedClient
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Gather author, contributor and publisher data on crates in your dependency graph",
		Long: `Gather author, contributor and publisher data on crates in your dependency graph.

Most commands also accept flags controlling the features, targets, etc.
See 'cargo supply-chain <command> --help' for more information on a specific command.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.cacheDir, "cache-dir", "",
		"directory holding the crates.io dump (default $"+cacheDirEnv+" or the user cache dir)")

	root.AddCommand(c.authorsCommand())
	root.AddCommand(c.publishersCommand())
	root.AddCommand(c.cratesCommand())
	root.AddCommand(c.jsonCommand())
	root.AddCommand(c.updateCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// TrimCargoArgs drops the subcommand name cargo passes as the first argument
// when the binary is run as "cargo supply-chain".
func TrimCargoArgs(args []string) []string {
	if len(args) > 0 && args[0] == appName {
		return args[1:]
	}
	return args
}

// =============================================================================
// Factories
// =============================================================================

// resolveCacheDir applies --cache-dir, then $SUPPLY_CHAIN_CACHE_DIR, then
// the per-user cache directory.
func (c *CLI) resolveCacheDir() (string, error) {
	if c.cacheDir != "" {
		return c.cacheDir, nil
	}
	if dir := strings.TrimSpace(os.Getenv(cacheDirEnv)); dir != "" {
		return dir, nil
	}
	return cratescache.DefaultDir()
}

// newDumpCache opens the crates.io dump cache. If no directory can be
// determined the handle is detached and every lookup misses.
func (c *CLI) newDumpCache(progress cratescache.ProgressFunc) *cratescache.Cache {
	opts := []cratescache.Option{cratescache.WithLogger(c.Logger)}
	if dir, err := c.resolveCacheDir(); err == nil {
		opts = append(opts, cratescache.WithDir(dir))
	} else {
		c.Logger.Debug("no cache directory", "err", err)
	}
	if c.dumpURL != "" {
		opts = append(opts, cratescache.WithDumpURL(c.dumpURL))
	}
	if progress != nil {
		opts = append(opts, cratescache.WithProgress(progress))
	}
	return cratescache.New(opts...)
}

func (c *CLI) httpClient() *httputil.RateLimitedClient {
	if c.http == nil {
		c.http = httputil.NewRateLimitedClient()
	}
	return c.http
}

// newAPICache returns the on-disk API response cache, or a no-op cache when
// disabled or when the cache directory is unusable.
func (c *CLI) newAPICache(disabled bool) cache.Cache {
	if disabled {
		return cache.NewNullCache()
	}
	dir, err := c.resolveCacheDir()
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(filepath.Join(dir, apiCacheSubdir))
	if err != nil {
		c.Logger.Debug("API cache disabled", "err", err)
		return cache.NewNullCache()
	}
	return fc
}

// newCratesClient builds the live crates.io API client.
func (c *CLI) newCratesClient(noAPICache, refresh bool) *crates.Client {
	opts := []crates.Option{crates.WithRefresh(refresh)}
	if c.apiBaseURL != "" {
		opts = append(opts, crates.WithBaseURL(c.apiBaseURL))
	}
	return crates.NewClient(c.httpClient(), c.newAPICache(noAPICache), defaultAPICacheTTL, opts...)
}
