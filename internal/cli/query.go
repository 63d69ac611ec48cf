package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/cratescache"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/deps"
	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

const cacheHelp = `If a local cache created by the 'update' command is present and up to date,
it will be used. Otherwise live data will be fetched from the crates.io API.`

// queryOptions are the flags shared by publishers, crates, json and graph.
// authors only uses the cargo metadata subset.
type queryOptions struct {
	maxAge     ageFlag
	diffable   bool
	meta       deps.MetadataArgs
	noDev      bool
	lockfile   string
	noAPICache bool
	refresh    bool
}

func newQueryOptions() *queryOptions {
	return &queryOptions{maxAge: ageFlag(cratescache.DefaultMaxAge)}
}

// register adds the query flags to cmd. withDiffable is false for commands
// whose output is already stable.
func (o *queryOptions) register(cmd *cobra.Command, withDiffable bool) {
	f := cmd.Flags()
	registerMaxAge(cmd, &o.maxAge)
	if withDiffable {
		f.BoolVarP(&o.diffable, "diffable", "d", false, "make output more friendly towards tools such as diff")
	}
	o.registerMetadata(cmd)
	f.StringVar(&o.lockfile, "lockfile", "", "classify the packages of this Cargo.lock instead of running cargo metadata")
	f.BoolVar(&o.noAPICache, "no-api-cache", false, "do not read or write cached crates.io API responses")
	f.BoolVar(&o.refresh, "refresh", false, "ignore cached crates.io API responses")
	cmd.MarkFlagsMutuallyExclusive("lockfile", "no-dev")
	cmd.MarkFlagsMutuallyExclusive("lockfile", "manifest-path")
	_ = cmd.MarkFlagFilename("lockfile", "lock")
}

// registerMetadata adds the flags passed through to cargo metadata.
func (o *queryOptions) registerMetadata(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.meta.AllFeatures, "all-features", false, "activate all available features")
	f.BoolVar(&o.meta.NoDefaultFeatures, "no-default-features", false, "do not activate the `default` feature")
	f.StringVar(&o.meta.Features, "features", "", "space or comma separated list of features to activate")
	f.StringVar(&o.meta.Target, "target", "", "only include dependencies matching the given target-triple")
	f.StringVar(&o.meta.ManifestPath, "manifest-path", "", "path to Cargo.toml")
	f.BoolVar(&o.noDev, "no-dev", false, "exclude dev-only dependencies")
	_ = cmd.MarkFlagFilename("manifest-path", "toml")
}

func registerMaxAge(cmd *cobra.Command, age *ageFlag) {
	cmd.Flags().Var(age, "cache-max-age", `the cache is considered valid while younger than this,
written as a human readable duration such as "1w" or "1d 6h"`)
}

// dependencyReport is what every query command starts from.
type dependencyReport struct {
	local   []string
	foreign []string
	owners  publishers.Owners
}

// loadPackages classifies the dependency graph, from a lock file or from
// cargo metadata.
func (c *CLI) loadPackages(ctx context.Context, o *queryOptions) ([]deps.SourcedPackage, error) {
	if o.lockfile != "" {
		c.Logger.Debug("reading lock file", "path", o.lockfile)
		return deps.FromLockfile(o.lockfile)
	}
	c.Logger.Debug("running cargo metadata", "args", strings.Join(o.meta.Args(), " "))
	meta, err := deps.Exec(ctx, o.meta)
	if err != nil {
		return nil, err
	}
	return deps.FromMetadata(meta, o.noDev), nil
}

// collect classifies dependencies and fetches the publishers of every
// crates.io crate, preferring the local dump.
func (c *CLI) collect(ctx context.Context, o *queryOptions) (*dependencyReport, error) {
	pkgs, err := c.loadPackages(ctx, o)
	if err != nil {
		return nil, err
	}
	report := &dependencyReport{
		local:   deps.CrateNames(pkgs, deps.Local),
		foreign: deps.CrateNames(pkgs, deps.Foreign),
	}
	names := deps.CrateNames(pkgs, deps.CratesIO)

	prog := newProgress(c.Logger)
	dump := c.newDumpCache(nil)
	reportCacheState(dump.Expire(time.Duration(o.maxAge)), time.Duration(o.maxAge))

	api := c.newCratesClient(o.noAPICache, o.refresh)
	defer api.Close()

	report.owners, err = publishers.Fetch(ctx, dump, api, names, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("fetch publishers: %w", err)
	}
	prog.done(fmt.Sprintf("Collected publishers of %d crates", len(names)))
	return report, nil
}

// reportCacheState tells the user why the local dump is not being used.
func reportCacheState(state cratescache.CacheState, maxAge time.Duration) {
	switch state {
	case cratescache.CacheExpired:
		printWarning("Ignoring expired cache, older than %s.", formatAge(maxAge))
		printNextStep("Run", "cargo supply-chain update")
	case cratescache.CacheUnknown:
		printWarning("The `crates.io` cache was not found or it is invalid.")
		printNextStep("Run", "cargo supply-chain update")
	}
}

// complainAboutNonCratesIO lists the crates no publisher data exists for.
func (r *dependencyReport) complainAboutNonCratesIO() {
	if len(r.local) > 0 {
		printInfo("The following crates will be ignored because they come from a local directory:")
		for _, name := range r.local {
			printItem(name)
		}
	}
	if len(r.foreign) > 0 {
		printWarning("Cannot audit the following crates because they are not from crates.io:")
		for _, name := range r.foreign {
			printItem(name)
		}
	}
}

// commaList joins items the way every report prints lists.
func commaList(items []string) string {
	return strings.Join(items, ", ")
}
