package publishers

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/httputil"
)

// Lookup answers publisher queries from a local cache. A false result
// means the cache has no answer for the crate.
type Lookup interface {
	PublisherUsers(name string) ([]PublisherData, bool)
	PublisherTeams(name string) ([]PublisherData, bool)
}

// API answers publisher queries from crates.io.
type API interface {
	OwnerUsers(ctx context.Context, name string) ([]PublisherData, error)
	OwnerTeams(ctx context.Context, name string) ([]PublisherData, error)
}

// Fetch collects users and teams for each crate name. The cache is used
// when it can answer both questions for a crate; otherwise both are asked
// of the API, retrying transient failures.
func Fetch(ctx context.Context, cache Lookup, api API, names []string, logger *log.Logger) (Owners, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	owners := NewOwners()
	var fetched int
	for i, name := range names {
		if cache != nil {
			users, uok := cache.PublisherUsers(name)
			teams, tok := cache.PublisherTeams(name)
			if uok && tok {
				logger.Debug("using cached data", "crate", name, "n", fmt.Sprintf("%d/%d", i+1, len(names)))
				owners.Users[name] = users
				owners.Teams[name] = teams
				continue
			}
		}

		if fetched == 0 {
			logger.Info("fetching publisher info from crates.io, roughly 2 seconds per crate due to API rate limits")
		}
		fetched++
		logger.Info("fetching data", "crate", name, "n", fmt.Sprintf("%d/%d", i+1, len(names)))

		var users, teams []PublisherData
		err := httputil.RetryWithBackoff(ctx, func() error {
			var err error
			users, err = api.OwnerUsers(ctx, name)
			return err
		})
		if err != nil {
			return owners, fmt.Errorf("owners of %s: %w", name, err)
		}
		err = httputil.RetryWithBackoff(ctx, func() error {
			var err error
			teams, err = api.OwnerTeams(ctx, name)
			return err
		})
		if err != nil {
			return owners, fmt.Errorf("teams of %s: %w", name, err)
		}
		owners.Users[name] = users
		owners.Teams[name] = teams
	}
	return owners, nil
}
