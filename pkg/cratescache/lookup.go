package cratescache

import (
	"sort"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

// PublisherUsers returns the individual accounts that may publish the
// crate. The boolean is false when the cache cannot answer for the crate;
// a true result with an empty list means it has no user owners.
func (c *Cache) PublisherUsers(name string) ([]publishers.PublisherData, bool) {
	owners, ok := c.ownerEdges(name)
	if !ok {
		return nil, false
	}
	users, err := loadCached[map[uint64]User](c, Users)
	if err != nil {
		return nil, false
	}
	out := []publishers.PublisherData{}
	for _, o := range owners {
		if o.OwnerKind != OwnerUser {
			continue
		}
		u, ok := users[o.OwnerID]
		if !ok {
			c.logger.Debug("dropping dangling owner edge", "crate", name, "user", o.OwnerID)
			continue
		}
		out = append(out, u.publisher())
	}
	return out, true
}

// PublisherTeams is PublisherUsers for team accounts.
func (c *Cache) PublisherTeams(name string) ([]publishers.PublisherData, bool) {
	owners, ok := c.ownerEdges(name)
	if !ok {
		return nil, false
	}
	teams, err := loadCached[map[uint64]Team](c, Teams)
	if err != nil {
		return nil, false
	}
	out := []publishers.PublisherData{}
	for _, o := range owners {
		if o.OwnerKind != OwnerTeam {
			continue
		}
		t, ok := teams[o.OwnerID]
		if !ok {
			c.logger.Debug("dropping dangling owner edge", "crate", name, "team", o.OwnerID)
			continue
		}
		out = append(out, t.publisher())
	}
	return out, true
}

// VersionPublishers lists the accounts recorded as having published a
// version of the crate, sorted and deduplicated. It needs a versions.json
// in the cache directory, which refreshes do not produce.
func (c *Cache) VersionPublishers(name string) ([]uint64, bool) {
	id, ok := c.crateID(name)
	if !ok {
		return nil, false
	}
	versions, err := loadCached[map[uint64][]VersionPublisher](c, Versions)
	if err != nil {
		return nil, false
	}
	recs, ok := versions[id]
	if !ok {
		return nil, false
	}
	seen := make(map[uint64]bool, len(recs))
	out := make([]uint64, 0, len(recs))
	for _, v := range recs {
		if !seen[v.PublishedBy] {
			seen[v.PublishedBy] = true
			out = append(out, v.PublishedBy)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}

func (c *Cache) crateID(name string) (uint64, bool) {
	crates, err := loadCached[map[string]Crate](c, Crates)
	if err != nil {
		return 0, false
	}
	cr, ok := crates[name]
	return cr.ID, ok
}

func (c *Cache) ownerEdges(name string) ([]CrateOwner, bool) {
	id, ok := c.crateID(name)
	if !ok {
		return nil, false
	}
	owners, err := loadCached[map[uint64][]CrateOwner](c, CrateOwners)
	if err != nil {
		return nil, false
	}
	edges, ok := owners[id]
	return edges, ok
}

// The dump carries no profile URL; only the live API provides one.
func (u User) publisher() publishers.PublisherData {
	return publishers.PublisherData{
		ID:     u.ID,
		Login:  u.GHLogin,
		Kind:   publishers.KindUser,
		Name:   u.Name,
		Avatar: u.GHAvatar,
	}
}

func (t Team) publisher() publishers.PublisherData {
	return publishers.PublisherData{
		ID:     t.ID,
		Login:  t.Login,
		Kind:   publishers.KindTeam,
		Name:   t.Name,
		Avatar: t.Avatar,
	}
}
