package publishers

import (
	"cmp"
	"slices"
	"strings"
)

// Kind distinguishes individual accounts from teams.
type Kind string

const (
	KindUser Kind = "user"
	KindTeam Kind = "team"
)

// PublisherData is a crates.io account that can publish a crate.
type PublisherData struct {
	ID     uint64  `json:"id"`
	Login  string  `json:"login"`
	Kind   Kind    `json:"kind"`
	URL    *string `json:"url"`
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

// Compare orders publishers by ID; two entries with the same ID are the
// same account.
func Compare(a, b PublisherData) int {
	return cmp.Compare(a.ID, b.ID)
}

// SortByID sorts ps in place by ID.
func SortByID(ps []PublisherData) {
	slices.SortFunc(ps, Compare)
}

// GitHubOrg returns the organisation of a "github:org:team" login.
func (p PublisherData) GitHubOrg() (string, bool) {
	rest, ok := strings.CutPrefix(p.Login, "github:")
	if !ok {
		return "", false
	}
	org, _, _ := strings.Cut(rest, ":")
	return org, org != ""
}

// Owners holds the publishers of each crate, keyed by crate name.
type Owners struct {
	Users map[string][]PublisherData
	Teams map[string][]PublisherData
}

// NewOwners returns an empty Owners.
func NewOwners() Owners {
	return Owners{
		Users: make(map[string][]PublisherData),
		Teams: make(map[string][]PublisherData),
	}
}

// All returns users and teams of crate together.
func (o Owners) All(crate string) []PublisherData {
	out := make([]PublisherData, 0, len(o.Users[crate])+len(o.Teams[crate]))
	out = append(out, o.Users[crate]...)
	return append(out, o.Teams[crate]...)
}

// Crates returns the sorted names of every crate with an entry.
func (o Owners) Crates() []string {
	seen := make(map[string]bool, len(o.Users))
	for name := range o.Users {
		seen[name] = true
	}
	for name := range o.Teams {
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Grouped is one publisher and the crates it can publish.
type Grouped struct {
	Publisher PublisherData
	Crates    []string
}

// ByPublisher transposes a crate to publishers mapping. Crate lists are
// sorted; the result is ordered by publisher ID.
func ByPublisher(m map[string][]PublisherData) []Grouped {
	idx := make(map[uint64]int)
	var out []Grouped
	for crate, ps := range m {
		for _, p := range ps {
			i, ok := idx[p.ID]
			if !ok {
				i = len(out)
				idx[p.ID] = i
				out = append(out, Grouped{Publisher: p})
			}
			out[i].Crates = append(out[i].Crates, crate)
		}
	}
	for i := range out {
		slices.Sort(out[i].Crates)
	}
	slices.SortFunc(out, func(a, b Grouped) int { return Compare(a.Publisher, b.Publisher) })
	return out
}
