package cratescache

import (
	"fmt"
	"strconv"
	"time"
)

// OwnerKind discriminates the two kinds of crate owner in the dump.
type OwnerKind int

const (
	// OwnerUser is an individual account (dump value 0).
	OwnerUser OwnerKind = 0
	// OwnerTeam is a group account (dump value 1).
	OwnerTeam OwnerKind = 1
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerUser:
		return "user"
	case OwnerTeam:
		return "team"
	default:
		return fmt.Sprintf("OwnerKind(%d)", int(k))
	}
}

// parseOwnerKind accepts only the discriminants crates.io is known to emit.
func parseOwnerKind(s string) (OwnerKind, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("owner_kind %q: %w", s, err)
	}
	switch k := OwnerKind(n); k {
	case OwnerUser, OwnerTeam:
		return k, nil
	}
	return 0, fmt.Errorf("%w: %d", errUnknownOwnerKind, n)
}

// Crate is a row of crates.csv, reduced to the fields the cache needs.
type Crate struct {
	Name       string  `json:"name"`
	ID         uint64  `json:"id"`
	Repository *string `json:"repository"`
}

// CrateOwner links a crate to a user or team allowed to publish it.
type CrateOwner struct {
	CrateID   uint64    `json:"crate_id"`
	OwnerID   uint64    `json:"owner_id"`
	OwnerKind OwnerKind `json:"owner_kind"`
}

// User is an individual crates.io account.
type User struct {
	ID       uint64  `json:"id"`
	GHAvatar *string `json:"gh_avatar"`
	GHID     *string `json:"gh_id"`
	GHLogin  string  `json:"gh_login"`
	Name     *string `json:"name"`
}

// Team is a group account, e.g. "github:rust-lang:libs".
type Team struct {
	ID     uint64  `json:"id"`
	Avatar *string `json:"avatar"`
	Login  string  `json:"login"`
	Name   *string `json:"name"`
}

// VersionPublisher records which account published a version of a crate.
type VersionPublisher struct {
	CrateID     uint64 `json:"crate_id"`
	PublishedBy uint64 `json:"published_by"`
}

// DumpMetadata is the metadata.json member of the database dump.
type DumpMetadata struct {
	Timestamp      time.Time `json:"timestamp"`
	CratesIOCommit string    `json:"crates_io_commit,omitempty"`
}

// StoredMetadata is the cache's own metadata.json. Its timestamp is the
// freshness oracle for every other cache file.
type StoredMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	ETag      *string   `json:"etag"`
}

func decodeCrate(r csvRow) (Crate, error) {
	id, err := r.uint64("id")
	if err != nil {
		return Crate{}, err
	}
	name, err := r.string("name")
	if err != nil {
		return Crate{}, err
	}
	return Crate{Name: name, ID: id, Repository: r.optional("repository")}, nil
}

func decodeCrateOwner(r csvRow) (CrateOwner, error) {
	crateID, err := r.uint64("crate_id")
	if err != nil {
		return CrateOwner{}, err
	}
	ownerID, err := r.uint64("owner_id")
	if err != nil {
		return CrateOwner{}, err
	}
	raw, err := r.string("owner_kind")
	if err != nil {
		return CrateOwner{}, err
	}
	kind, err := parseOwnerKind(raw)
	if err != nil {
		return CrateOwner{}, err
	}
	return CrateOwner{CrateID: crateID, OwnerID: ownerID, OwnerKind: kind}, nil
}

func decodeUser(r csvRow) (User, error) {
	id, err := r.uint64("id")
	if err != nil {
		return User{}, err
	}
	login, err := r.string("gh_login")
	if err != nil {
		return User{}, err
	}
	return User{
		ID:       id,
		GHAvatar: r.optional("gh_avatar"),
		GHID:     r.optional("gh_id"),
		GHLogin:  login,
		Name:     r.optional("name"),
	}, nil
}

func decodeTeam(r csvRow) (Team, error) {
	id, err := r.uint64("id")
	if err != nil {
		return Team{}, err
	}
	login, err := r.string("login")
	if err != nil {
		return Team{}, err
	}
	return Team{
		ID:     id,
		Avatar: r.optional("avatar"),
		Login:  login,
		Name:   r.optional("name"),
	}, nil
}
