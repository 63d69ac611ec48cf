package deps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
)

// Metadata is the subset of `cargo metadata --format-version 1` output
// needed for classification.
type Metadata struct {
	Packages         []Package `json:"packages"`
	WorkspaceMembers []string  `json:"workspace_members"`
	Resolve          *Resolve  `json:"resolve"`
}

// Resolve is the resolved dependency graph.
type Resolve struct {
	Nodes []Node `json:"nodes"`
}

// Node is one package in the resolve graph with its resolved edges.
type Node struct {
	ID   string    `json:"id"`
	Deps []NodeDep `json:"deps"`
}

// NodeDep is an edge of the resolve graph. A dependency may be declared
// more than once, e.g. as both a normal and a dev dependency.
type NodeDep struct {
	Pkg      string        `json:"pkg"`
	DepKinds []DepKindInfo `json:"dep_kinds"`
}

// DepKindInfo is one declaration of a dependency. Kind is null for normal
// dependencies, "dev" or "build" otherwise.
type DepKindInfo struct {
	Kind   *string `json:"kind"`
	Target *string `json:"target"`
}

func (d NodeDep) nonDev() bool {
	for _, k := range d.DepKinds {
		if k.Kind == nil || *k.Kind != "dev" {
			return true
		}
	}
	return false
}

// ParseMetadata decodes cargo metadata JSON.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialize, err, "parse cargo metadata")
	}
	return &m, nil
}

// FromMetadata classifies every package in meta. Packages start out
// Foreign, crates.io sources become CratesIO, and workspace members become
// Local.
//
// With noDev set, only packages reachable from the workspace members over
// edges that are not exclusively development dependencies are returned.
// The resolved graph is used rather than declared dependencies, so unused
// optional dependencies never appear.
func FromMetadata(meta *Metadata, noDev bool) []SourcedPackage {
	how := make(map[string]PkgSource, len(meta.Packages))
	what := make(map[string]Package, len(meta.Packages))
	for _, p := range meta.Packages {
		how[p.ID] = Foreign
		what[p.ID] = p
		if p.Source != nil && IsCratesIO(*p.Source) {
			how[p.ID] = CratesIO
		}
	}
	for _, id := range meta.WorkspaceMembers {
		if _, ok := how[id]; ok {
			how[id] = Local
		}
	}

	if noDev {
		how = reachableNonDev(meta, how)
	}

	out := make([]SourcedPackage, 0, len(how))
	for id, src := range how {
		out = append(out, SourcedPackage{Source: src, Package: what[id]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Package.ID < out[j].Package.ID })
	return out
}

func reachableNonDev(meta *Metadata, how map[string]PkgSource) map[string]PkgSource {
	kept := make(map[string]PkgSource)
	if meta.Resolve == nil {
		return kept
	}
	edges := make(map[string][]NodeDep, len(meta.Resolve.Nodes))
	for _, n := range meta.Resolve.Nodes {
		edges[n.ID] = n.Deps
	}

	var queue []string
	for id, src := range how {
		if src == Local {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		src, ok := how[id]
		if !ok {
			continue
		}
		if _, seen := kept[id]; seen {
			continue
		}
		kept[id] = src
		for _, d := range edges[id] {
			if d.nonDev() {
				queue = append(queue, d.Pkg)
			}
		}
	}
	return kept
}

// MetadataArgs are passed through to `cargo metadata`.
type MetadataArgs struct {
	AllFeatures       bool
	NoDefaultFeatures bool
	// Features is handed to cargo unparsed (space or comma separated).
	Features     string
	Target       string
	ManifestPath string
}

// Args returns the cargo command line for these arguments.
func (a MetadataArgs) Args() []string {
	args := []string{"metadata", "--format-version", "1"}
	if a.AllFeatures {
		args = append(args, "--all-features")
	}
	if a.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	if a.ManifestPath != "" {
		args = append(args, "--manifest-path", a.ManifestPath)
	}
	if a.Target != "" {
		args = append(args, "--filter-platform="+a.Target)
	}
	if a.Features != "" {
		args = append(args, "--features="+a.Features)
	}
	return args
}

// cargoCommand honours $CARGO, which cargo sets when running a subcommand.
func cargoCommand() string {
	if c := os.Getenv("CARGO"); c != "" {
		return c
	}
	return "cargo"
}

// Exec runs `cargo metadata` and parses its output. cargo's stderr is
// included in the error when it fails.
func Exec(ctx context.Context, args MetadataArgs) (*Metadata, error) {
	cmd := exec.CommandContext(ctx, cargoCommand(), args.Args()...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("cargo metadata failed: %s", msg)
		}
		return nil, fmt.Errorf("cargo metadata failed: %w", err)
	}
	return ParseMetadata(stdout.Bytes())
}
