package deps

import (
	"slices"
	"strings"
)

// PkgSource says where a package was obtained from.
type PkgSource int

const (
	Foreign PkgSource = iota
	CratesIO
	Local
)

func (s PkgSource) String() string {
	switch s {
	case Local:
		return "local"
	case CratesIO:
		return "crates.io"
	default:
		return "foreign"
	}
}

// Package is the part of a cargo package description this tool uses.
type Package struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Source  *string  `json:"source"`
	Authors []string `json:"authors"`
}

// SourcedPackage is a package together with its classification.
type SourcedPackage struct {
	Source  PkgSource
	Package Package
}

// Source strings cargo uses for the crates.io index.
const (
	CratesIOGitSource    = "registry+https://github.com/rust-lang/crates.io-index"
	CratesIOSparseSource = "sparse+https://index.crates.io/"
)

// IsCratesIO reports whether a cargo source string names crates.io.
// Lock files may append a "#<hash>" fragment.
func IsCratesIO(source string) bool {
	source, _, _ = strings.Cut(source, "#")
	return source == CratesIOGitSource || source == CratesIOSparseSource
}

// CrateNames returns the sorted, deduplicated names of the packages with
// the given source.
func CrateNames(pkgs []SourcedPackage, source PkgSource) []string {
	var names []string
	for _, p := range pkgs {
		if p.Source == source {
			names = append(names, p.Package.Name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}
