package deps

import (
	"slices"
	"strings"
)

// Author is one entry of a package's `authors` list.
type Author struct {
	Name string
	// Local is set for authors of workspace members. Everything else,
	// crates.io included, is reported as coming from an unknown registry
	// since the field is self-declared and unverified.
	Local bool
}

func (a Author) String() string {
	if a.Local {
		return a.Name + "\t\tlocal"
	}
	return a.Name + "\t\tunknown registry"
}

// AuthorsOf returns every author declared by pkgs, deduplicated and sorted
// by their printed form.
func AuthorsOf(pkgs []SourcedPackage) []Author {
	seen := make(map[Author]struct{})
	var out []Author
	for _, p := range pkgs {
		for _, name := range p.Package.Authors {
			a := Author{Name: name, Local: p.Source == Local}
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Author) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}
