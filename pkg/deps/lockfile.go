package deps

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/errors"
)

type lockFile struct {
	Version  int           `toml:"version"`
	Packages []lockPackage `toml:"package"`
}

type lockPackage struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version"`
	Source       string   `toml:"source"`
	Checksum     string   `toml:"checksum"`
	Dependencies []string `toml:"dependencies"`
}

// FromLockfile classifies the packages listed in a Cargo.lock. Packages
// without a source are built from a local path and count as Local.
func FromLockfile(path string) ([]SourcedPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIO, err, "read %s", path)
	}
	return ParseLockfile(data)
}

// ParseLockfile is FromLockfile for lock file contents.
func ParseLockfile(data []byte) ([]SourcedPackage, error) {
	var lf lockFile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDeserialize, err, "parse Cargo.lock")
	}
	out := make([]SourcedPackage, 0, len(lf.Packages))
	for _, p := range lf.Packages {
		pkg := Package{
			ID:      p.Name + " " + p.Version,
			Name:    p.Name,
			Version: p.Version,
		}
		src := Local
		if p.Source != "" {
			source := p.Source
			pkg.Source = &source
			pkg.ID += " (" + p.Source + ")"
			src = Foreign
			if IsCratesIO(p.Source) {
				src = CratesIO
			}
		}
		out = append(out, SourcedPackage{Source: src, Package: pkg})
	}
	return out, nil
}
