package deps

import (
	"slices"
	"testing"
)

func TestAuthorsOf(t *testing.T) {
	pkgs := []SourcedPackage{
		{Source: Local, Package: Package{Name: "app", Authors: []string{"Me <me@example.com>"}}},
		{Source: CratesIO, Package: Package{Name: "serde", Authors: []string{"Erick Tryzelaar", "David Tolnay <dtolnay@gmail.com>"}}},
		{Source: CratesIO, Package: Package{Name: "serde_derive", Authors: []string{"David Tolnay <dtolnay@gmail.com>"}}},
		{Source: Foreign, Package: Package{Name: "gitdep", Authors: []string{"Me <me@example.com>"}}},
		{Source: CratesIO, Package: Package{Name: "rand"}},
	}
	var got []string
	for _, a := range AuthorsOf(pkgs) {
		got = append(got, a.String())
	}
	want := []string{
		"David Tolnay <dtolnay@gmail.com>\t\tunknown registry",
		"Erick Tryzelaar\t\tunknown registry",
		"Me <me@example.com>\t\tlocal",
		"Me <me@example.com>\t\tunknown registry",
	}
	if !slices.Equal(got, want) {
		t.Errorf("AuthorsOf() =\n%q\nwant\n%q", got, want)
	}
}

func TestAuthorsOfEmpty(t *testing.T) {
	if got := AuthorsOf(nil); len(got) != 0 {
		t.Errorf("AuthorsOf(nil) = %v, want empty", got)
	}
}

func TestAuthorsFromMetadata(t *testing.T) {
	meta, err := ParseMetadata([]byte(`{
  "packages": [
    {"id": "app 0.1.0 (path+file:///w/app)", "name": "app", "version": "0.1.0", "source": null, "authors": ["Me"]},
    {"id": "serde 1.0.0 (registry+https://github.com/rust-lang/crates.io-index)", "name": "serde", "version": "1.0.0",
     "source": "registry+https://github.com/rust-lang/crates.io-index", "authors": ["David Tolnay"]}
  ],
  "workspace_members": ["app 0.1.0 (path+file:///w/app)"]
}`))
	if err != nil {
		t.Fatal(err)
	}
	got := AuthorsOf(FromMetadata(meta, false))
	want := []Author{{Name: "David Tolnay"}, {Name: "Me", Local: true}}
	if !slices.Equal(got, want) {
		t.Errorf("AuthorsOf(FromMetadata) = %v, want %v", got, want)
	}
}
