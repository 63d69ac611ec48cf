package cli

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rust-secure-code/cargo-supply-chain/pkg/publishers"
)

// structuredOutput is the document printed by the json command.
type structuredOutput struct {
	NotAudited notAudited `json:"not_audited"`
	// CratesIOCrates maps crate names to the publishers of each crate.
	CratesIOCrates map[string][]publishers.PublisherData `json:"crates_io_crates"`
}

type notAudited struct {
	// LocalCrates come from a local directory, not a registry.
	LocalCrates []string `json:"local_crates"`
	// ForeignCrates are neither from crates.io nor local.
	ForeignCrates []string `json:"foreign_crates"`
}

func (c *CLI) jsonCommand() *cobra.Command {
	opts := newQueryOptions()
	var printSchema bool
	cmd := &cobra.Command{
		Use:   "json",
		Short: "Detailed info on publishers of all crates in the dependency graph, in JSON",
		Long: `Detailed info on publishers of all crates in the dependency graph, in JSON.

The JSON schema is also available, use --print-schema to get it.

` + cacheHelp,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), jsonSchema)
				return err
			}
			report, err := c.collect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), report.structured(), opts.diffable)
		},
	}
	opts.register(cmd, true)
	cmd.Flags().BoolVar(&printSchema, "print-schema", false, "print JSON schema and exit")
	cmd.MarkFlagsMutuallyExclusive("print-schema", "diffable")
	cmd.MarkFlagsMutuallyExclusive("print-schema", "cache-max-age")
	return cmd
}

// structured merges users and teams per crate, each group sorted by login.
func (r *dependencyReport) structured() structuredOutput {
	out := structuredOutput{
		NotAudited: notAudited{
			LocalCrates:   nonNilStrings(r.local),
			ForeignCrates: nonNilStrings(r.foreign),
		},
		CratesIOCrates: make(map[string][]publishers.PublisherData),
	}
	byLogin := func(a, b publishers.PublisherData) int { return cmp.Compare(a.Login, b.Login) }
	for _, name := range r.owners.Crates() {
		users := slices.Clone(r.owners.Users[name])
		teams := slices.Clone(r.owners.Teams[name])
		slices.SortStableFunc(users, byLogin)
		slices.SortStableFunc(teams, byLogin)
		out.CratesIOCrates[name] = append(append(make([]publishers.PublisherData, 0, len(users)+len(teams)), users...), teams...)
	}
	return out
}

// writeJSON encodes doc compactly, or indented for diffing.
func writeJSON(w io.Writer, doc structuredOutput, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(doc)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

const jsonSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "StructuredOutput",
  "type": "object",
  "required": [
    "crates_io_crates",
    "not_audited"
  ],
  "properties": {
    "crates_io_crates": {
      "description": "Maps crate names to info about the publishers of each crate",
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": {
          "$ref": "#/definitions/PublisherData"
        }
      }
    },
    "not_audited": {
      "$ref": "#/definitions/NotAudited"
    }
  },
  "definitions": {
    "NotAudited": {
      "type": "object",
      "required": [
        "foreign_crates",
        "local_crates"
      ],
      "properties": {
        "foreign_crates": {
          "description": "Names of crates that are neither from crates.io nor from a local filesystem",
          "type": "array",
          "items": {
            "type": "string"
          }
        },
        "local_crates": {
          "description": "Names of crates that are imported from a location in the local filesystem, not from a registry",
          "type": "array",
          "items": {
            "type": "string"
          }
        }
      }
    },
    "PublisherData": {
      "description": "Data about a single publisher received from a crates.io API endpoint",
      "type": "object",
      "required": [
        "id",
        "kind",
        "login"
      ],
      "properties": {
        "avatar": {
          "description": "Avatar image URL",
          "type": [
            "string",
            "null"
          ]
        },
        "id": {
          "type": "integer",
          "format": "uint64",
          "minimum": 0.0
        },
        "kind": {
          "$ref": "#/definitions/PublisherKind"
        },
        "login": {
          "type": "string"
        },
        "name": {
          "description": "Display name. It is NOT guaranteed to be unique!",
          "type": [
            "string",
            "null"
          ]
        },
        "url": {
          "description": "Profile URL; absent when the data came from the local crates.io dump",
          "type": [
            "string",
            "null"
          ]
        }
      }
    },
    "PublisherKind": {
      "type": "string",
      "enum": [
        "team",
        "user"
      ]
    }
  }
}`
