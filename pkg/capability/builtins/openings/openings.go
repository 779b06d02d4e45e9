// Package openings provides the search-internal-openings capability, a
// case-insensitive title search over the company's job vacancies.
package openings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/storage"
)

// Name is the capability name the oracle sees.
const Name = "search-internal-openings"

// NoMatch is returned when no opening matches.
const NoMatch = "No job found of your interest"

// New returns the capability reading openings from jobs.
func New(jobs storage.RecordSet) capability.Capability {
	return capability.New(capability.Declaration{
		Name:        Name,
		Description: "Search for job opportunities for the user within the company",
		Parameters: capability.ObjectSchema(nil, map[string]*jsonschema.Schema{
			"title-substring": {
				Type:        "string",
				Description: "Part of the job title to look for; empty lists every opening",
				Default:     json.RawMessage(`""`),
			},
		}),
	}, func(ctx context.Context, args map[string]any) (string, error) {
		title := capability.StringArg(args, "title-substring")
		slog.Info("searching internal openings", "title", title)

		records, err := jobs.ReadAll(ctx)
		if err != nil {
			return "", err
		}

		matches := Match(records, title)
		if len(matches) == 0 {
			return NoMatch, nil
		}

		data, err := json.Marshal(matches)
		if err != nil {
			return "", fmt.Errorf("encoding openings: %w", err)
		}
		return "Found a job of your interest i.e " + string(data), nil
	})
}

// Match returns the records whose title contains substr, ignoring case.
// Records without a string title never match.
func Match(records []storage.Record, substr string) []storage.Record {
	needle := strings.ToLower(substr)
	var out []storage.Record
	for _, r := range records {
		title, ok := r["title"].(string)
		if !ok {
			continue
		}
		if strings.Contains(strings.ToLower(title), needle) {
			out = append(out, r)
		}
	}
	return out
}
