package runs

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/loom/pkg/query"
	"github.com/JaimeStill/loom/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "runs", "r").
	Project("id", "ID").
	Project("epic_prefix", "EpicPrefix").
	Project("story_id", "StoryID").
	Project("phase", "Phase").
	Project("score", "Score").
	Project("fingerprint", "Fingerprint").
	Project("state", "State").
	Project("outputs", "Outputs").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for run queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	EpicPrefix *string `json:"epic_prefix,omitempty"`
	StoryID    *string `json:"story_id,omitempty"`
	Phase      *string `json:"phase,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("EpicPrefix", f.EpicPrefix).
		WhereEquals("StoryID", f.StoryID).
		WhereEquals("Phase", f.Phase)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if e := values.Get("epic_prefix"); e != "" {
		f.EpicPrefix = &e
	}

	if s := values.Get("story_id"); s != "" {
		f.StoryID = &s
	}

	if p := values.Get("phase"); p != "" {
		f.Phase = &p
	}

	return f
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	var stateRaw, outputsRaw []byte

	err := s.Scan(
		&r.ID,
		&r.EpicPrefix,
		&r.StoryID,
		&r.Phase,
		&r.Score,
		&r.Fingerprint,
		&stateRaw,
		&outputsRaw,
		&r.CreatedAt,
		&r.UpdatedAt,
	)

	if err != nil {
		return r, err
	}

	if len(stateRaw) > 0 {
		if err := json.Unmarshal(stateRaw, &r.State); err != nil {
			return r, fmt.Errorf("unmarshal state: %w", err)
		}
	}

	if len(outputsRaw) > 0 {
		if err := json.Unmarshal(outputsRaw, &r.Outputs); err != nil {
			return r, fmt.Errorf("unmarshal outputs: %w", err)
		}
	}

	return r, nil
}
