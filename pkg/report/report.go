// Package report defines the hosted report document and the index that
// points at every published report.
package report

import "time"

// Summary is the scored content summary produced for one page.
type Summary struct {
	Summary  string   `json:"summary"`
	Brand    string   `json:"brand"`
	Services []string `json:"services"`
	Location string   `json:"location"`
	Topics   []string `json:"topics"`
	AIOScore float64  `json:"aio_score"`
}

// Report is the JSON document hosted at data/<slug>.json. The lookup side
// reads Data.AIOScore out of it.
type Report struct {
	Source      string  `json:"source"`
	GeneratedAt string  `json:"generated_at"`
	Data        Summary `json:"data"`
}

// New stamps a report for the given source page.
func New(source string, data Summary) Report {
	return Report{
		Source:      source,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Data:        data,
	}
}

// IndexEntry is one record in the hosted index.json.
type IndexEntry struct {
	Source      string  `json:"source"`
	JSON        string  `json:"json"`
	AIOScore    float64 `json:"aio_score"`
	LastUpdated string  `json:"last_updated"`
}

// UpsertIndex replaces any entry with the same source, or appends. Identity
// is the source URL, so re-analyzing a page never grows the index.
func UpsertIndex(entries []IndexEntry, e IndexEntry) []IndexEntry {
	out := make([]IndexEntry, 0, len(entries)+1)
	for _, existing := range entries {
		if existing.Source != e.Source {
			out = append(out, existing)
		}
	}
	return append(out, e)
}
