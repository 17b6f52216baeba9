package storage

import "time"

// Event kinds.
const (
	KindAnalyze = "analyze"
	KindLookup  = "lookup"
)

// Event statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Record is one analyze or lookup outcome kept in the local history.
type Record struct {
	Source     string
	Slug       string
	Domain     string
	Kind       string // analyze | lookup
	Status     string // succeeded | failed
	Score      float64
	Message    string
	OccurredAt time.Time
}

// DomainStats aggregates history per registrable domain.
type DomainStats struct {
	Domain    string
	Lookups   int
	Analyses  int
	LastScore float64
}
