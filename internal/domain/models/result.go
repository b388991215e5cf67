package models

import "time"

// Status is the terminal state of one file's reconciliation.
type Status string

const (
	StatusOK               Status = "ok"
	StatusMetadataNotFound Status = "metadata_not_found"
	StatusFailed           Status = "failed"
)

// Outcome messages delivered to the notifier.
const (
	MessageComplete = "Data processing complete."
)

// ReconciliationResult is the per-file outcome handed to the notifier.
type ReconciliationResult struct {
	RunID      string    `json:"run_id"`
	File       string    `json:"file"`
	Path       string    `json:"path"`
	Mode       Mode      `json:"mode"`
	Streams    []string  `json:"streams,omitempty"`
	Status     Status    `json:"status"`
	Records    int       `json:"records"`
	Inserted   int       `json:"inserted"`
	Skipped    int       `json:"skipped"`
	Unresolved []string  `json:"unresolved"`
	Message    string    `json:"message"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	seen map[string]struct{}
}

// NewResult starts a result for the given file.
func NewResult(runID, path, file string, mode Mode, now time.Time) *ReconciliationResult {
	return &ReconciliationResult{
		RunID:      runID,
		Path:       path,
		File:       file,
		Mode:       mode,
		Unresolved: []string{},
		StartedAt:  now,
		seen:       make(map[string]struct{}),
	}
}

// AddUnresolved records an identifier once, keeping first-seen order.
func (r *ReconciliationResult) AddUnresolved(id string) {
	if r.seen == nil {
		r.seen = make(map[string]struct{})
	}
	if _, ok := r.seen[id]; ok {
		return
	}
	r.seen[id] = struct{}{}
	r.Unresolved = append(r.Unresolved, id)
}

// HasUnresolved reports whether any identifier failed to resolve.
func (r *ReconciliationResult) HasUnresolved() bool { return len(r.Unresolved) > 0 }

// RunSummary groups the results of one runner invocation.
type RunSummary struct {
	RunID      string                  `json:"run_id"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Skipped    []string                `json:"skipped_files,omitempty"`
	Results    []*ReconciliationResult `json:"results"`
}

// Inserted sums inserted facts across files.
func (s *RunSummary) Inserted() int {
	n := 0
	for _, r := range s.Results {
		n += r.Inserted
	}
	return n
}
