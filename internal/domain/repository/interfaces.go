package repository

import (
	"context"
	"time"

	"ScoutSync/internal/domain/models"
)

// FactStore opens one transaction per source file.
type FactStore interface {
	Begin(ctx context.Context) (FactTx, error)
	Health(ctx context.Context) error
	Close() error
}

// ReferenceLookup resolves reference data (metric streams and stocks).
type ReferenceLookup interface {
	LookupStream(ctx context.Context, code string) (models.StreamID, bool, error)
	// LookupEntities returns the keys of the identifiers that exist; missing ones are absent.
	LookupEntities(ctx context.Context, identifiers []string) (map[string]models.EntityKey, error)
}

// FactReader answers existence questions against committed facts.
type FactReader interface {
	ExistingEntities(ctx context.Context, stream models.StreamID, day time.Time) (map[models.EntityKey]struct{}, error)
	FactExists(ctx context.Context, entity models.EntityKey, stream models.StreamID, period models.Period) (bool, error)
}

// FactTx is the persistence collaborator scoped to one file.
type FactTx interface {
	ReferenceLookup
	FactReader
	InsertFact(ctx context.Context, f models.Fact) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// FactMirror receives committed facts for downstream analytics.
type FactMirror interface {
	MirrorFacts(ctx context.Context, facts []models.Fact) error
	Close() error
}

// Workbook is an opened spreadsheet file.
type Workbook interface {
	SheetNames() []string
	Sheet(name string) (models.Grid, error)
	Close() error
}

// WorkbookOpener opens spreadsheet files from local storage.
type WorkbookOpener interface {
	Open(path string) (Workbook, error)
}

type Metrics interface {
	RecordFile(mode, status string)
	RecordFacts(mode, stream string, inserted, skipped int)
	RecordUnresolved(mode string, n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
