package existence

import (
	"context"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/repository"
)

type dayKey struct {
	stream models.StreamID
	day    string
}

type factKey struct {
	entity models.EntityKey
	stream models.StreamID
	period string
}

// Oracle answers "does this fact already exist?" for one file's transaction.
// Daily periods are answered from one set query per (stream, day); yearly
// candidates are queried individually. Facts inserted through the same
// oracle are remembered, so a repeated triple within a file is reported
// as existing.
type Oracle struct {
	reader   repository.FactReader
	days     map[dayKey]map[models.EntityKey]struct{}
	inserted map[factKey]struct{}
	queries  int
}

func New(reader repository.FactReader) *Oracle {
	return &Oracle{
		reader:   reader,
		days:     make(map[dayKey]map[models.EntityKey]struct{}),
		inserted: make(map[factKey]struct{}),
	}
}

// Existing returns the entities that already have a fact for (stream, day).
// The store is queried at most once per distinct pair.
func (o *Oracle) Existing(ctx context.Context, stream models.StreamID, day time.Time) (map[models.EntityKey]struct{}, error) {
	k := dayKey{stream: stream, day: day.Format(models.DateLayout)}
	if set, ok := o.days[k]; ok {
		return set, nil
	}
	o.queries++
	set, err := o.reader.ExistingEntities(ctx, stream, day)
	if err != nil {
		return nil, models.PersistenceError("query existing daily facts", err)
	}
	if set == nil {
		set = make(map[models.EntityKey]struct{})
	}
	o.days[k] = set
	return set, nil
}

// Exists reports whether a fact exists for the triple.
func (o *Oracle) Exists(ctx context.Context, entity models.EntityKey, stream models.StreamID, period models.Period) (bool, error) {
	if _, ok := o.inserted[factKey{entity, stream, period.Key()}]; ok {
		return true, nil
	}
	if period.Daily() {
		set, err := o.Existing(ctx, stream, period.Day())
		if err != nil {
			return false, err
		}
		_, ok := set[entity]
		return ok, nil
	}
	o.queries++
	ok, err := o.reader.FactExists(ctx, entity, stream, period)
	if err != nil {
		return false, models.PersistenceError("query existing fact", err)
	}
	return ok, nil
}

// MarkInserted records a fact written in the current transaction.
func (o *Oracle) MarkInserted(f models.Fact) {
	o.inserted[factKey{f.Entity, f.Stream, f.Period.Key()}] = struct{}{}
	if f.Period.Daily() {
		if set, ok := o.days[dayKey{f.Stream, f.Period.Key()}]; ok {
			set[f.Entity] = struct{}{}
		}
	}
}

// Queries returns how many store queries the oracle has issued.
func (o *Oracle) Queries() int { return o.queries }
