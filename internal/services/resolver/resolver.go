package resolver

import (
	"context"
	"strconv"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/repository"
	"ScoutSync/pkg/cache"
	applogger "ScoutSync/pkg/logger"
)

const (
	DefaultChunkSize = 500
	DefaultTTL       = time.Hour
	keyPrefix        = "entity"
)

// Option configures Resolver.
type Option func(*Resolver)

// WithCache puts a cache in front of the entity lookup. Only resolved identifiers are cached.
func WithCache(c cache.Service, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithChunkSize bounds the number of identifiers per lookup query.
func WithChunkSize(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.chunk = n
		}
	}
}

func WithLogger(l *applogger.Logger) Option {
	return func(r *Resolver) { r.l = l }
}

// Resolver maps spreadsheet identifiers (tickers) to entity keys in batches.
type Resolver struct {
	cache cache.Service
	ttl   time.Duration
	chunk int
	l     *applogger.Logger
}

func New(opts ...Option) *Resolver {
	r := &Resolver{ttl: DefaultTTL, chunk: DefaultChunkSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the entity key of every identifier known to the store.
// Identifiers missing from the result are unresolved; that is not an error.
func (r *Resolver) Resolve(ctx context.Context, lookup repository.ReferenceLookup, ids []string) (map[string]models.EntityKey, error) {
	distinct := dedupe(ids)
	out := make(map[string]models.EntityKey, len(distinct))
	if len(distinct) == 0 {
		return out, nil
	}

	misses := r.fromCache(ctx, distinct, out)

	fresh := make(map[string]models.EntityKey, len(misses))
	for start := 0; start < len(misses); start += r.chunk {
		end := start + r.chunk
		if end > len(misses) {
			end = len(misses)
		}
		found, err := lookup.LookupEntities(ctx, misses[start:end])
		if err != nil {
			return nil, models.PersistenceError("lookup entities", err)
		}
		for id, key := range found {
			fresh[id] = key
			out[id] = key
		}
	}

	r.toCache(ctx, fresh)
	return out, nil
}

// fromCache fills out with cached keys and returns the identifiers still to look up.
func (r *Resolver) fromCache(ctx context.Context, ids []string, out map[string]models.EntityKey) []string {
	if r.cache == nil {
		return ids
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cache.GenerateKey(keyPrefix, id)
	}
	hits, err := r.cache.MGet(ctx, keys...)
	if err != nil {
		if r.l != nil {
			r.l.Warn("resolver cache read failed", applogger.Error(err))
		}
		return ids
	}

	misses := make([]string, 0, len(ids))
	for i, id := range ids {
		raw, ok := hits[keys[i]]
		if !ok {
			misses = append(misses, id)
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			misses = append(misses, id)
			continue
		}
		out[id] = models.EntityKey(n)
	}
	return misses
}

func (r *Resolver) toCache(ctx context.Context, fresh map[string]models.EntityKey) {
	if r.cache == nil || len(fresh) == 0 {
		return
	}
	values := make(map[string]string, len(fresh))
	for id, key := range fresh {
		values[cache.GenerateKey(keyPrefix, id)] = strconv.FormatInt(int64(key), 10)
	}
	if err := r.cache.MSet(ctx, values, r.ttl); err != nil && r.l != nil {
		r.l.Warn("resolver cache write failed", applogger.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
