package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ScoutSync/internal/domain/models"
	domrepo "ScoutSync/internal/domain/repository"
	pkgpg "ScoutSync/pkg/postgres"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGFactStore implements FactStore on PostgreSQL.
type PGFactStore struct {
	client *pkgpg.Client
	pool   *pgxpool.Pool
}

func NewPGFactStore(client *pkgpg.Client) *PGFactStore {
	return &PGFactStore{client: client, pool: client.Pool()}
}

func (s *PGFactStore) Begin(ctx context.Context) (domrepo.FactTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &pgFactTx{tx: tx}, nil
}

func (s *PGFactStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *PGFactStore) Close() error {
	return s.client.Close()
}

type pgFactTx struct {
	tx pgx.Tx
}

func (t *pgFactTx) LookupStream(ctx context.Context, code string) (models.StreamID, bool, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM stock_metadata WHERE identifier = $1`, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup stream %q: %w", code, err)
	}
	return models.StreamID(id), true, nil
}

func (t *pgFactTx) LookupEntities(ctx context.Context, identifiers []string) (map[string]models.EntityKey, error) {
	out := make(map[string]models.EntityKey, len(identifiers))
	if len(identifiers) == 0 {
		return out, nil
	}

	rows, err := t.tx.Query(ctx, `SELECT id, ticker FROM stocks WHERE ticker = ANY($1)`, identifiers)
	if err != nil {
		return nil, fmt.Errorf("lookup entities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var ticker string
		if err := rows.Scan(&id, &ticker); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		out[ticker] = models.EntityKey(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (t *pgFactTx) ExistingEntities(ctx context.Context, stream models.StreamID, day time.Time) (map[models.EntityKey]struct{}, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT stock_id FROM stock_daily_facts WHERE metadata_id = $1 AND date = $2::text::date`,
		int64(stream), day.Format(models.DateLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("existing entities: %w", err)
	}
	defer rows.Close()

	out := make(map[models.EntityKey]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stock_id: %w", err)
		}
		out[models.EntityKey(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (t *pgFactTx) FactExists(ctx context.Context, entity models.EntityKey, stream models.StreamID, period models.Period) (bool, error) {
	var q string
	if period.Daily() {
		q = `SELECT EXISTS(SELECT 1 FROM stock_daily_facts WHERE stock_id = $1 AND metadata_id = $2 AND date = $3::text::date)`
	} else {
		q = `SELECT EXISTS(SELECT 1 FROM stock_fundamental_facts WHERE stock_id = $1 AND metadata_id = $2 AND period = $3)`
	}
	var ok bool
	if err := t.tx.QueryRow(ctx, q, int64(entity), int64(stream), period.Key()).Scan(&ok); err != nil {
		return false, fmt.Errorf("fact exists: %w", err)
	}
	return ok, nil
}

func (t *pgFactTx) InsertFact(ctx context.Context, f models.Fact) error {
	var q string
	if f.Period.Daily() {
		q = `INSERT INTO stock_daily_facts (stock_id, metadata_id, data, date, created_at)
			VALUES ($1, $2, $3::text::numeric, $4::text::date, $5)`
	} else {
		q = `INSERT INTO stock_fundamental_facts (stock_id, metadata_id, data, period, created_at)
			VALUES ($1, $2, $3::text::numeric, $4, $5)`
	}
	if _, err := t.tx.Exec(ctx, q, int64(f.Entity), int64(f.Stream), f.Value.String(), f.Period.Key(), f.RecordedAt); err != nil {
		return fmt.Errorf("insert fact %s/%s: %w", f.Identifier, f.Period.Key(), err)
	}
	return nil
}

func (t *pgFactTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgFactTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}
