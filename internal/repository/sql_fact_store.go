package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ScoutSync/internal/domain/models"
	domrepo "ScoutSync/internal/domain/repository"
	pkgsqlite "ScoutSync/pkg/sqlite"
)

// SQLFactStore implements FactStore on database/sql with ? placeholders (SQLite).
type SQLFactStore struct {
	client *pkgsqlite.Client
	db     *sql.DB
}

func NewSQLFactStore(client *pkgsqlite.Client) *SQLFactStore {
	return &SQLFactStore{client: client, db: client.DB()}
}

func (s *SQLFactStore) Begin(ctx context.Context) (domrepo.FactTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	return &sqlFactTx{tx: tx}, nil
}

func (s *SQLFactStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *SQLFactStore) Close() error {
	return s.client.Close()
}

// SeedStocks inserts stocks by ticker, ignoring ones that exist.
func (s *SQLFactStore) SeedStocks(ctx context.Context, tickers ...string) error {
	for _, t := range tickers {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO stocks (name, ticker) VALUES (?, ?)`, t, t); err != nil {
			return fmt.Errorf("seed stock %q: %w", t, err)
		}
	}
	return nil
}

// SeedStreams inserts metric streams by code, ignoring ones that exist.
func (s *SQLFactStore) SeedStreams(ctx context.Context, codes ...string) error {
	for _, c := range codes {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO stock_metadata (identifier) VALUES (?)`, c); err != nil {
			return fmt.Errorf("seed stream %q: %w", c, err)
		}
	}
	return nil
}

type sqlFactTx struct {
	tx *sql.Tx
}

func (t *sqlFactTx) LookupStream(ctx context.Context, code string) (models.StreamID, bool, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM stock_metadata WHERE identifier = ?`, code).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup stream %q: %w", code, err)
	}
	return models.StreamID(id), true, nil
}

func (t *sqlFactTx) LookupEntities(ctx context.Context, identifiers []string) (map[string]models.EntityKey, error) {
	out := make(map[string]models.EntityKey, len(identifiers))
	if len(identifiers) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(identifiers))
	for i, id := range identifiers {
		args[i] = id
	}
	q := fmt.Sprintf(`SELECT id, ticker FROM stocks WHERE ticker IN (%s)`, placeholders(len(identifiers)))

	rows, err := t.tx.QueryContext(ctx, q, args...)
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

func (t *sqlFactTx) ExistingEntities(ctx context.Context, stream models.StreamID, day time.Time) (map[models.EntityKey]struct{}, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT stock_id FROM stock_daily_facts WHERE metadata_id = ? AND date = ?`,
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

func (t *sqlFactTx) FactExists(ctx context.Context, entity models.EntityKey, stream models.StreamID, period models.Period) (bool, error) {
	q := `SELECT EXISTS(SELECT 1 FROM stock_fundamental_facts WHERE stock_id = ? AND metadata_id = ? AND period = ?)`
	if period.Daily() {
		q = `SELECT EXISTS(SELECT 1 FROM stock_daily_facts WHERE stock_id = ? AND metadata_id = ? AND date = ?)`
	}
	var n int
	if err := t.tx.QueryRowContext(ctx, q, int64(entity), int64(stream), period.Key()).Scan(&n); err != nil {
		return false, fmt.Errorf("fact exists: %w", err)
	}
	return n > 0, nil
}

func (t *sqlFactTx) InsertFact(ctx context.Context, f models.Fact) error {
	q := `INSERT INTO stock_fundamental_facts (stock_id, metadata_id, data, period, created_at) VALUES (?, ?, ?, ?, ?)`
	if f.Period.Daily() {
		q = `INSERT INTO stock_daily_facts (stock_id, metadata_id, data, date, created_at) VALUES (?, ?, ?, ?, ?)`
	}
	_, err := t.tx.ExecContext(ctx, q,
		int64(f.Entity), int64(f.Stream), f.Value.String(), f.Period.Key(),
		f.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert fact %s/%s: %w", f.Identifier, f.Period.Key(), err)
	}
	return nil
}

func (t *sqlFactTx) Commit(_ context.Context) error {
	return t.tx.Commit()
}

func (t *sqlFactTx) Rollback(_ context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
