package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"ScoutSync/internal/domain/models"
	pkgch "ScoutSync/pkg/clickhouse"
	applogger "ScoutSync/pkg/logger"
)

const mirrorChunkSize = 2000

// CHFactMirror copies committed facts into ClickHouse for analytics.
type CHFactMirror struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHFactMirror(ch *pkgch.Client, database string) *CHFactMirror {
	return &CHFactMirror{db: ch.DB(), table: database + ".fact_mirror"}
}

// SetLogger injects a structured logger.
func (m *CHFactMirror) SetLogger(l *applogger.Logger) { m.l = l }

// MirrorFacts inserts facts with multi-row VALUES statements.
func (m *CHFactMirror) MirrorFacts(ctx context.Context, facts []models.Fact) error {
	for start := 0; start < len(facts); start += mirrorChunkSize {
		end := start + mirrorChunkSize
		if end > len(facts) {
			end = len(facts)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, f := range facts[start:end] {
			if !f.Period.Valid() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				int64(f.Entity),
				f.Identifier,
				int64(f.Stream),
				f.StreamCode,
				f.Period.Key(),
				f.Period.Kind().String(),
				f.Value,
				f.RecordedAt.UTC(),
			)
		}
		if len(values) == 0 {
			continue
		}

		q := fmt.Sprintf("INSERT INTO %s (stock_id, ticker, metadata_id, stream, period, period_kind, value, recorded_at) VALUES %s",
			m.table, strings.Join(values, ","))
		if _, err := m.db.ExecContext(ctx, q, args...); err != nil {
			if m.l != nil {
				m.l.Error("clickhouse mirror insert error",
					applogger.String("table", m.table),
					applogger.Int("rows", len(values)),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("mirror facts: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the connection pool is owned by pkg/clickhouse.Client.
func (m *CHFactMirror) Close() error {
	return nil
}
