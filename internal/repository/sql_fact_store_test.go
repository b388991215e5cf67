package repository

import (
	"context"
	"testing"
	"time"

	"ScoutSync/internal/domain/models"
	pkgsqlite "ScoutSync/pkg/sqlite"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLFactStore {
	t.Helper()
	ctx := context.Background()

	client, err := pkgsqlite.NewClient(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.InitSchema(ctx, SQLiteSchema))

	store := NewSQLFactStore(client)
	require.NoError(t, store.SeedStocks(ctx, "AAA", "BBB"))
	require.NoError(t, store.SeedStreams(ctx, "PX", "MC"))
	return store
}

func TestSQLFactStoreLookups(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	id, ok, err := tx.LookupStream(ctx, "PX")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotZero(t, id)

	_, ok, err = tx.LookupStream(ctx, "EBITDA")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := tx.LookupEntities(ctx, []string{"AAA", "ZZZ", "BBB"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "AAA")
	assert.NotContains(t, got, "ZZZ")
}

func TestSQLFactStoreInsertAndExists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)

	stream, _, err := tx.LookupStream(ctx, "PX")
	require.NoError(t, err)
	ents, err := tx.LookupEntities(ctx, []string{"AAA"})
	require.NoError(t, err)

	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	daily := models.Fact{Entity: ents["AAA"], Stream: stream, Identifier: "AAA", Period: models.DatePeriod(day), Value: decimal.RequireFromString("10.5"), RecordedAt: time.Now()}
	yearly := models.Fact{Entity: ents["AAA"], Stream: stream, Identifier: "AAA", Period: models.TrailingPeriod("LTM"), Value: decimal.RequireFromString("300"), RecordedAt: time.Now()}
	require.NoError(t, tx.InsertFact(ctx, daily))
	require.NoError(t, tx.InsertFact(ctx, yearly))
	require.NoError(t, tx.Commit(ctx))
	require.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")

	// the single connection is free again once the tx is done
	var data string
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT data FROM stock_daily_facts`).Scan(&data))
	assert.Equal(t, "10.5", data)

	tx, err = store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	set, err := tx.ExistingEntities(ctx, stream, day)
	require.NoError(t, err)
	assert.Equal(t, map[models.EntityKey]struct{}{ents["AAA"]: {}}, set)

	ok, err := tx.FactExists(ctx, ents["AAA"], stream, models.TrailingPeriod("LTM"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = tx.FactExists(ctx, ents["AAA"], stream, models.FiscalYearPeriod(2023))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = tx.FactExists(ctx, ents["AAA"], stream, models.DatePeriod(day))
	require.NoError(t, err)
	assert.True(t, ok)

}

func TestSQLFactStoreRollbackDiscardsFacts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	stream, _, _ := tx.LookupStream(ctx, "MC")
	ents, _ := tx.LookupEntities(ctx, []string{"BBB"})
	require.NoError(t, tx.InsertFact(ctx, models.Fact{Entity: ents["BBB"], Stream: stream, Period: models.FiscalYearPeriod(2022), Value: decimal.NewFromInt(1), RecordedAt: time.Now()}))
	require.NoError(t, tx.Rollback(ctx))

	var n int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM stock_fundamental_facts`).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLFactStoreRejectsDuplicateTriple(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	stream, _, _ := tx.LookupStream(ctx, "MC")
	ents, _ := tx.LookupEntities(ctx, []string{"AAA"})
	f := models.Fact{Entity: ents["AAA"], Stream: stream, Period: models.FiscalYearPeriod(2022), Value: decimal.NewFromInt(1), RecordedAt: time.Now()}
	require.NoError(t, tx.InsertFact(ctx, f))
	assert.Error(t, tx.InsertFact(ctx, f))
}
