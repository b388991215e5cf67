package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ScoutSync/internal/domain/models"
	domrepo "ScoutSync/internal/domain/repository"
	"ScoutSync/internal/domain/service"
	"ScoutSync/internal/repository"
	pkgsqlite "ScoutSync/pkg/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s(v string) models.Cell { return models.StringCell(v) }
func n(v string) models.Cell { return models.NumberCell(v) }

type fakeWorkbook struct {
	names  []string
	sheets map[string]models.Grid
}

func (w *fakeWorkbook) SheetNames() []string { return w.names }

func (w *fakeWorkbook) Sheet(name string) (models.Grid, error) {
	g, ok := w.sheets[name]
	if !ok {
		return nil, models.StructuralInputErrorf("sheet %s not found", name)
	}
	return g, nil
}

func (w *fakeWorkbook) Close() error { return nil }

type fakeOpener struct {
	books map[string]*fakeWorkbook
	panic bool
}

func (o *fakeOpener) Open(path string) (domrepo.Workbook, error) {
	if o.panic {
		panic("corrupt zip directory")
	}
	wb, ok := o.books[path]
	if !ok {
		return nil, models.StructuralInputError("open workbook "+path, errors.New("no such file"))
	}
	return wb, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	results []*models.ReconciliationResult
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, res *models.ReconciliationResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, res)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.results)
}

type recordingMirror struct {
	facts []models.Fact
	err   error
}

func (m *recordingMirror) MirrorFacts(_ context.Context, facts []models.Fact) error {
	m.facts = append(m.facts, facts...)
	return m.err
}

func (m *recordingMirror) Close() error { return nil }

// failingStore fails InsertFact once failAfter inserts have succeeded.
type failingStore struct {
	domrepo.FactStore
	failAfter  int
	rolledBack bool
	committed  bool
}

func (f *failingStore) Begin(ctx context.Context) (domrepo.FactTx, error) {
	tx, err := f.FactStore.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{FactTx: tx, store: f}, nil
}

type failingTx struct {
	domrepo.FactTx
	store    *failingStore
	inserted int
}

func (t *failingTx) InsertFact(ctx context.Context, f models.Fact) error {
	if t.inserted >= t.store.failAfter {
		return errors.New("disk full")
	}
	t.inserted++
	return t.FactTx.InsertFact(ctx, f)
}

func (t *failingTx) Commit(ctx context.Context) error {
	t.store.committed = true
	return t.FactTx.Commit(ctx)
}

func (t *failingTx) Rollback(ctx context.Context) error {
	t.store.rolledBack = true
	return t.FactTx.Rollback(ctx)
}

func newStore(t *testing.T) *repository.SQLFactStore {
	t.Helper()
	ctx := context.Background()

	client, err := pkgsqlite.NewClient(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.InitSchema(ctx, repository.SQLiteSchema))

	store := repository.NewSQLFactStore(client)
	require.NoError(t, store.SeedStocks(ctx, "AAA", "BBB", "CCC"))
	require.NoError(t, store.SeedStreams(ctx, "PX", "MC", "Volume", "Revenue"))
	return store
}

// factExists checks a committed fact through a fresh transaction.
func factExists(t *testing.T, store domrepo.FactStore, ticker, stream string, p models.Period) bool {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	sid, ok, err := tx.LookupStream(ctx, stream)
	require.NoError(t, err)
	require.True(t, ok)
	keys, err := tx.LookupEntities(ctx, []string{ticker})
	require.NoError(t, err)
	require.Contains(t, keys, ticker)

	exists, err := tx.FactExists(ctx, keys[ticker], sid, p)
	require.NoError(t, err)
	return exists
}

func dailyBook(tickers []string, rows ...[]models.Cell) *fakeWorkbook {
	header := []models.Cell{s("Dates")}
	for _, t := range tickers {
		header = append(header, s(t))
	}
	g := models.Grid{{s("Bloomberg")}, {}, header, {s("Start")}, {}}
	g = append(g, rows...)
	return &fakeWorkbook{names: []string{"Sheet1"}, sheets: map[string]models.Grid{"Sheet1": g}}
}

func yearlyBook(sheets map[string]models.Grid, order ...string) *fakeWorkbook {
	return &fakeWorkbook{names: order, sheets: sheets}
}

func newReconciler(store domrepo.FactStore, opener domrepo.WorkbookOpener, notifier service.Notifier, opts ...ReconcilerOption) *Reconciler {
	clock := func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	opts = append([]ReconcilerOption{WithReconcilerClock(clock)}, opts...)
	return NewReconciler(store, opener, nil, nil, nil, notifier, opts...)
}

func day(y int, m time.Month, d int) models.Period {
	return models.DatePeriod(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestReconcileDailyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	opener := &fakeOpener{books: map[string]*fakeWorkbook{
		"/in/PX_USD.xlsx": dailyBook([]string{"AAA", "BBB"},
			[]models.Cell{s("2024-01-05"), n("10.5"), s("NaN")},
		),
	}}
	notifier := &recordingNotifier{}
	rec := newReconciler(store, opener, notifier)

	res := rec.ReconcileFile(ctx, "run-1", "/in/PX_USD.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusOK, res.Status)
	assert.Equal(t, models.MessageComplete, res.Message)
	assert.Equal(t, "PX_USD.xlsx", res.File)
	assert.Equal(t, []string{"PX"}, res.Streams)
	assert.Equal(t, 1, res.Records)
	assert.Equal(t, 1, res.Inserted)
	assert.Empty(t, res.Unresolved)
	assert.True(t, factExists(t, store, "AAA", "PX", day(2024, 1, 5)))
	assert.False(t, factExists(t, store, "BBB", "PX", day(2024, 1, 5)))

	again := rec.ReconcileFile(ctx, "run-2", "/in/PX_USD.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusOK, again.Status)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 1, again.Skipped)
	assert.Equal(t, 2, notifier.count())
}

func TestReconcileDailyTruncatesRows(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	var rows [][]models.Cell
	for i := 1; i <= 12; i++ {
		rows = append(rows, []models.Cell{s(fmt.Sprintf("2024-02-%02d", i)), n(fmt.Sprint(i))})
	}
	opener := &fakeOpener{books: map[string]*fakeWorkbook{"MC_USD.xlsx": dailyBook([]string{"AAA"}, rows...)}}
	rec := newReconciler(store, opener, &recordingNotifier{})

	res := rec.ReconcileFile(ctx, "run", "MC_USD.xlsx", models.ModeDaily)
	require.Equal(t, models.StatusOK, res.Status)
	assert.Equal(t, 10, res.Inserted)
	assert.True(t, factExists(t, store, "AAA", "MC", day(2024, 2, 10)))
	assert.False(t, factExists(t, store, "AAA", "MC", day(2024, 2, 11)))
}

func TestReconcileDailyWithoutStreamRule(t *testing.T) {
	notifier := &recordingNotifier{}
	opener := &fakeOpener{books: map[string]*fakeWorkbook{"px_daily.xlsx": dailyBook([]string{"AAA"})}}
	rec := newReconciler(newStore(t), opener, notifier)

	res := rec.ReconcileFile(context.Background(), "run", "px_daily.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusMetadataNotFound, res.Status)
	assert.Equal(t, "Error: px_daily.xlsx metadata not found", res.Message)
	assert.Equal(t, 1, notifier.count())
}

func TestReconcileYearlyUnresolvedOnce(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	sheets := map[string]models.Grid{
		"Revenue": {
			{s("Revenue (USD)")},
			{s("Company"), s("Ticker"), n("2022"), n("2023"), s("LTM")},
			{s("Alpha"), s("AAA"), n("1"), n("2"), n("3")},
			{s("Zeta"), s("ZZZ"), n("4"), n("5"), n("6")},
		},
		"Notes": {{s("free text")}},
	}
	opener := &fakeOpener{books: map[string]*fakeWorkbook{
		"MENA_Fundamentals.xlsx": yearlyBook(sheets, "Revenue", "Notes"),
	}}
	rec := newReconciler(store, opener, &recordingNotifier{}, WithIgnoreSheets("Notes"))

	res := rec.ReconcileFile(ctx, "run", "MENA_Fundamentals.xlsx", models.ModeYearly)
	require.Equal(t, models.StatusOK, res.Status, res.Message)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, []string{"ZZZ"}, res.Unresolved)
	assert.True(t, factExists(t, store, "AAA", "Revenue", models.TrailingPeriod("LTM")))
	assert.True(t, factExists(t, store, "AAA", "Revenue", models.FiscalYearPeriod(2022)))

	again := rec.ReconcileFile(ctx, "run", "MENA_Fundamentals.xlsx", models.ModeYearly)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 3, again.Skipped)
}

func TestReconcileYearlyMissingStreamAbortsBeforeWrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	grid := models.Grid{
		{s("title")},
		{s("Company"), s("Ticker"), n("2023")},
		{s("Alpha"), s("AAA"), n("1")},
	}
	opener := &fakeOpener{books: map[string]*fakeWorkbook{
		"MENA_Fundamentals.xlsx": yearlyBook(map[string]models.Grid{"MC": grid, "EBITDA": grid}, "MC", "EBITDA"),
	}}
	notifier := &recordingNotifier{}
	rec := newReconciler(store, opener, notifier)

	res := rec.ReconcileFile(ctx, "run", "MENA_Fundamentals.xlsx", models.ModeYearly)
	assert.Equal(t, models.StatusMetadataNotFound, res.Status)
	assert.Equal(t, "Error: MENA_Fundamentals.xlsx metadata not found", res.Message)
	assert.Equal(t, 0, res.Inserted)
	assert.False(t, factExists(t, store, "AAA", "MC", models.FiscalYearPeriod(2023)))
	assert.Equal(t, 1, notifier.count())
}

func TestReconcileRollsBackOnInsertFailure(t *testing.T) {
	ctx := context.Background()
	base := newStore(t)
	store := &failingStore{FactStore: base, failAfter: 1}
	opener := &fakeOpener{books: map[string]*fakeWorkbook{
		"Vol_USD.xlsx": dailyBook([]string{"AAA", "BBB"},
			[]models.Cell{s("2024-01-05"), n("100"), n("200")},
		),
	}}
	notifier := &recordingNotifier{}
	rec := newReconciler(store, opener, notifier)

	res := rec.ReconcileFile(ctx, "run", "Vol_USD.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.True(t, strings.HasPrefix(res.Message, "An error occurred: "), res.Message)
	assert.Contains(t, res.Message, "disk full")
	assert.Equal(t, 0, res.Inserted)
	assert.True(t, store.rolledBack)
	assert.False(t, store.committed)
	assert.False(t, factExists(t, base, "AAA", "Volume", day(2024, 1, 5)))
	assert.Equal(t, 1, notifier.count())
}

func TestReconcileRecoversPanic(t *testing.T) {
	notifier := &recordingNotifier{}
	rec := newReconciler(newStore(t), &fakeOpener{panic: true}, notifier)

	res := rec.ReconcileFile(context.Background(), "run", "PX_USD.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Contains(t, res.Message, "corrupt zip directory")
	assert.Equal(t, 1, notifier.count())
}

func TestReconcileUnreadableWorkbook(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("smtp down")}
	rec := newReconciler(newStore(t), &fakeOpener{}, notifier)

	res := rec.ReconcileFile(context.Background(), "run", "PX_USD.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Contains(t, res.Message, "open workbook")
	assert.Equal(t, 1, notifier.count())
}

func TestReconcileMirrorsCommittedFacts(t *testing.T) {
	ctx := context.Background()
	opener := &fakeOpener{books: map[string]*fakeWorkbook{
		"PX_USD.xlsx": dailyBook([]string{"AAA", "CCC"},
			[]models.Cell{s("2024-01-05"), n("1.25"), n("2.5")},
		),
	}}
	mirror := &recordingMirror{err: errors.New("clickhouse unavailable")}
	rec := newReconciler(newStore(t), opener, &recordingNotifier{}, WithMirror(mirror))

	res := rec.ReconcileFile(ctx, "run", "PX_USD.xlsx", models.ModeDaily)
	assert.Equal(t, models.StatusOK, res.Status)
	require.Len(t, mirror.facts, 2)
	assert.Equal(t, "PX", mirror.facts[0].StreamCode)
	assert.Equal(t, "1.25", mirror.facts[0].Value.String())
}
