package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/repository"
	"ScoutSync/internal/domain/service"
	"ScoutSync/internal/services/existence"
	"ScoutSync/internal/services/resolver"
	"ScoutSync/internal/services/sheet"
	applogger "ScoutSync/pkg/logger"
)

const defaultNotifyTimeout = 30 * time.Second

// ReconcilerOption configures optional collaborators of Reconciler.
type ReconcilerOption func(*Reconciler)

func WithMirror(m repository.FactMirror) ReconcilerOption {
	return func(r *Reconciler) { r.mirror = m }
}

func WithMetrics(m repository.Metrics) ReconcilerOption {
	return func(r *Reconciler) { r.metrics = m }
}

func WithReconcilerLogger(l *applogger.Logger) ReconcilerOption {
	return func(r *Reconciler) { r.l = l }
}

// WithIgnoreSheets lists yearly sheets that carry no metric stream.
func WithIgnoreSheets(names ...string) ReconcilerOption {
	return func(r *Reconciler) {
		for _, n := range names {
			r.ignore[n] = struct{}{}
		}
	}
}

func WithReconcilerClock(now func() time.Time) ReconcilerOption {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

func WithNotifyTimeout(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.notifyTimeout = d
		}
	}
}

// Reconciler applies one workbook to the fact store inside a single
// transaction and reports the outcome to the notifier.
type Reconciler struct {
	store    repository.FactStore
	opener   repository.WorkbookOpener
	norm     *sheet.Normalizer
	resolver *resolver.Resolver
	dispatch *Dispatcher
	notifier service.Notifier

	mirror        repository.FactMirror
	metrics       repository.Metrics
	l             *applogger.Logger
	ignore        map[string]struct{}
	now           func() time.Time
	notifyTimeout time.Duration
}

func NewReconciler(
	store repository.FactStore,
	opener repository.WorkbookOpener,
	norm *sheet.Normalizer,
	res *resolver.Resolver,
	dispatch *Dispatcher,
	notifier service.Notifier,
	opts ...ReconcilerOption,
) *Reconciler {
	if norm == nil {
		norm = sheet.NewNormalizer(nil, 0)
	}
	if res == nil {
		res = resolver.New()
	}
	if dispatch == nil {
		dispatch = DefaultDispatcher()
	}
	r := &Reconciler{
		store:         store,
		opener:        opener,
		norm:          norm,
		resolver:      res,
		dispatch:      dispatch,
		notifier:      notifier,
		ignore:        make(map[string]struct{}),
		now:           time.Now,
		notifyTimeout: defaultNotifyTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// sheetJob is one normalized sheet bound to its metric stream.
type sheetJob struct {
	stream   models.MetricStream
	records  []models.Record
	inserted int
	skipped  int
}

// ReconcileFile processes the workbook at path in the given mode. It never
// returns nil and the notifier is called exactly once, whatever the outcome.
func (r *Reconciler) ReconcileFile(ctx context.Context, runID, path string, mode models.Mode) *models.ReconciliationResult {
	start := r.now()
	res := models.NewResult(runID, path, filepath.Base(path), mode, start)

	var (
		jobs      []*sheetJob
		committed []models.Fact
	)
	defer func() {
		if p := recover(); p != nil {
			committed = nil
			r.fail(res, fmt.Errorf("panic: %v", p))
		}
		res.FinishedAt = r.now()
		if res.Status == models.StatusOK {
			r.recordFacts(res, jobs)
			r.mirrorFacts(ctx, res, committed)
		}
		r.record(res, start)
		r.notify(ctx, res)
	}()

	var err error
	jobs, committed, err = r.reconcile(ctx, res)
	if err != nil {
		r.fail(res, err)
		return res
	}
	res.Status = models.StatusOK
	res.Message = models.MessageComplete
	return res
}

func (r *Reconciler) reconcile(ctx context.Context, res *models.ReconciliationResult) ([]*sheetJob, []models.Fact, error) {
	wb, err := r.opener.Open(res.Path)
	if err != nil {
		return nil, nil, err
	}
	defer wb.Close()

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return nil, nil, models.PersistenceError("begin transaction", err)
	}
	done := false
	defer func() {
		if done {
			return
		}
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && r.l != nil {
			r.l.Error("rollback failed",
				applogger.String("file", res.File),
				applogger.Error(rbErr),
			)
		}
	}()

	jobs, err := r.prepare(ctx, tx, wb, res)
	if err != nil {
		return nil, nil, err
	}
	facts, err := r.apply(ctx, tx, res, jobs)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, models.PersistenceError("commit", err)
	}
	done = true
	res.Inserted = len(facts)
	return jobs, facts, nil
}

// prepare binds every sheet to a metric stream and normalizes it. A missing
// stream aborts the file before anything is written.
func (r *Reconciler) prepare(ctx context.Context, tx repository.FactTx, wb repository.Workbook, res *models.ReconciliationResult) ([]*sheetJob, error) {
	type pending struct {
		sheet string
		code  string
	}
	names := wb.SheetNames()

	var todo []pending
	switch res.Mode {
	case models.ModeDaily:
		code, ok := r.dispatch.Stream(res.File)
		if !ok {
			return nil, models.MetadataNotFoundError(res.File)
		}
		if len(names) == 0 {
			return nil, models.StructuralInputErrorf("workbook %s has no sheets", res.File)
		}
		todo = append(todo, pending{sheet: names[0], code: code})
	case models.ModeYearly:
		for _, name := range names {
			if _, skip := r.ignore[name]; skip {
				continue
			}
			todo = append(todo, pending{sheet: name, code: name})
		}
	default:
		return nil, fmt.Errorf("unsupported mode: %s", res.Mode)
	}

	jobs := make([]*sheetJob, 0, len(todo))
	for _, p := range todo {
		id, ok, err := tx.LookupStream(ctx, p.code)
		if err != nil {
			return nil, models.PersistenceError("lookup stream", err)
		}
		if !ok {
			if r.l != nil {
				r.l.Warn("metric stream not found",
					applogger.String("file", res.File),
					applogger.String("stream", p.code),
				)
			}
			return nil, models.MetadataNotFoundError(res.File)
		}
		jobs = append(jobs, &sheetJob{stream: models.MetricStream{ID: id, Code: p.code}})
		res.Streams = append(res.Streams, p.code)
	}

	for i, p := range todo {
		g, err := wb.Sheet(p.sheet)
		if err != nil {
			return nil, err
		}
		recs, err := r.norm.Normalize(g, res.Mode)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", p.sheet, err)
		}
		jobs[i].records = recs
		res.Records += len(recs)
	}
	return jobs, nil
}

// apply resolves identifiers in one batch and inserts every record that has
// no fact yet.
func (r *Reconciler) apply(ctx context.Context, tx repository.FactTx, res *models.ReconciliationResult, jobs []*sheetJob) ([]models.Fact, error) {
	var ids []string
	for _, j := range jobs {
		for _, rec := range j.records {
			ids = append(ids, rec.Identifier)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	t0 := time.Now()
	keys, err := r.resolver.Resolve(ctx, tx, ids)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordLatency("resolve", time.Since(t0).Seconds())
	}

	oracle := existence.New(tx)
	recordedAt := r.now()
	var facts []models.Fact
	for _, j := range jobs {
		for _, rec := range j.records {
			key, ok := keys[rec.Identifier]
			if !ok {
				res.AddUnresolved(rec.Identifier)
				continue
			}
			exists, err := oracle.Exists(ctx, key, j.stream.ID, rec.Period)
			if err != nil {
				return nil, err
			}
			if exists {
				j.skipped++
				res.Skipped++
				continue
			}
			f := models.Fact{
				Entity:     key,
				Stream:     j.stream.ID,
				StreamCode: j.stream.Code,
				Identifier: rec.Identifier,
				Period:     rec.Period,
				Value:      rec.Value,
				RecordedAt: recordedAt,
			}
			if err := tx.InsertFact(ctx, f); err != nil {
				return nil, models.PersistenceError(fmt.Sprintf("insert fact %s/%s/%s", rec.Identifier, j.stream.Code, rec.Period), err)
			}
			oracle.MarkInserted(f)
			j.inserted++
			facts = append(facts, f)
		}
	}
	if r.l != nil {
		r.l.Debug("existence queries",
			applogger.String("file", res.File),
			applogger.Int("queries", oracle.Queries()),
		)
	}
	return facts, nil
}

func (r *Reconciler) fail(res *models.ReconciliationResult, err error) {
	res.Inserted = 0
	if models.IsMetadataNotFound(err) {
		res.Status = models.StatusMetadataNotFound
		res.Message = models.MetadataNotFoundError(res.File).Message
		return
	}
	res.Status = models.StatusFailed
	res.Message = fmt.Sprintf("An error occurred: %v", err)
	if r.metrics != nil {
		kind := models.ErrorKind(err)
		if kind == "" {
			kind = "unclassified"
		}
		r.metrics.RecordError(kind)
	}
}

func (r *Reconciler) recordFacts(res *models.ReconciliationResult, jobs []*sheetJob) {
	if r.metrics == nil {
		return
	}
	for _, j := range jobs {
		r.metrics.RecordFacts(string(res.Mode), j.stream.Code, j.inserted, j.skipped)
	}
}

func (r *Reconciler) record(res *models.ReconciliationResult, start time.Time) {
	if r.metrics != nil {
		r.metrics.RecordFile(string(res.Mode), string(res.Status))
		r.metrics.RecordUnresolved(string(res.Mode), len(res.Unresolved))
		r.metrics.RecordLatency("reconcile_file", res.FinishedAt.Sub(start).Seconds())
	}
	if r.l == nil {
		return
	}
	fields := []applogger.Field{
		applogger.String("run_id", res.RunID),
		applogger.String("file", res.File),
		applogger.String("mode", string(res.Mode)),
		applogger.String("status", string(res.Status)),
		applogger.Int("records", res.Records),
		applogger.Int("inserted", res.Inserted),
		applogger.Int("skipped", res.Skipped),
		applogger.Int("unresolved", len(res.Unresolved)),
	}
	switch res.Status {
	case models.StatusOK:
		r.l.Info("file reconciled", fields...)
	case models.StatusMetadataNotFound:
		r.l.Warn(res.Message, fields...)
	default:
		r.l.Error("file reconciliation failed", append(fields, applogger.String("message", res.Message))...)
	}
}

func (r *Reconciler) mirrorFacts(ctx context.Context, res *models.ReconciliationResult, facts []models.Fact) {
	if r.mirror == nil || len(facts) == 0 {
		return
	}
	if err := r.mirror.MirrorFacts(ctx, facts); err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("mirror")
		}
		if r.l != nil {
			r.l.Error("mirror facts failed",
				applogger.String("file", res.File),
				applogger.Int("facts", len(facts)),
				applogger.Error(err),
			)
		}
	}
}

func (r *Reconciler) notify(ctx context.Context, res *models.ReconciliationResult) {
	if r.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.notifyTimeout)
	defer cancel()
	if err := r.notifier.Notify(nctx, res); err != nil {
		if r.metrics != nil {
			r.metrics.RecordError("notify")
		}
		if r.l != nil {
			r.l.Error("notify failed",
				applogger.String("file", res.File),
				applogger.Error(err),
			)
		}
	}
}
