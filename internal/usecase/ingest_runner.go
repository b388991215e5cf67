package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ScoutSync/internal/domain/models"
	"ScoutSync/internal/domain/service"
	"ScoutSync/pkg/cache"
	applogger "ScoutSync/pkg/logger"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when another run holds the run lock.
var ErrRunInProgress = errors.New("ingest run already in progress")

const (
	runLockKey     = "ingest:run"
	defaultLockTTL = 30 * time.Minute
)

// IngestRunner fetches workbooks and reconciles them one after another.
type IngestRunner struct {
	source     service.FileSource
	reconciler *Reconciler
	dispatch   *Dispatcher
	lock       cache.Service
	lockTTL    time.Duration
	l          *applogger.Logger
	now        func() time.Time
	newID      func() string

	running sync.Mutex

	mu   sync.RWMutex
	last *models.RunSummary
}

func NewIngestRunner(source service.FileSource, rec *Reconciler, dispatch *Dispatcher, lock cache.Service, lockTTL time.Duration, l *applogger.Logger) *IngestRunner {
	if dispatch == nil {
		dispatch = DefaultDispatcher()
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &IngestRunner{
		source:     source,
		reconciler: rec,
		dispatch:   dispatch,
		lock:       lock,
		lockTTL:    lockTTL,
		l:          l,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run reconciles files, or everything the file source returns when files is
// empty. Files matching no mode rule are skipped without notification.
func (r *IngestRunner) Run(ctx context.Context, files ...string) (*models.RunSummary, error) {
	if !r.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.running.Unlock()

	if r.lock != nil {
		ok, err := r.lock.TryLock(ctx, runLockKey, r.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if err := r.lock.Unlock(context.WithoutCancel(ctx), runLockKey); err != nil && r.l != nil {
				r.l.Warn("release run lock", applogger.Error(err))
			}
		}()
	}

	if len(files) == 0 {
		if r.source == nil {
			return nil, errors.New("no files given and no file source configured")
		}
		fetched, err := r.source.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch files: %w", err)
		}
		files = fetched
	}

	summary := &models.RunSummary{
		RunID:     r.newID(),
		StartedAt: r.now(),
		Results:   make([]*models.ReconciliationResult, 0, len(files)),
	}
	if r.l != nil {
		r.l.Info("ingest run started",
			applogger.String("run_id", summary.RunID),
			applogger.Int("files", len(files)),
		)
	}

	var runErr error
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		mode, ok := r.dispatch.Mode(path)
		if !ok {
			summary.Skipped = append(summary.Skipped, path)
			if r.l != nil {
				r.l.Warn("no mode for file, skipping", applogger.String("path", path))
			}
			continue
		}
		summary.Results = append(summary.Results, r.reconciler.ReconcileFile(ctx, summary.RunID, path, mode))
	}
	summary.FinishedAt = r.now()

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()

	if r.l != nil {
		r.l.Info("ingest run finished",
			applogger.String("run_id", summary.RunID),
			applogger.Int("results", len(summary.Results)),
			applogger.Int("skipped_files", len(summary.Skipped)),
			applogger.Int("inserted", summary.Inserted()),
		)
	}
	return summary, runErr
}

// LastRun returns the summary of the most recent run, if any.
func (r *IngestRunner) LastRun() (*models.RunSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last, r.last != nil
}
