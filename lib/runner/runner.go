// Package runner performs one complete ingestion: it takes the run lock,
// pages the catalog, and hands the result to the SQLite and JSON sinks.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/icco/movieland/lib/export"
	"github.com/icco/movieland/lib/ingest"
	"github.com/icco/movieland/lib/lock"
	"github.com/icco/movieland/lib/record"
	"github.com/icco/movieland/lib/tmdb"
	"github.com/icco/movieland/models"
)

// Saver persists a finished run and can take it back when a later sink fails.
type Saver interface {
	SaveDatabase(ctx context.Context, database *models.Database) error
	DeleteDatabase(ctx context.Context, runID string) error
}

type Options struct {
	// Query builds the discovery filter for a run starting at the given time.
	Query      func(now time.Time) tmdb.DiscoverQuery
	Policy     ingest.Policy
	Builder    *record.Builder
	MaxPages   int
	Delay      time.Duration
	ExportPath string
	Now        func() time.Time
}

type Runner struct {
	catalog ingest.Catalog
	saver   Saver
	lock    *lock.FileLock
	logger  *slog.Logger
	opts    Options

	wg sync.WaitGroup
}

func New(catalog ingest.Catalog, saver Saver, fl *lock.FileLock, logger *slog.Logger, opts Options) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Query == nil {
		opts.Query = func(time.Time) tmdb.DiscoverQuery { return tmdb.DiscoverQuery{} }
	}
	return &Runner{
		catalog: catalog,
		saver:   saver,
		lock:    fl,
		logger:  logger,
		opts:    opts,
	}
}

// Busy reports whether another run holds the lock.
func (r *Runner) Busy() bool {
	return r.lock.Held(lock.IngestKey)
}

// Run executes one ingestion. It returns lock.ErrLocked without contacting
// the catalog when another run is in progress. Nothing is saved or exported
// unless the whole run succeeds.
func (r *Runner) Run(ctx context.Context) (*models.Database, error) {
	release, err := r.lock.Acquire(ctx, lock.IngestKey, 0)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to acquire ingest lock: %w", err)
	}
	defer release()

	now := r.opts.Now()
	pager := ingest.NewPager(r.catalog, r.logger, ingest.Options{
		Query:    r.opts.Query(now),
		Policy:   r.opts.Policy,
		Builder:  r.opts.Builder,
		MaxPages: r.opts.MaxPages,
		Delay:    r.opts.Delay,
		Now:      r.opts.Now,
	})

	database, err := pager.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movies: %w", err)
	}

	// schema and filesystem problems surface before anything is stored
	var pending *export.Pending
	if r.opts.ExportPath != "" {
		pending, err = export.Prepare(r.opts.ExportPath, database)
		if err != nil {
			return nil, fmt.Errorf("failed to export database: %w", err)
		}
		defer pending.Discard()
	}

	if err := r.saver.SaveDatabase(ctx, database); err != nil {
		return nil, fmt.Errorf("failed to save database: %w", err)
	}

	if pending != nil {
		if err := pending.Commit(); err != nil {
			if delErr := r.saver.DeleteDatabase(context.WithoutCancel(ctx), database.RunID); delErr != nil {
				r.logger.Error("Failed to roll back saved database",
					slog.String("run_id", database.RunID),
					slog.Any("error", delErr))
			}
			return nil, fmt.Errorf("failed to export database: %w", err)
		}
		r.logger.Info("Exported database", slog.String("path", r.opts.ExportPath))
	}

	r.logger.Info("Movies in Database",
		slog.String("run_id", database.RunID),
		slog.Int("count", len(database.MovieList)))

	return database, nil
}

// Start runs one ingestion in the background on ctx. Wait blocks until every
// started run has returned.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.Run(ctx); err != nil {
			if errors.Is(err, lock.ErrLocked) {
				r.logger.Warn("Skipped ingestion run", slog.Any("error", err))
				return
			}
			r.logger.Error("Failed to run ingestion", slog.Any("error", err))
		}
	}()
}

// Wait blocks until all runs launched by Start have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
