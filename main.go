package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/icco/movieland/handlers"
	"github.com/icco/movieland/lib/config"
	"github.com/icco/movieland/lib/db"
	"github.com/icco/movieland/lib/lock"
	"github.com/icco/movieland/lib/logging"
	"github.com/icco/movieland/lib/record"
	"github.com/icco/movieland/lib/runner"
	"github.com/icco/movieland/lib/tmdb"
	"gorm.io/gorm"
)

const usage = `usage: movieland [fetch|serve]

  fetch  run one ingestion, store it and export it (default)
  serve  serve the stored movies over HTTP; POST /cron starts a run
`

type App struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	store  *db.Store
	runner *runner.Runner
	closer io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)

	gdb, err := db.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return nil, fmt.Errorf("failed to build inclusion policy: %w", err)
	}

	store := db.NewStore(gdb, logger)
	client := tmdb.NewClient(cfg.APIKey, logger, cfg.ClientOptions()...)
	r := runner.New(client, store, lock.NewFileLock(logger, ""), logger, runner.Options{
		Query:      cfg.DiscoverQuery,
		Policy:     policy,
		Builder:    record.NewBuilder(cfg.RegionPriority),
		MaxPages:   cfg.MaxPages,
		Delay:      cfg.Delay,
		ExportPath: cfg.ExportPath,
	})

	return &App{
		cfg:    cfg,
		logger: logger,
		db:     gdb,
		store:  store,
		runner: r,
		closer: closer,
	}, nil
}

// Close waits for background runs before closing the database.
func (a *App) Close() {
	a.runner.Wait()
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Error("Failed to close database", slog.Any("error", err))
		}
	}
	if err := a.closer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
	}
}

func (a *App) fetch(ctx context.Context) error {
	start := time.Now()
	database, err := a.runner.Run(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("Ingestion finished",
		slog.String("run_id", database.RunID),
		slog.Int("movies", len(database.MovieList)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

func (a *App) serve(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           handlers.NewRouter(ctx, a.store, a.runner),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting server", slog.String("port", a.cfg.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func main() {
	command := "fetch"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command != "fetch" && command != "serve" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		slog.Error("Failed to start", slog.Any("error", err))
		os.Exit(1)
	}

	switch command {
	case "serve":
		err = app.serve(ctx)
	default:
		err = app.fetch(ctx)
	}
	app.Close()

	if err != nil {
		slog.Error("Command failed", slog.String("command", command), slog.Any("error", err))
		os.Exit(1)
	}
}
