package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/icco/movieland/lib/db"
	"github.com/icco/movieland/lib/export"
	"github.com/icco/movieland/lib/health"
	"github.com/icco/movieland/lib/runner"
	"github.com/icco/movieland/lib/tmdb"
	"github.com/icco/movieland/lib/validation"
	"github.com/icco/movieland/models"
)

// NewRouter wires the read API and the cron trigger. Runs started through
// /cron live on ctx, not on the request.
func NewRouter(ctx context.Context, store *db.Store, r *runner.Runner) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	router.Get("/", HandleHome(store))
	router.Get("/movies", HandleMovies(store))
	router.Get("/movies/{id}", HandleMovie(store))
	router.Get("/databases", HandleDatabases(store))
	router.Get("/databases/latest", HandleLatestDatabase(store))
	router.Get("/stats", HandleStats(store))
	router.Post("/cron", HandleCron(ctx, r))
	router.Get("/health", health.Check(store))

	return router
}

// Movie is a stored movie with full image URLs.
type Movie struct {
	models.Movie
	PosterURL   string `json:"poster_url"`
	BackdropURL string `json:"backdrop_url"`
}

func newMovie(m models.Movie) Movie {
	return Movie{
		Movie:       m,
		PosterURL:   tmdb.PosterURL(m.Poster),
		BackdropURL: tmdb.BackdropURL(m.Backdrop),
	}
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

// writeStoreError maps store errors onto responses.
func writeStoreError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, db.ErrNotFound) {
		validation.WriteError(w, errors.New(notFound), http.StatusNotFound)
		return
	}
	slog.Error("Store request failed", slog.Any("error", err))
	validation.WriteError(w, errors.New("internal server error"), http.StatusInternalServerError)
}

// HandleHome summarizes the latest run.
func HandleHome(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		stats, err := store.Stats(req.Context())
		if err != nil {
			writeStoreError(w, err, "")
			return
		}
		if stats.TotalDatabases == 0 {
			validation.WriteError(w, errors.New("no movie database has been fetched yet"), http.StatusNotFound)
			return
		}

		writeJSON(w, map[string]any{
			"run_id":         stats.LatestRunID,
			"date_created":   stats.LastDate,
			"movies":         stats.LatestMovies,
			"released":       stats.LatestReleased,
			"upcoming":       stats.LatestUpcoming,
			"certifications": stats.Certifications,
		}, http.StatusOK)
	}
}

func HandleMovies(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		page, size, err := validation.ParsePagination(req)
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		result, err := store.ListMovies(req.Context(), page, size)
		if err != nil {
			writeStoreError(w, err, "no movie database has been fetched yet")
			return
		}

		movies := make([]Movie, len(result.Movies))
		for i, m := range result.Movies {
			movies[i] = newMovie(m)
		}
		writeJSON(w, map[string]any{
			"run_id": result.RunID,
			"page":   result.Page,
			"size":   result.Size,
			"total":  result.Total,
			"movies": movies,
		}, http.StatusOK)
	}
}

func HandleMovie(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(req, "id"))
		if err != nil || id < 1 {
			validation.WriteError(w, errors.New("id must be a positive integer"), http.StatusBadRequest)
			return
		}

		movie, err := store.GetMovie(req.Context(), id)
		if err != nil {
			writeStoreError(w, err, "movie not found")
			return
		}
		writeJSON(w, newMovie(*movie), http.StatusOK)
	}
}

func HandleDatabases(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		list, err := store.ListDatabases(req.Context())
		if err != nil {
			writeStoreError(w, err, "")
			return
		}
		writeJSON(w, map[string]any{"databases": list}, http.StatusOK)
	}
}

func HandleStats(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		stats, err := store.Stats(req.Context())
		if err != nil {
			writeStoreError(w, err, "")
			return
		}
		writeJSON(w, stats, http.StatusOK)
	}
}

// HandleLatestDatabase serves the latest run in its exported shape.
func HandleLatestDatabase(store *db.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		database, err := store.LatestDatabase(req.Context())
		if err != nil {
			writeStoreError(w, err, "no movie database has been fetched yet")
			return
		}
		writeJSON(w, export.NewDocument(database), http.StatusOK)
	}
}

// HandleCron starts an ingestion run in the background.
func HandleCron(ctx context.Context, r *runner.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if r.Busy() {
			writeJSON(w, map[string]string{"status": "an ingestion run is already in progress"}, http.StatusConflict)
			return
		}

		r.Start(ctx)
		writeJSON(w, map[string]string{"status": "started ingestion run"}, http.StatusAccepted)
	}
}
