package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"log/slog"

	"github.com/icco/movieland/lib/db"
	"github.com/icco/movieland/models"
)

// Source is what the health check inspects.
type Source interface {
	Ping(ctx context.Context) error
	LatestRun(ctx context.Context) (*models.Database, error)
}

// Health represents the health check response structure.
// It includes the overall status, timestamp, database health and the most
// recent ingestion run.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	DB        struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	} `json:"db"`
	LastRun *Run `json:"last_run,omitempty"`
}

// Run identifies an ingestion run.
type Run struct {
	RunID       string    `json:"run_id"`
	DateCreated time.Time `json:"date_created"`
}

// Check returns an HTTP handler that performs health checks on the application.
// It verifies the database connection and reports the latest run. A store
// with no runs yet is still healthy.
func Check(src Source) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := Health{
			Status:    "ok",
			Timestamp: time.Now(),
		}

		if err := src.Ping(ctx); err != nil {
			slog.Error("Database ping failed", slog.Any("error", err))
			health.Status = "degraded"
			health.DB.Status = "error"
			health.DB.Message = "Database ping failed"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}
		health.DB.Status = "ok"

		latest, err := src.LatestRun(ctx)
		switch {
		case err == nil:
			health.LastRun = &Run{RunID: latest.RunID, DateCreated: latest.DateCreated}
		case errors.Is(err, db.ErrNotFound):
		default:
			slog.Error("Failed to get latest run", slog.Any("error", err))
			health.Status = "degraded"
			health.DB.Message = "Failed to read latest run"
			writeHealth(w, health, http.StatusServiceUnavailable)
			return
		}

		writeHealth(w, health, http.StatusOK)
	}
}

// writeHealth writes the health check response to the HTTP response writer.
// It takes a response writer, health information, and HTTP status code.
func writeHealth(w http.ResponseWriter, health Health, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(health); err != nil {
		slog.Error("Failed to encode health response", slog.Any("error", err))
	}
}
