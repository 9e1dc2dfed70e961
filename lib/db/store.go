package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/icco/movieland/lib/types"
	"github.com/icco/movieland/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Store persists ingestion runs and serves them back.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore wraps an open, migrated gorm connection.
func NewStore(db *gorm.DB, logger *slog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// SaveDatabase writes a run and its movies in one transaction. Movies keep
// their discovery order through Position.
func (s *Store) SaveDatabase(ctx context.Context, database *models.Database) error {
	if database == nil {
		return errors.New("database is nil")
	}

	for i := range database.MovieList {
		database.MovieList[i].Position = i
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("MovieList").Create(database).Error; err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
		if len(database.MovieList) == 0 {
			return nil
		}
		for i := range database.MovieList {
			database.MovieList[i].DatabaseID = database.ID
		}
		if err := tx.CreateInBatches(database.MovieList, 100).Error; err != nil {
			return fmt.Errorf("failed to create movies: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Saved database",
		slog.String("run_id", database.RunID),
		slog.Int("movies", len(database.MovieList)))
	return nil
}

// DeleteDatabase removes a run and its movies.
func (s *Store) DeleteDatabase(ctx context.Context, runID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var database models.Database
		if err := tx.Where("run_id = ?", runID).First(&database).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to find database: %w", err)
		}
		if err := tx.Where("database_id = ?", database.ID).Delete(&models.Movie{}).Error; err != nil {
			return fmt.Errorf("failed to delete movies: %w", err)
		}
		if err := tx.Delete(&database).Error; err != nil {
			return fmt.Errorf("failed to delete database: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Deleted database", slog.String("run_id", runID))
	return nil
}

// LatestDatabase returns the most recent run with its movies in discovery order.
func (s *Store) LatestDatabase(ctx context.Context) (*models.Database, error) {
	var database models.Database
	err := s.db.WithContext(ctx).
		Preload("MovieList", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Order("date_created DESC, id DESC").
		First(&database).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest database: %w", err)
	}
	return &database, nil
}

// DatabaseSummary describes one stored run without its movies.
type DatabaseSummary struct {
	ID          uint      `json:"id"`
	RunID       string    `json:"run_id"`
	DateCreated time.Time `json:"date_created"`
	Movies      int64     `json:"movies"`
}

// ListDatabases returns every stored run, newest first.
func (s *Store) ListDatabases(ctx context.Context) ([]DatabaseSummary, error) {
	tx := s.db.WithContext(ctx)

	var databases []models.Database
	if err := tx.Order("date_created DESC, id DESC").Find(&databases).Error; err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	var counts []struct {
		DatabaseID uint
		Movies     int64
	}
	if err := tx.Model(&models.Movie{}).
		Select("database_id, COUNT(*) AS movies").
		Group("database_id").
		Scan(&counts).Error; err != nil {
		return nil, fmt.Errorf("failed to count movies per database: %w", err)
	}
	byID := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byID[c.DatabaseID] = c.Movies
	}

	out := make([]DatabaseSummary, 0, len(databases))
	for _, d := range databases {
		out = append(out, DatabaseSummary{
			ID:          d.ID,
			RunID:       d.RunID,
			DateCreated: d.DateCreated,
			Movies:      byID[d.ID],
		})
	}
	return out, nil
}

// MoviePage is one page of the latest run's movies.
type MoviePage struct {
	RunID  string         `json:"run_id"`
	Page   int            `json:"page"`
	Size   int            `json:"size"`
	Total  int64          `json:"total"`
	Movies []models.Movie `json:"movies"`
}

// ListMovies pages through the latest run's movies in discovery order.
func (s *Store) ListMovies(ctx context.Context, page, size int) (*MoviePage, error) {
	latest, err := s.LatestRun(ctx)
	if err != nil {
		return nil, err
	}

	result := &MoviePage{RunID: latest.RunID, Page: page, Size: size, Movies: []models.Movie{}}
	movies := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Movie{}).Where("database_id = ?", latest.ID)
	}
	if err := movies().Count(&result.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}

	if err := movies().Order("position ASC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&result.Movies).Error; err != nil {
		return nil, fmt.Errorf("failed to list movies: %w", err)
	}
	return result, nil
}

// GetMovie finds a movie by its catalog id in the latest run.
func (s *Store) GetMovie(ctx context.Context, tmdbID int) (*models.Movie, error) {
	latest, err := s.LatestRun(ctx)
	if err != nil {
		return nil, err
	}

	var movie models.Movie
	err = s.db.WithContext(ctx).
		Where("database_id = ? AND tmdb_id = ?", latest.ID, tmdbID).
		First(&movie).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get movie %d: %w", tmdbID, err)
	}
	return &movie, nil
}

// Stats summarizes the store.
func (s *Store) Stats(ctx context.Context) (*types.StatsData, error) {
	var stats types.StatsData
	tx := s.db.WithContext(ctx)

	if err := tx.Model(&models.Database{}).Count(&stats.TotalDatabases).Error; err != nil {
		return nil, fmt.Errorf("failed to count databases: %w", err)
	}
	if err := tx.Model(&models.Movie{}).Count(&stats.TotalMovies).Error; err != nil {
		return nil, fmt.Errorf("failed to count movies: %w", err)
	}
	stats.Certifications = []types.Count{}
	if stats.TotalDatabases == 0 {
		return &stats, nil
	}

	var first, last models.Database
	if err := tx.Order("date_created ASC, id ASC").First(&first).Error; err != nil {
		return nil, fmt.Errorf("failed to get first database: %w", err)
	}
	if err := tx.Order("date_created DESC, id DESC").First(&last).Error; err != nil {
		return nil, fmt.Errorf("failed to get last database: %w", err)
	}
	stats.FirstDate = first.DateCreated
	stats.LastDate = last.DateCreated
	stats.LatestRunID = last.RunID
	stats.AverageRunSize = float64(stats.TotalMovies) / float64(stats.TotalDatabases)

	if err := tx.Model(&models.Movie{}).Where("database_id = ?", last.ID).Count(&stats.LatestMovies).Error; err != nil {
		return nil, fmt.Errorf("failed to count latest movies: %w", err)
	}
	if err := tx.Model(&models.Movie{}).
		Where("database_id = ? AND released = ?", last.ID, true).
		Count(&stats.LatestReleased).Error; err != nil {
		return nil, fmt.Errorf("failed to count released movies: %w", err)
	}
	stats.LatestUpcoming = stats.LatestMovies - stats.LatestReleased

	if err := tx.Model(&models.Movie{}).
		Select("certification AS label, COUNT(*) AS count").
		Where("database_id = ?", last.ID).
		Group("certification").
		Order("count DESC, label ASC").
		Scan(&stats.Certifications).Error; err != nil {
		return nil, fmt.Errorf("failed to get certification distribution: %w", err)
	}

	return &stats, nil
}

// Ping checks the underlying connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// LatestRun returns the most recent run without its movies.
func (s *Store) LatestRun(ctx context.Context) (*models.Database, error) {
	var database models.Database
	err := s.db.WithContext(ctx).Order("date_created DESC, id DESC").First(&database).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest database: %w", err)
	}
	return &database, nil
}
