package db

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/movieland/lib/types"
	"github.com/icco/movieland/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"

	gdb, err := Open(context.Background(), dsn, logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(gdb, logger)
}

func trailer(s string) *string { return &s }

func testDatabase(created time.Time, ids ...int) *models.Database {
	d := &models.Database{RunID: uuid.NewString(), DateCreated: created, MovieList: []models.Movie{}}
	for _, id := range ids {
		d.MovieList = append(d.MovieList, models.Movie{
			TMDBID:        id,
			IMDBID:        "tt" + uuid.NewString()[:7],
			Title:         "Movie",
			Released:      id%2 == 0,
			ReleaseDate:   "2024-01-01",
			Certification: "M",
			Director:      []models.CrewMember{{ID: 1, Name: "Jane Doe", Job: "Director"}},
			Actors:        []models.CastMember{{ID: 2, Name: "John Roe", Order: 0}},
			Genres:        []models.Genre{{ID: 18, Name: "Drama"}},
			Trailer:       trailer("https://www.youtube.com/watch?v=abc"),
		})
	}
	return d
}

func TestStore_SaveAndLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := testDatabase(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 1, 2)
	require.NoError(t, store.SaveDatabase(ctx, older))
	newer := testDatabase(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 30, 10, 20)
	require.NoError(t, store.SaveDatabase(ctx, newer))

	got, err := store.LatestDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, newer.RunID, got.RunID)
	require.Len(t, got.MovieList, 3)

	// discovery order, not id order
	assert.Equal(t, 30, got.MovieList[0].TMDBID)
	assert.Equal(t, 10, got.MovieList[1].TMDBID)
	assert.Equal(t, 20, got.MovieList[2].TMDBID)

	m := got.MovieList[0]
	require.Len(t, m.Director, 1)
	assert.Equal(t, "Jane Doe", m.Director[0].Name)
	require.Len(t, m.Genres, 1)
	assert.Equal(t, "Drama", m.Genres[0].Name)
	require.NotNil(t, m.Trailer)
}

func TestStore_LatestDatabaseEmpty(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LatestDatabase(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.ListMovies(context.Background(), 1, 20)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveEmptyDatabase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDatabase(ctx, testDatabase(time.Now())))
	got, err := store.LatestDatabase(ctx)
	require.NoError(t, err)
	assert.Empty(t, got.MovieList)
}

func TestStore_ListDatabases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := testDatabase(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 1)
	b := testDatabase(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 1, 2, 3)
	require.NoError(t, store.SaveDatabase(ctx, a))
	require.NoError(t, store.SaveDatabase(ctx, b))

	list, err := store.ListDatabases(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.RunID, list[0].RunID)
	assert.Equal(t, int64(3), list[0].Movies)
	assert.Equal(t, a.RunID, list[1].RunID)
	assert.Equal(t, int64(1), list[1].Movies)
}

func TestStore_ListMoviesPaginates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDatabase(ctx, testDatabase(time.Now(), 5, 4, 3, 2, 1)))

	page, err := store.ListMovies(ctx, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	require.Len(t, page.Movies, 2)
	assert.Equal(t, 3, page.Movies[0].TMDBID)
	assert.Equal(t, 2, page.Movies[1].TMDBID)

	page, err = store.ListMovies(ctx, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Movies)
}

func TestStore_GetMovie(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveDatabase(ctx, testDatabase(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 7)))
	require.NoError(t, store.SaveDatabase(ctx, testDatabase(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 8)))

	m, err := store.GetMovie(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, m.TMDBID)

	// only the latest run is served
	_, err = store.GetMovie(ctx, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalDatabases)
	assert.Empty(t, stats.Certifications)

	require.NoError(t, store.SaveDatabase(ctx, testDatabase(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 1, 2)))
	latest := testDatabase(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 1, 2, 3, 4)
	latest.MovieList[0].Certification = "TBA"
	require.NoError(t, store.SaveDatabase(ctx, latest))

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalDatabases)
	assert.Equal(t, int64(6), stats.TotalMovies)
	assert.Equal(t, latest.RunID, stats.LatestRunID)
	assert.Equal(t, int64(4), stats.LatestMovies)
	assert.Equal(t, int64(2), stats.LatestReleased)
	assert.Equal(t, int64(2), stats.LatestUpcoming)
	assert.InDelta(t, 3.0, stats.AverageRunSize, 0.001)
	assert.Equal(t, []types.Count{{Label: "M", Count: 3}, {Label: "TBA", Count: 1}}, stats.Certifications)
}

func TestStore_DeleteDatabase(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keep := testDatabase(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 1)
	drop := testDatabase(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 2, 3)
	require.NoError(t, store.SaveDatabase(ctx, keep))
	require.NoError(t, store.SaveDatabase(ctx, drop))

	require.NoError(t, store.DeleteDatabase(ctx, drop.RunID))

	latest, err := store.LatestDatabase(ctx)
	require.NoError(t, err)
	assert.Equal(t, keep.RunID, latest.RunID)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalDatabases)
	assert.Equal(t, int64(1), stats.TotalMovies)

	assert.ErrorIs(t, store.DeleteDatabase(ctx, drop.RunID), ErrNotFound)
}
