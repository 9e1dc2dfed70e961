package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icco/movieland/lib/db"
	"github.com/icco/movieland/lib/ingest"
	"github.com/icco/movieland/lib/lock"
	"github.com/icco/movieland/lib/runner"
	"github.com/icco/movieland/lib/tmdb"
	"github.com/icco/movieland/models"
)

func ptr[T any](v T) *T { return &v }

type stubCatalog struct{}

func (stubCatalog) Discover(context.Context, tmdb.DiscoverQuery, int) (*tmdb.DiscoverResponse, error) {
	results := []tmdb.DiscoverResult{{ID: 99, Title: "Fresh", BackdropPath: ptr("/b.jpg"), PosterPath: ptr("/p.jpg")}}
	return &tmdb.DiscoverResponse{Page: 1, TotalPages: ptr(1), Results: &results}, nil
}

func (stubCatalog) MovieDetails(_ context.Context, id int) (*tmdb.MovieDetails, error) {
	return &tmdb.MovieDetails{
		ID:           id,
		IMDBID:       ptr("tt0000099"),
		Title:        "Fresh",
		Status:       "Released",
		ReleaseDate:  "2024-01-01",
		Popularity:   50,
		VoteAverage:  7,
		VoteCount:    100,
		BackdropPath: "/b.jpg",
		PosterPath:   "/p.jpg",
	}, nil
}

type fixture struct {
	store  *db.Store
	runner *runner.Runner
	lock   *lock.FileLock
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gdb, err := db.Open(context.Background(), "file:"+uuid.NewString()+"?mode=memory&cache=shared", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := db.NewStore(gdb, logger)
	fl := lock.NewFileLock(logger, t.TempDir())
	r := runner.New(stubCatalog{}, store, fl, logger, runner.Options{Policy: ingest.DefaultPolicy()})

	ctx, cancel := context.WithCancel(context.Background())
	server := httptest.NewServer(NewRouter(ctx, store, r))
	t.Cleanup(func() {
		server.Close()
		cancel()
		r.Wait()
	})
	return &fixture{store: store, runner: r, lock: fl, server: server}
}

func (f *fixture) seed(t *testing.T) *models.Database {
	t.Helper()
	d := &models.Database{
		RunID:       uuid.NewString(),
		DateCreated: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		MovieList: []models.Movie{
			{TMDBID: 1, IMDBID: "tt1", Title: "One", Released: true, Certification: "M", Poster: "/one.jpg", Backdrop: "/one-b.jpg"},
			{TMDBID: 2, IMDBID: "tt2", Title: "Two", Certification: "TBA"},
			{TMDBID: 3, IMDBID: "tt3", Title: "Three", Released: true, Certification: "M"},
		},
	}
	require.NoError(t, f.store.SaveDatabase(context.Background(), d))
	return d
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHome(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/", nil))

	d := f.seed(t)
	var body map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/", &body))
	assert.Equal(t, d.RunID, body["run_id"])
	assert.EqualValues(t, 3, body["movies"])
	assert.EqualValues(t, 2, body["released"])
	assert.EqualValues(t, 1, body["upcoming"])
}

func TestMovies(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/movies", nil))
	f.seed(t)

	var body struct {
		Total  int64   `json:"total"`
		Movies []Movie `json:"movies"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/movies?page=1&size=2", &body))
	assert.Equal(t, int64(3), body.Total)
	require.Len(t, body.Movies, 2)
	assert.Equal(t, "One", body.Movies[0].Title)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/one.jpg", body.Movies[0].PosterURL)
	assert.Equal(t, "https://image.tmdb.org/t/p/w1280/one-b.jpg", body.Movies[0].BackdropURL)
	assert.Equal(t, "Two", body.Movies[1].Title)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/movies?size=500", nil))
}

func TestMovie(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	var movie Movie
	require.Equal(t, http.StatusOK, f.get(t, "/movies/3", &movie))
	assert.Equal(t, "Three", movie.Title)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/movies/404", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/movies/abc", nil))
}

func TestDatabasesAndStats(t *testing.T) {
	f := newFixture(t)
	d := f.seed(t)

	var list struct {
		Databases []db.DatabaseSummary `json:"databases"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/databases", &list))
	require.Len(t, list.Databases, 1)
	assert.Equal(t, d.RunID, list.Databases[0].RunID)
	assert.Equal(t, int64(3), list.Databases[0].Movies)

	var stats map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/stats", &stats))
	assert.EqualValues(t, 1, stats["total_databases"])
	assert.EqualValues(t, 3, stats["total_movies"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	var body map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/health", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCron(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Post(f.server.URL+"/cron", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	f.runner.Wait()

	m, err := f.store.GetMovie(context.Background(), 99)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", m.Title)
	assert.False(t, f.lock.Held(lock.IngestKey))
}

func TestCron_AlreadyRunning(t *testing.T) {
	f := newFixture(t)
	ok, err := f.lock.TryLock(context.Background(), lock.IngestKey, 0)
	require.NoError(t, err)
	require.True(t, ok)

	resp, err := http.Post(f.server.URL+"/cron", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLatestDatabase(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/databases/latest", nil))

	f.seed(t)
	var doc struct {
		DateCreated string         `json:"date_created"`
		MovieList   []models.Movie `json:"movie_list"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/databases/latest", &doc))
	assert.Equal(t, "01-06-2024 00:00:00", doc.DateCreated)
	require.Len(t, doc.MovieList, 3)
	assert.Equal(t, "One", doc.MovieList[0].Title)
	assert.Equal(t, "Three", doc.MovieList[2].Title)
}
