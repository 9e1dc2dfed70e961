// Package ingest walks the catalog's discovery pages, fetches detail for
// each candidate movie and accumulates the records that pass the inclusion
// policy into a models.Database.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/icco/movieland/lib/record"
	"github.com/icco/movieland/lib/tmdb"
	"github.com/icco/movieland/models"
)

// ErrMalformedPage is returned when a discovery page lacks total_pages or
// results.
var ErrMalformedPage = errors.New("malformed discovery page")

// Catalog is the part of the TMDB client the pager needs.
type Catalog interface {
	Discover(ctx context.Context, q tmdb.DiscoverQuery, page int) (*tmdb.DiscoverResponse, error)
	MovieDetails(ctx context.Context, id int) (*tmdb.MovieDetails, error)
}

type Options struct {
	Query   tmdb.DiscoverQuery
	Policy  Policy
	Builder *record.Builder
	// MaxPages caps how many pages are read. 0 reads every page.
	MaxPages int
	// Delay is the minimum spacing between successive catalog calls.
	Delay time.Duration
	Now   func() time.Time
}

// Pager runs one ingestion. Pages and detail fetches are issued strictly one
// at a time, in page order.
type Pager struct {
	catalog  Catalog
	logger   *slog.Logger
	query    tmdb.DiscoverQuery
	policy   Policy
	builder  *record.Builder
	maxPages int
	gate     *Gate
	now      func() time.Time
}

func NewPager(catalog Catalog, logger *slog.Logger, opts Options) *Pager {
	if opts.Builder == nil {
		opts.Builder = record.NewBuilder(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pager{
		catalog:  catalog,
		logger:   logger,
		query:    opts.Query,
		policy:   opts.Policy,
		builder:  opts.Builder,
		maxPages: opts.MaxPages,
		gate:     NewGate(opts.Delay),
		now:      opts.Now,
	}
}

// Summary counts what happened to the candidates of one run.
type Summary struct {
	Pages      int
	Candidates int
	NoArtwork  int
	Rejected   int
	Added      int
}

// Run pages through discovery and returns the accumulated database. Any
// fetch failure aborts the run and nothing is returned.
func (p *Pager) Run(ctx context.Context) (*models.Database, error) {
	db, _, err := p.RunWithSummary(ctx)
	return db, err
}

func (p *Pager) RunWithSummary(ctx context.Context) (*models.Database, Summary, error) {
	started := p.now()
	db := &models.Database{
		RunID:       uuid.NewString(),
		DateCreated: started,
		MovieList:   []models.Movie{},
	}
	var sum Summary

	p.logger.Info("Starting ingestion run",
		slog.String("run_id", db.RunID),
		slog.String("region", p.query.Region),
		slog.Int("max_pages", p.maxPages))

	page, totalPages := 1, 1
	for {
		resp, err := p.fetchPage(ctx, page)
		if err != nil {
			return nil, sum, err
		}
		if page == 1 {
			totalPages = *resp.TotalPages
			if p.maxPages > 0 && totalPages > p.maxPages {
				totalPages = p.maxPages
			}
		}
		sum.Pages++

		p.logger.Info("Processing page",
			slog.Int("page", page),
			slog.Int("total_pages", totalPages),
			slog.Int("results", len(*resp.Results)))

		for _, candidate := range *resp.Results {
			sum.Candidates++
			if err := p.handle(ctx, db, candidate, started, &sum); err != nil {
				return nil, sum, err
			}
		}

		if page >= totalPages {
			break
		}
		page++
	}

	p.logger.Info("Fetching complete",
		slog.String("run_id", db.RunID),
		slog.Int("pages", sum.Pages),
		slog.Int("candidates", sum.Candidates),
		slog.Int("no_artwork", sum.NoArtwork),
		slog.Int("rejected", sum.Rejected),
		slog.Int("movies", len(db.MovieList)))

	return db, sum, nil
}

func (p *Pager) fetchPage(ctx context.Context, page int) (*tmdb.DiscoverResponse, error) {
	if err := p.gate.Wait(ctx); err != nil {
		return nil, fmt.Errorf("failed waiting for request gate: %w", err)
	}
	resp, err := p.catalog.Discover(ctx, p.query, page)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	if page == 1 && resp.TotalPages == nil {
		return nil, fmt.Errorf("%w: page %d has no total_pages", ErrMalformedPage, page)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: page %d has no results", ErrMalformedPage, page)
	}
	return resp, nil
}

func (p *Pager) handle(ctx context.Context, db *models.Database, candidate tmdb.DiscoverResult, today time.Time, sum *Summary) error {
	if !candidate.HasArtwork() {
		sum.NoArtwork++
		p.logger.Debug("Skipping movie without artwork",
			slog.Int("tmdb_id", candidate.ID),
			slog.String("title", candidate.Title))
		return nil
	}

	if err := p.gate.Wait(ctx); err != nil {
		return fmt.Errorf("failed waiting for request gate: %w", err)
	}
	detail, err := p.catalog.MovieDetails(ctx, candidate.ID)
	if err != nil {
		// a malformed detail payload only costs this movie
		var decodeErr *tmdb.DecodeError
		if errors.As(err, &decodeErr) {
			sum.Rejected++
			p.logger.Info("Discarding movie",
				slog.Int("tmdb_id", candidate.ID),
				slog.String("title", candidate.Title),
				slog.String("reason", "malformed detail payload"),
				slog.Any("error", err))
			return nil
		}
		return fmt.Errorf("failed to fetch details for movie %d: %w", candidate.ID, err)
	}

	decision := p.policy.Evaluate(*detail, today)
	if !decision.Include {
		sum.Rejected++
		p.logger.Info("Discarding movie",
			slog.Int("tmdb_id", detail.ID),
			slog.String("title", detail.Title),
			slog.String("reason", decision.Reason))
		return nil
	}

	movie := p.builder.Build(*detail)
	movie.Released = decision.Released
	movie.Position = len(db.MovieList)
	db.MovieList = append(db.MovieList, movie)
	sum.Added++

	attrs := []any{
		slog.Int("tmdb_id", movie.TMDBID),
		slog.String("title", movie.Title),
		slog.String("release_date", movie.ReleaseDate),
		slog.String("certification", movie.Certification),
	}
	if movie.Trailer != nil {
		attrs = append(attrs, slog.String("trailer", *movie.Trailer))
	} else {
		attrs = append(attrs, slog.String("trailer", "not available"))
	}
	p.logger.Info("Adding movie", attrs...)

	return nil
}
