// Package record turns a TMDB movie detail payload into the normalized
// models.Movie stored by the sinks.
package record

import (
	"sort"

	"github.com/icco/movieland/lib/release"
	"github.com/icco/movieland/lib/tmdb"
	"github.com/icco/movieland/lib/trailer"
	"github.com/icco/movieland/models"
)

const (
	maxActors      = 5
	directorJob    = "Director"
	statusReleased = "Released"
)

// Builder composes a record from the detail payload. It does no I/O and
// returns the same record for the same input.
type Builder struct {
	Resolver *release.Resolver
}

// NewBuilder returns a Builder using the given region priority.
func NewBuilder(priority []string) *Builder {
	return &Builder{Resolver: release.NewResolver(priority)}
}

var defaultBuilder = NewBuilder(release.DefaultPriority)

// Build uses the default NZ, AU, US region priority.
func Build(detail tmdb.MovieDetails) models.Movie {
	return defaultBuilder.Build(detail)
}

func (b *Builder) Build(detail tmdb.MovieDetails) models.Movie {
	releaseDate := detail.ReleaseDate
	certification := ""
	if len(detail.ReleaseDates.Results) > 0 {
		resolved := b.Resolver.Resolve(detail.ReleaseDates.Results, detail.ReleaseDate)
		releaseDate = resolved.ReleaseDate
		certification = resolved.Certification
	}
	if certification == "" {
		certification = models.CertificationPlaceholder
	}

	var link *string
	if len(detail.Videos.Results) > 0 {
		if t, ok := trailer.Select(detail.Videos.Results); ok {
			link = &t.Link
		}
	}

	var imdbID string
	if detail.IMDBID != nil {
		imdbID = *detail.IMDBID
	}

	return models.Movie{
		TMDBID:        detail.ID,
		IMDBID:        imdbID,
		Title:         detail.Title,
		Tagline:       detail.Tagline,
		Released:      detail.Status == statusReleased,
		ReleaseDate:   releaseDate,
		Certification: certification,
		Runtime:       detail.Runtime,
		Director:      directors(detail.Credits.Crew),
		Actors:        topBilled(detail.Credits.Cast, maxActors),
		Overview:      detail.Overview,
		Genres:        genres(detail.Genres),
		Backdrop:      detail.BackdropPath,
		Poster:        detail.PosterPath,
		Trailer:       link,
	}
}

func directors(crew []tmdb.CrewMember) []models.CrewMember {
	out := []models.CrewMember{}
	for _, c := range crew {
		if c.Job != directorJob {
			continue
		}
		out = append(out, models.CrewMember{
			ID:          c.ID,
			Name:        c.Name,
			Job:         c.Job,
			Department:  c.Department,
			ProfilePath: c.ProfilePath,
		})
	}
	return out
}

// topBilled returns the first n cast members by ascending billing order.
func topBilled(cast []tmdb.CastMember, n int) []models.CastMember {
	sorted := append([]tmdb.CastMember(nil), cast...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]models.CastMember, len(sorted))
	for i, c := range sorted {
		out[i] = models.CastMember{
			ID:          c.ID,
			Name:        c.Name,
			Character:   c.Character,
			Order:       c.Order,
			ProfilePath: c.ProfilePath,
		}
	}
	return out
}

func genres(in []tmdb.Genre) []models.Genre {
	out := make([]models.Genre, len(in))
	for i, g := range in {
		out[i] = models.Genre{ID: g.ID, Name: g.Name}
	}
	return out
}
