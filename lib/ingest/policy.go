package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/icco/movieland/lib/tmdb"
	"github.com/icco/movieland/lib/validation"
)

// ReleasedFrom selects how a record's released flag is derived.
type ReleasedFrom int

const (
	// ReleasedFromStatus uses the detail payload's status == "Released".
	ReleasedFromStatus ReleasedFrom = iota
	// ReleasedFromDate treats a release date on or before today as released.
	ReleasedFromDate
)

func ParseReleasedFrom(s string) (ReleasedFrom, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "status":
		return ReleasedFromStatus, nil
	case "date":
		return ReleasedFromDate, nil
	default:
		return ReleasedFromStatus, fmt.Errorf("unknown released derivation %q", s)
	}
}

func (r ReleasedFrom) String() string {
	if r == ReleasedFromDate {
		return "date"
	}
	return "status"
}

// Policy decides which detailed movies make it into the database.
//
// A movie must carry an IMDB id. If it has already come out it also needs
// MinPopularity, MinVoteAverage and MinVoteCount; an upcoming movie only
// needs MinPopularity.
type Policy struct {
	MinPopularity  float64
	MinVoteAverage float64
	MinVoteCount   int
	ReleasedFrom   ReleasedFrom
}

func DefaultPolicy() Policy {
	return Policy{
		MinPopularity:  5,
		MinVoteAverage: 5,
		MinVoteCount:   50,
		ReleasedFrom:   ReleasedFromStatus,
	}
}

// Decision is the outcome of evaluating a Policy against one movie.
type Decision struct {
	Include  bool
	Reason   string
	Released bool
}

// Evaluate applies the policy. today is compared by calendar date only.
func (p Policy) Evaluate(d tmdb.MovieDetails, today time.Time) Decision {
	if d.IMDBID == nil || strings.TrimSpace(*d.IMDBID) == "" {
		return Decision{Reason: "no IMDB id"}
	}

	releaseDate, err := validation.ParseDate(d.ReleaseDate)
	if err != nil {
		return Decision{Reason: fmt.Sprintf("bad release date: %v", err)}
	}
	out := !releaseDate.After(truncateDay(today))

	released := d.Status == "Released"
	if p.ReleasedFrom == ReleasedFromDate {
		released = out
	}

	if d.Popularity < p.MinPopularity {
		return Decision{Reason: fmt.Sprintf("popularity %.2f below %.2f", d.Popularity, p.MinPopularity), Released: released}
	}
	if out {
		if d.VoteAverage < p.MinVoteAverage {
			return Decision{Reason: fmt.Sprintf("vote average %.1f below %.1f", d.VoteAverage, p.MinVoteAverage), Released: released}
		}
		if d.VoteCount < p.MinVoteCount {
			return Decision{Reason: fmt.Sprintf("vote count %d below %d", d.VoteCount, p.MinVoteCount), Released: released}
		}
	}

	return Decision{Include: true, Released: released}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
