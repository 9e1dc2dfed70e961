// Package release resolves a movie's theatrical release date and content
// certification from the per-region release rows returned by TMDB.
package release

import (
	"strings"

	"github.com/icco/movieland/lib/tmdb"
)

// DefaultPriority is the region order used when none is configured.
var DefaultPriority = []string{"NZ", "AU", "US"}

// Resolved is the outcome of resolution. An empty field means unresolved.
// DateFallback is set when no theatrical row matched and ReleaseDate holds
// the caller's fallback instead.
type Resolved struct {
	ReleaseDate   string
	Certification string
	DateFallback  bool
}

// Rule selects rows of the given types from one region. Types are tried in
// order, so {3, 2} means "theatrical, else limited".
type Rule struct {
	Region string
	Types  []int
}

// Resolver evaluates two ordered rule tables, one for the date and one for
// the certification, stopping at the first rule that yields a value.
type Resolver struct {
	DateRules          []Rule
	CertificationRules []Rule
}

// NewResolver builds the rule tables for a region priority list. Only a
// theatrical row may set the date; a certification may come from a
// theatrical row or, failing that, a limited row in the same region.
func NewResolver(priority []string) *Resolver {
	if len(priority) == 0 {
		priority = DefaultPriority
	}
	r := &Resolver{}
	for _, region := range priority {
		region = strings.ToUpper(strings.TrimSpace(region))
		r.DateRules = append(r.DateRules, Rule{
			Region: region,
			Types:  []int{tmdb.ReleaseTheatrical},
		})
		r.CertificationRules = append(r.CertificationRules, Rule{
			Region: region,
			Types:  []int{tmdb.ReleaseTheatrical, tmdb.ReleaseTheatricalLimited},
		})
	}
	return r
}

var defaultResolver = NewResolver(DefaultPriority)

// Resolve runs the default NZ, AU, US resolver. When no theatrical date is
// found the fallback date is used instead.
func Resolve(entries []tmdb.ReleaseDatesResult, fallbackDate string) Resolved {
	return defaultResolver.Resolve(entries, fallbackDate)
}

func (r *Resolver) Resolve(entries []tmdb.ReleaseDatesResult, fallbackDate string) Resolved {
	byRegion := make(map[string][]tmdb.ReleaseDate, len(entries))
	for _, e := range entries {
		region := strings.ToUpper(e.ISO31661)
		// first entry for a region wins
		if _, ok := byRegion[region]; !ok {
			byRegion[region] = e.ReleaseDates
		}
	}

	var out Resolved
	if row, ok := firstMatch(r.DateRules, byRegion, func(rd tmdb.ReleaseDate) bool {
		return dateOnly(rd.ReleaseDate) != ""
	}); ok {
		out.ReleaseDate = dateOnly(row.ReleaseDate)
	} else {
		out.ReleaseDate = dateOnly(fallbackDate)
		out.DateFallback = true
	}

	if row, ok := firstMatch(r.CertificationRules, byRegion, func(rd tmdb.ReleaseDate) bool {
		return strings.TrimSpace(rd.Certification) != ""
	}); ok {
		out.Certification = strings.TrimSpace(row.Certification)
	}

	return out
}

// firstMatch walks the rules top to bottom. Within a rule each type is tried
// in turn, and rows of that type are taken in the order TMDB listed them.
func firstMatch(rules []Rule, byRegion map[string][]tmdb.ReleaseDate, accept func(tmdb.ReleaseDate) bool) (tmdb.ReleaseDate, bool) {
	for _, rule := range rules {
		rows, ok := byRegion[rule.Region]
		if !ok {
			continue
		}
		for _, typ := range rule.Types {
			for _, row := range rows {
				if row.Type == typ && accept(row) {
					return row, true
				}
			}
		}
	}
	return tmdb.ReleaseDate{}, false
}

// dateOnly trims a TMDB timestamp such as 2024-01-15T00:00:00.000Z to its
// calendar date.
func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 && s[10] == 'T' {
		return s[:10]
	}
	return s
}
