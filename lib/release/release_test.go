package release

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icco/movieland/lib/tmdb"
)

func region(code string, rows ...tmdb.ReleaseDate) tmdb.ReleaseDatesResult {
	return tmdb.ReleaseDatesResult{ISO31661: code, ReleaseDates: rows}
}

func row(typ int, date, cert string) tmdb.ReleaseDate {
	return tmdb.ReleaseDate{Type: typ, ReleaseDate: date, Certification: cert}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		entries  []tmdb.ReleaseDatesResult
		fallback string
		want     Resolved
	}{
		{
			name: "NZ theatrical wins over AU and US",
			entries: []tmdb.ReleaseDatesResult{
				region("US", row(3, "2024-01-01T00:00:00.000Z", "PG-13")),
				region("AU", row(3, "2024-01-10T00:00:00.000Z", "MA15+")),
				region("NZ", row(3, "2024-01-15T00:00:00.000Z", "M")),
			},
			fallback: "2023-12-25",
			want:     Resolved{ReleaseDate: "2024-01-15", Certification: "M"},
		},
		{
			name: "no theatrical row uses the fallback date",
			entries: []tmdb.ReleaseDatesResult{
				region("NZ", row(4, "2024-03-01", "")),
				region("US", row(2, "2024-02-01", "R")),
			},
			fallback: "2024-01-20",
			want:     Resolved{ReleaseDate: "2024-01-20", Certification: "R", DateFallback: true},
		},
		{
			name: "no theatrical row and no fallback leaves the date empty",
			entries: []tmdb.ReleaseDatesResult{
				region("GB", row(3, "2024-03-01", "15")),
			},
			want: Resolved{DateFallback: true},
		},
		{
			name: "NZ limited row with empty certification falls through to AU theatrical",
			entries: []tmdb.ReleaseDatesResult{
				region("NZ", row(2, "2024-01-05", "")),
				region("AU", row(3, "2024-01-11", "M")),
			},
			want: Resolved{ReleaseDate: "2024-01-11", Certification: "M"},
		},
		{
			name: "empty theatrical certification falls back to limited row in same region",
			entries: []tmdb.ReleaseDatesResult{
				region("AU", row(3, "2024-02-01", "PG")),
				region("NZ", row(3, "2024-02-02", ""), row(2, "2024-01-20", "R16")),
			},
			want: Resolved{ReleaseDate: "2024-02-02", Certification: "R16"},
		},
		{
			name: "date and certification can come from different regions",
			entries: []tmdb.ReleaseDatesResult{
				region("NZ", row(3, "2024-04-04", "")),
				region("US", row(3, "2024-04-01", "PG")),
			},
			want: Resolved{ReleaseDate: "2024-04-04", Certification: "PG"},
		},
		{
			name: "row order within region decides ties",
			entries: []tmdb.ReleaseDatesResult{
				region("AU", row(3, "2024-05-09", "M"), row(3, "2024-05-01", "PG")),
			},
			want: Resolved{ReleaseDate: "2024-05-09", Certification: "M"},
		},
		{
			name: "premiere rows never set the date",
			entries: []tmdb.ReleaseDatesResult{
				region("NZ", row(1, "2024-01-01", "M")),
			},
			fallback: "2024-02-01",
			want:     Resolved{ReleaseDate: "2024-02-01", DateFallback: true},
		},
		{
			name:     "no entries",
			fallback: "2024-06-01",
			want:     Resolved{ReleaseDate: "2024-06-01", DateFallback: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.entries, tt.fallback))
		})
	}
}

func TestResolve_NZTheatricalAlwaysWins(t *testing.T) {
	nz := region("NZ", row(3, "2024-01-15", "M"))
	others := [][]tmdb.ReleaseDatesResult{
		nil,
		{region("AU", row(3, "2023-01-01", "R18+"))},
		{region("US", row(3, "2022-01-01", "G")), region("AU", row(2, "2021-01-01", "PG"))},
		{region("AU", row(3, "2020-01-01", "")), region("US", row(3, "2019-01-01", "R"))},
	}
	for _, rest := range others {
		entries := append(append([]tmdb.ReleaseDatesResult{}, rest...), nz)
		got := Resolve(entries, "1999-01-01")
		assert.Equal(t, "2024-01-15", got.ReleaseDate)
		assert.False(t, got.DateFallback)
	}
}

func TestNewResolver_CustomPriority(t *testing.T) {
	r := NewResolver([]string{"us", " gb "})
	entries := []tmdb.ReleaseDatesResult{
		region("NZ", row(3, "2024-01-15", "M")),
		region("GB", row(3, "2024-01-12", "15")),
		region("US", row(2, "2024-01-10", "R")),
	}
	assert.Equal(t, Resolved{ReleaseDate: "2024-01-12", Certification: "R"}, r.Resolve(entries, ""))
}

func TestNewResolver_EmptyPriorityUsesDefault(t *testing.T) {
	r := NewResolver(nil)
	assert.Len(t, r.DateRules, len(DefaultPriority))
	assert.Equal(t, "NZ", r.DateRules[0].Region)
	assert.Equal(t, []int{tmdb.ReleaseTheatrical, tmdb.ReleaseTheatricalLimited}, r.CertificationRules[0].Types)
}
