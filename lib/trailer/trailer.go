// Package trailer picks the representative trailer for a movie out of its
// TMDB video list.
package trailer

import (
	"sort"
	"strings"

	"github.com/icco/movieland/lib/tmdb"
)

const watchURL = "https://www.youtube.com/watch?v="

type Trailer struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	Link string `json:"link"`
}

// Select returns the best English trailer. Official trailers come first and,
// among equally official ones, the alphabetically first name wins.
// ok is false when no video qualifies.
func Select(videos []tmdb.Video) (Trailer, bool) {
	candidates := make([]tmdb.Video, 0, len(videos))
	for _, v := range videos {
		if v.ISO639_1 != "en" || v.Type != "Trailer" || !trailerName(v.Name) {
			continue
		}
		candidates = append(candidates, v)
	}
	if len(candidates) == 0 {
		return Trailer{}, false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Official != b.Official {
			return a.Official
		}
		return a.Name < b.Name
	})

	best := candidates[0]
	return Trailer{Name: best.Name, Key: best.Key, Link: Link(best.Key)}, true
}

// Link builds the YouTube watch URL for a video key.
func Link(key string) string {
	return watchURL + key
}

func trailerName(name string) bool {
	n := strings.ToLower(name)
	return n == "official trailer" || n == "trailer" ||
		strings.Contains(n, "official trailer") || strings.Contains(n, "trailer")
}
