package tmdb

// Release types as reported by the release_dates sub-resource.
const (
	ReleasePremiere          = 1
	ReleaseTheatricalLimited = 2
	ReleaseTheatrical        = 3
	ReleaseDigital           = 4
	ReleasePhysical          = 5
	ReleaseTV                = 6
)

// DiscoverResponse is one page of /discover/movie.
// TotalPages and Results are pointers so a missing field can be told apart
// from an empty one.
type DiscoverResponse struct {
	Page         int               `json:"page"`
	Results      *[]DiscoverResult `json:"results"`
	TotalPages   *int              `json:"total_pages"`
	TotalResults int               `json:"total_results"`
}

type DiscoverResult struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	ReleaseDate      string  `json:"release_date"`
	Popularity       float64 `json:"popularity"`
	VoteAverage      float64 `json:"vote_average"`
	VoteCount        int     `json:"vote_count"`
	BackdropPath     *string `json:"backdrop_path"`
	PosterPath       *string `json:"poster_path"`
	GenreIDs         []int   `json:"genre_ids"`
	OriginalLanguage string  `json:"original_language"`
	Adult            bool    `json:"adult"`
	Video            bool    `json:"video"`
}

// HasArtwork reports whether both the backdrop and the poster are present.
func (r DiscoverResult) HasArtwork() bool {
	return r.BackdropPath != nil && *r.BackdropPath != "" &&
		r.PosterPath != nil && *r.PosterPath != ""
}

// MovieDetails is /movie/{id} with release_dates, videos and credits appended.
type MovieDetails struct {
	ID           int          `json:"id"`
	IMDBID       *string      `json:"imdb_id"`
	Title        string       `json:"title"`
	Tagline      string       `json:"tagline"`
	Overview     string       `json:"overview"`
	Status       string       `json:"status"`
	ReleaseDate  string       `json:"release_date"`
	Runtime      int          `json:"runtime"`
	Popularity   float64      `json:"popularity"`
	VoteAverage  float64      `json:"vote_average"`
	VoteCount    int          `json:"vote_count"`
	Genres       []Genre      `json:"genres"`
	BackdropPath string       `json:"backdrop_path"`
	PosterPath   string       `json:"poster_path"`
	ReleaseDates ReleaseDates `json:"release_dates"`
	Videos       Videos       `json:"videos"`
	Credits      Credits      `json:"credits"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ReleaseDates struct {
	Results []ReleaseDatesResult `json:"results"`
}

// ReleaseDatesResult holds every release row for one region.
type ReleaseDatesResult struct {
	ISO31661     string        `json:"iso_3166_1"`
	ReleaseDates []ReleaseDate `json:"release_dates"`
}

type ReleaseDate struct {
	Type          int    `json:"type"`
	ReleaseDate   string `json:"release_date"`
	Certification string `json:"certification"`
	Note          string `json:"note,omitempty"`
}

type Videos struct {
	Results []Video `json:"results"`
}

type Video struct {
	Name     string `json:"name"`
	Key      string `json:"key"`
	Site     string `json:"site"`
	ISO639_1 string `json:"iso_639_1"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

type CastMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	Order       int    `json:"order"`
	ProfilePath string `json:"profile_path"`
}

type CrewMember struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}
