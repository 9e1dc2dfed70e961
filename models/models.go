package models

import (
	"time"
)

// CertificationPlaceholder replaces a certification no region provided.
const CertificationPlaceholder = "TBA"

// Database is the aggregate produced by one ingestion run.
type Database struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	RunID       string    `gorm:"uniqueIndex;size:36" json:"run_id"`
	DateCreated time.Time `gorm:"index" json:"date_created"`
	MovieList   []Movie   `gorm:"foreignKey:DatabaseID;constraint:OnDelete:CASCADE" json:"movie_list"`
	CreatedAt   time.Time `json:"-"`
}

// Movie is the normalized record handed to the sinks.
type Movie struct {
	ID            uint         `gorm:"primaryKey" json:"-"`
	DatabaseID    uint         `gorm:"index" json:"-"`
	Position      int          `json:"-"` // discovery order within the run
	TMDBID        int          `gorm:"column:tmdb_id;index" json:"tmdb_id"`
	IMDBID        string       `gorm:"column:imdb_id" json:"imdb_id"`
	Title         string       `json:"title"`
	Tagline       string       `json:"tagline"`
	Released      bool         `json:"released"`
	ReleaseDate   string       `json:"release_date"`
	Certification string       `json:"certification"`
	Runtime       int          `json:"runtime"`
	Director      []CrewMember `gorm:"serializer:json" json:"director"`
	Actors        []CastMember `gorm:"serializer:json" json:"actors"`
	Overview      string       `json:"overview"`
	Genres        []Genre      `gorm:"serializer:json" json:"genres"`
	Backdrop      string       `json:"backdrop"`
	Poster        string       `json:"poster"`
	Trailer       *string      `json:"trailer"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
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
