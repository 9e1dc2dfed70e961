package types

import "time"

// StatsData summarizes what the store holds across ingestion runs.
type StatsData struct {
	TotalDatabases int64     `json:"total_databases"`
	TotalMovies    int64     `json:"total_movies"`
	LatestRunID    string    `json:"latest_run_id,omitempty"`
	LatestMovies   int64     `json:"latest_movies"`
	LatestReleased int64     `json:"latest_released"`
	LatestUpcoming int64     `json:"latest_upcoming"`
	FirstDate      time.Time `json:"first_date"`
	LastDate       time.Time `json:"last_date"`
	AverageRunSize float64   `json:"average_run_size"`
	Certifications []Count   `json:"certifications"`
}

// Count is a label with the number of latest-run movies carrying it.
type Count struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}
