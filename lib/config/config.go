// Package config loads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/icco/movieland/lib/ingest"
	"github.com/icco/movieland/lib/release"
	"github.com/icco/movieland/lib/tmdb"
)

// Config is the validated service configuration.
type Config struct {
	APIKey         string   `validate:"required"`
	BaseURL        string   `validate:"required,url"`
	Region         string   `validate:"required,len=2,alpha"`
	RegionPriority []string `validate:"required,min=1,dive,len=2,alpha"`
	Language       string   `validate:"required"`

	LookbackDays   int           `validate:"gte=0"`
	LookaheadDays  int           `validate:"gte=0"`
	MinPopularity  float64       `validate:"gte=0"`
	MinVoteAverage float64       `validate:"gte=0,lte=10"`
	MinVoteCount   int           `validate:"gte=0"`
	MaxPages       int           `validate:"gte=0"`
	Delay          time.Duration `validate:"gte=0"`
	ReleasedFrom   string        `validate:"oneof=status date"`
	Retries        int           `validate:"gte=0,lte=10"`

	DBPath     string `validate:"required"`
	ExportPath string
	Port       string `validate:"required,numeric"`
	LogLevel   string `validate:"omitempty,oneof=debug info warn warning error"`
	LogFile    string
}

var validate = validator.New()

// Load reads the environment through os.Getenv.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads settings through getenv, applies defaults and validates
// the result.
func LoadFrom(getenv func(string) string) (*Config, error) {
	env := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	var errs []error
	intVar := func(key string, def int) int {
		v, err := strconv.Atoi(env(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be an integer: %w", key, err))
		}
		return v
	}
	floatVar := func(key string, def float64) float64 {
		v, err := strconv.ParseFloat(env(key, strconv.FormatFloat(def, 'f', -1, 64)), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s must be a number: %w", key, err))
		}
		return v
	}

	cfg := &Config{
		APIKey:         env("TMDB_API_KEY", ""),
		BaseURL:        env("TMDB_BASE_URL", tmdb.DefaultBaseURL),
		Region:         strings.ToUpper(env("TMDB_REGION", "AU")),
		RegionPriority: splitList(env("TMDB_REGION_PRIORITY", strings.Join(release.DefaultPriority, ","))),
		Language:       env("TMDB_LANGUAGE", "en-US"),
		LookbackDays:   intVar("FETCH_LOOKBACK_DAYS", 100),
		LookaheadDays:  intVar("FETCH_LOOKAHEAD_DAYS", 100),
		MinPopularity:  floatVar("FETCH_MIN_POPULARITY", 5),
		MinVoteAverage: floatVar("FETCH_MIN_VOTE_AVERAGE", 5),
		MinVoteCount:   intVar("FETCH_MIN_VOTE_COUNT", 50),
		MaxPages:       intVar("FETCH_MAX_PAGES", 0),
		ReleasedFrom:   strings.ToLower(env("FETCH_RELEASED_FROM", "status")),
		Retries:        intVar("FETCH_RETRIES", 2),
		DBPath:         env("DB_PATH", "movieland.db"),
		ExportPath:     env("EXPORT_PATH", ""),
		Port:           env("PORT", "8080"),
		LogLevel:       strings.ToLower(env("LOG_LEVEL", "info")),
		LogFile:        env("LOG_FILE", ""),
	}

	delay, err := time.ParseDuration(env("FETCH_DELAY", "200ms"))
	if err != nil {
		errs = append(errs, fmt.Errorf("FETCH_DELAY must be a duration: %w", err))
	}
	cfg.Delay = delay

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DiscoverQuery builds the discovery filter for a run starting at now: a
// window of LookbackDays before to LookaheadDays after, theatrical releases
// only, English-language originals.
func (c *Config) DiscoverQuery(now time.Time) tmdb.DiscoverQuery {
	return tmdb.DiscoverQuery{
		Region:           c.Region,
		OriginalLanguage: "en",
		From:             now.AddDate(0, 0, -c.LookbackDays),
		To:               now.AddDate(0, 0, c.LookaheadDays),
		ReleaseTypes:     []int{tmdb.ReleaseTheatrical, tmdb.ReleaseTheatricalLimited},
	}
}

// Policy returns the inclusion policy described by the thresholds.
func (c *Config) Policy() (ingest.Policy, error) {
	releasedFrom, err := ingest.ParseReleasedFrom(c.ReleasedFrom)
	if err != nil {
		return ingest.Policy{}, err
	}
	return ingest.Policy{
		MinPopularity:  c.MinPopularity,
		MinVoteAverage: c.MinVoteAverage,
		MinVoteCount:   c.MinVoteCount,
		ReleasedFrom:   releasedFrom,
	}, nil
}

// ClientOptions returns the TMDB client options for this configuration.
func (c *Config) ClientOptions() []tmdb.Option {
	return []tmdb.Option{
		tmdb.WithBaseURL(c.BaseURL),
		tmdb.WithLanguage(c.Language),
		tmdb.WithRetry(uint(c.Retries), time.Second),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
