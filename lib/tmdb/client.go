package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"github.com/avast/retry-go/v4"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	imageBaseURL    = "https://image.tmdb.org/t/p"
	dateLayout      = "2006-01-02"
	detailResources = "release_dates,videos,credits"
)

type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
	retries    uint
	retryDelay time.Duration
}

type Option func(*Client)

// WithBaseURL points the client at another API root, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithLanguage(language string) Option {
	return func(c *Client) { c.language = language }
}

// WithRetry sets how many times a transient failure (network error, 429, 5xx)
// is retried and the base delay between attempts.
func WithRetry(retries uint, delay time.Duration) Option {
	return func(c *Client) {
		c.retries = retries
		c.retryDelay = delay
	}
}

func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		language:   "en-US",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		retries:    2,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DiscoverQuery holds the filters sent to /discover/movie.
type DiscoverQuery struct {
	Region           string
	OriginalLanguage string
	From             time.Time
	To               time.Time
	ReleaseTypes     []int
}

func (q DiscoverQuery) values() url.Values {
	v := url.Values{}
	v.Set("sort_by", "popularity.desc")
	v.Set("include_adult", "false")
	v.Set("include_video", "false")
	if q.Region != "" {
		v.Set("region", q.Region)
	}
	if q.OriginalLanguage != "" {
		v.Set("with_original_language", q.OriginalLanguage)
	}
	if !q.From.IsZero() {
		v.Set("primary_release_date.gte", q.From.Format(dateLayout))
	}
	if !q.To.IsZero() {
		v.Set("primary_release_date.lte", q.To.Format(dateLayout))
	}
	if len(q.ReleaseTypes) > 0 {
		types := make([]string, len(q.ReleaseTypes))
		for i, t := range q.ReleaseTypes {
			types[i] = strconv.Itoa(t)
		}
		v.Set("with_release_type", strings.Join(types, "|"))
	}
	return v
}

// Discover fetches one page of discovery results.
func (c *Client) Discover(ctx context.Context, q DiscoverQuery, page int) (*DiscoverResponse, error) {
	params := q.values()
	params.Set("page", strconv.Itoa(page))

	var result DiscoverResponse
	if err := c.get(ctx, "/discover/movie", params, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch discover page %d: %w", page, err)
	}
	return &result, nil
}

// MovieDetails fetches a movie together with its release dates, videos and credits.
func (c *Client) MovieDetails(ctx context.Context, id int) (*MovieDetails, error) {
	params := url.Values{}
	params.Set("language", c.language)
	params.Set("append_to_response", detailResources)

	var result MovieDetails
	if err := c.get(ctx, "/movie/"+strconv.Itoa(id), params, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch movie %d: %w", id, err)
	}
	return &result, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	return retry.Do(
		func() error { return c.do(ctx, endpoint, path, out) },
		retry.Context(ctx),
		retry.Attempts(c.retries+1),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransient),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("Retrying TMDB request",
				slog.String("path", path),
				slog.Uint64("attempt", uint64(n+1)),
				slog.Any("error", err))
		}),
	)
}

func (c *Client) do(ctx context.Context, endpoint, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Making TMDB request", slog.String("path", path))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the full URL, api_key included
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return &RequestError{Path: path, Err: err}
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Error("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPStatusError(path, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RequestError{Path: path, Err: err}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &DecodeError{Path: path, Err: err}
	}

	return nil
}

// isTransient reports whether a failed request is worth another attempt.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// RequestError is returned when a request never produced a response.
type RequestError struct {
	Path string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to TMDB %s failed: %v", e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// DecodeError is returned when a response body does not match the expected
// payload. Retrying returns the same body, so it is never retried.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode TMDB response for %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// HTTPStatusError is returned for any non-2xx response.
type HTTPStatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func newHTTPStatusError(path string, resp *http.Response) *HTTPStatusError {
	e := &HTTPStatusError{Path: path, StatusCode: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return e
	}
	var apiErr struct {
		StatusMessage string `json:"status_message"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		e.Message = apiErr.StatusMessage
	}
	return e
}

func (e *HTTPStatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("TMDB returned HTTP %d for %s", e.StatusCode, e.Path)
	}
	return fmt.Sprintf("TMDB returned HTTP %d for %s: %s", e.StatusCode, e.Path, e.Message)
}

// Temporary reports whether the status is a rate limit or a server error.
func (e *HTTPStatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// PosterURL returns the w500 image URL for a poster path.
func PosterURL(posterPath string) string {
	if posterPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/w500%s", imageBaseURL, posterPath)
}

// BackdropURL returns the w1280 image URL for a backdrop path.
func BackdropURL(backdropPath string) string {
	if backdropPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/w1280%s", imageBaseURL, backdropPath)
}
