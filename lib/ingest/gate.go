package ingest

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate spaces out calls to the catalog API. Every Wait after the first
// blocks until at least the configured delay has passed since the previous
// one. It is safe for concurrent use, so parallel workers may share one.
type Gate struct {
	limiter *rate.Limiter
}

// NewGate returns a gate with the given delay. A delay <= 0 never blocks.
func NewGate(delay time.Duration) *Gate {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &Gate{limiter: rate.NewLimiter(limit, 1)}
}

func (g *Gate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
