package fetcher

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out requests: a global rate ceiling shared by all workers,
// then a random delay drawn from [min, max].
type Pacer struct {
	limiter *rate.Limiter
	min     time.Duration
	max     time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer creates a Pacer. A ratePerSecond of 0 disables the ceiling.
func NewPacer(ratePerSecond float64, min, max time.Duration) *Pacer {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	if max < min {
		max = min
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
		min:     min,
		max:     max,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay draws a pacing delay from [min, max].
func (p *Pacer) Delay() time.Duration {
	span := p.max - p.min
	if span <= 0 {
		return p.min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min + time.Duration(p.rng.Int63n(int64(span)+1))
}

// Wait blocks until the next request may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
