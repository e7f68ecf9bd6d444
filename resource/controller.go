// Package resource throttles calls to external collaborators such as the
// embedding backend.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxConcurrentCalls is the maximum number of calls in flight.
	// If 0, defaults to 1.
	MaxConcurrentCalls int64

	// MaxInFlightTexts bounds the number of texts being embedded at once
	// across all calls. If 0, texts are only counted.
	MaxInFlightTexts int64

	// CallsPerSecond is the sustained call rate. If 0, unlimited.
	CallsPerSecond float64

	// Burst is the number of calls allowed above the sustained rate.
	// If 0, defaults to MaxConcurrentCalls.
	Burst int
}

// Controller manages concurrency, rate and volume of outgoing calls.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	// Concurrency
	callSem *semaphore.Weighted

	// Volume
	textSem *semaphore.Weighted // nil if unlimited
	texts   atomic.Int64

	// Rate
	limiter *rate.Limiter

	calls atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentCalls <= 0 {
		cfg.MaxConcurrentCalls = 1
	}

	c := &Controller{
		cfg:     cfg,
		callSem: semaphore.NewWeighted(cfg.MaxConcurrentCalls),
	}

	if cfg.MaxInFlightTexts > 0 {
		c.textSem = semaphore.NewWeighted(cfg.MaxInFlightTexts)
	}

	if cfg.CallsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = int(cfg.MaxConcurrentCalls)
		}

		c.limiter = rate.NewLimiter(rate.Limit(cfg.CallsPerSecond), burst)
	}

	return c
}

// Acquire blocks until a call carrying n texts may start: a call slot is
// free, the rate limiter admits it and the text budget has room. The
// returned release func must be called exactly once when the call is done.
func (c *Controller) Acquire(ctx context.Context, n int64) (release func(), err error) {
	if c == nil {
		return func() {}, ctx.Err()
	}

	if c.textSem != nil {
		// A single call larger than the whole budget takes all of it.
		n = min(n, c.cfg.MaxInFlightTexts)
	}

	if err := c.callSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.callSem.Release(1)
			return nil, err
		}
	}

	if c.textSem != nil && n > 0 {
		if err := c.textSem.Acquire(ctx, n); err != nil {
			c.callSem.Release(1)
			return nil, err
		}
	}

	c.calls.Add(1)
	c.texts.Add(n)

	var done atomic.Bool

	return func() {
		if !done.CompareAndSwap(false, true) {
			return
		}

		c.calls.Add(-1)
		c.texts.Add(-n)

		if c.textSem != nil && n > 0 {
			c.textSem.Release(n)
		}

		c.callSem.Release(1)
	}, nil
}

// InFlight returns the number of calls and texts currently admitted.
func (c *Controller) InFlight() (calls, texts int64) {
	if c == nil {
		return 0, 0
	}

	return c.calls.Load(), c.texts.Load()
}
