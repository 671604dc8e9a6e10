// Package ratecontrol derives the server-recommended client poll interval
// from recent request volume.
package ratecontrol

import (
	"sync/atomic"
	"time"
)

// Controller tracks request hits over fixed epochs and recomputes the
// recommended client tick rate at each epoch boundary. Hits are a single
// atomic counter; the recompute loop is the sole writer of the published
// rate, so readers never block.
type Controller struct {
	baseTickRate      int64
	divisor           int64
	recomputeInterval time.Duration

	hits          atomic.Int64
	attritionRate atomic.Int64
	tickRate      atomic.Int64
	lastRecompute atomic.Int64 // unix nanos
}

// Snapshot is a point-in-time view of the controller state.
type Snapshot struct {
	Hits          int64 `json:"hits"`
	AttritionRate int64 `json:"attrition_rate"`
	TickRate      int64 `json:"tick_rate"`
}

// NewController creates a controller publishing baseTickRate until the first
// recompute.
func NewController(baseTickRate, divisor int, recomputeInterval time.Duration) *Controller {
	if divisor < 1 {
		divisor = 1
	}
	c := &Controller{
		baseTickRate:      int64(baseTickRate),
		divisor:           int64(divisor),
		recomputeInterval: recomputeInterval,
	}
	c.attritionRate.Store(1)
	c.tickRate.Store(c.baseTickRate)
	return c
}

// Hit records one request and returns the hit count so far this epoch.
func (c *Controller) Hit() int64 {
	return c.hits.Add(1)
}

// TickRate returns the last published tick rate. It reflects the previous
// epoch's load; one epoch of lag is intended.
func (c *Controller) TickRate() int64 {
	return c.tickRate.Load()
}

// AttritionRate returns the last computed attrition multiplier.
func (c *Controller) AttritionRate() int64 {
	return c.attritionRate.Load()
}

// MaybeRecompute closes the epoch and republishes the tick rate when the
// recompute interval has elapsed. Returns true when a recompute happened.
func (c *Controller) MaybeRecompute(now time.Time) bool {
	last := c.lastRecompute.Load()
	if now.UnixNano()-last < c.recomputeInterval.Nanoseconds() {
		return false
	}
	c.lastRecompute.Store(now.UnixNano())
	c.Recompute()
	return true
}

// Recompute derives attrition from this epoch's hits and resets the counter.
// An idle epoch floors attrition to 1 so the tick rate never drops below
// base.
func (c *Controller) Recompute() Snapshot {
	hits := c.hits.Swap(0)

	attrition := hits / c.divisor
	if attrition < 1 {
		attrition = 1
	}

	c.attritionRate.Store(attrition)
	c.tickRate.Store(c.baseTickRate * attrition)

	return Snapshot{Hits: hits, AttritionRate: attrition, TickRate: c.tickRate.Load()}
}

// Stats returns the current controller state without mutating it.
func (c *Controller) Stats() Snapshot {
	return Snapshot{
		Hits:          c.hits.Load(),
		AttritionRate: c.attritionRate.Load(),
		TickRate:      c.tickRate.Load(),
	}
}
