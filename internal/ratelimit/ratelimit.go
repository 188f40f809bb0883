// Package ratelimit spaces consecutive page visits. Serial browsing with
// irregular gaps reads more human than a fixed cadence.
package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Delayer sleeps a uniformly random duration in [min, max] between visits,
// discounting time already spent since the previous one. Visits are
// strictly sequential, so no locking is needed.
type Delayer struct {
	min       time.Duration
	max       time.Duration
	lastVisit time.Time
}

func New(min, max time.Duration) *Delayer {
	return &Delayer{min: min, max: max}
}

// Wait blocks until enough time has passed since the previous visit, or
// until the context is cancelled.
func (d *Delayer) Wait(ctx context.Context) error {
	delay := d.pick()
	if !d.lastVisit.IsZero() {
		if elapsed := time.Since(d.lastVisit); elapsed < delay {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay - elapsed):
			}
		}
	}
	d.lastVisit = time.Now()
	return nil
}

func (d *Delayer) pick() time.Duration {
	if d.max <= d.min {
		return d.min
	}
	return d.min + time.Duration(rand.Int63n(int64(d.max-d.min)))
}
