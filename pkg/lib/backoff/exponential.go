package backoff

import (
	"context"
	"math"
	"time"

	"github.com/benbjohnson/clock"
)

// Exponential implements a backoff strategy that increases the backoff duration exponentially,
// up to a maximum backoff duration.
type Exponential struct {
	BaseBackoff time.Duration // Base backoff duration
	MaxBackoff  time.Duration // Maximum backoff duration
	Multiplier  float64       // Growth factor between attempts, 2 when unset
	Clock       clock.Clock
}

func NewExponential(baseBackoff, maxBackoff time.Duration) *Exponential {
	return &Exponential{
		BaseBackoff: baseBackoff,
		MaxBackoff:  maxBackoff,
		Multiplier:  2,
		Clock:       clock.New(),
	}
}

func (eb *Exponential) BackoffDuration(attempts int) time.Duration {
	if attempts == 0 {
		return 0
	}
	multiplier := eb.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	backoff := float64(eb.BaseBackoff) * math.Pow(multiplier, float64(attempts-1))
	if backoff > float64(eb.MaxBackoff) {
		backoff = float64(eb.MaxBackoff)
	}
	return time.Duration(backoff)
}

func (eb *Exponential) Backoff(ctx context.Context, attempts int) {
	sleep(ctx, eb.Clock, eb.BackoffDuration(attempts))
}

// compile time check whether the Exponential implements the Backoff interface.
var _ Backoff = (*Exponential)(nil)
