package backoff

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Fixed waits the same delay before every attempt but the first.
type Fixed struct {
	Delay time.Duration
	Clock clock.Clock
}

func NewFixed(delay time.Duration, clk clock.Clock) *Fixed {
	if clk == nil {
		clk = clock.New()
	}
	return &Fixed{Delay: delay, Clock: clk}
}

func (f *Fixed) BackoffDuration(attempts int) time.Duration {
	if attempts == 0 {
		return 0
	}
	return f.Delay
}

func (f *Fixed) Backoff(ctx context.Context, attempts int) {
	sleep(ctx, f.Clock, f.BackoffDuration(attempts))
}

func sleep(ctx context.Context, clk clock.Clock, d time.Duration) {
	if d <= 0 {
		return
	}
	if clk == nil {
		clk = clock.New()
	}
	timer := clk.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// compile time check whether the Fixed implements the Backoff interface.
var _ Backoff = (*Fixed)(nil)
