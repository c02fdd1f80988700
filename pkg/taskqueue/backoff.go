package taskqueue

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

var retriesCounter = telemetry.MustNewCounter(
	telemetry.Meter(), "requestor.taskqueue.retries", "Task queue requests retried after a failure")

type BackoffParams struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
	Clock           clock.Clock
}

// DefaultBackoffParams waits 1s, 1.5s, 2.25s... capped at 10s, for at most two minutes.
var DefaultBackoffParams = BackoffParams{
	InitialInterval: time.Second,
	Multiplier:      1.5,
	MaxInterval:     10 * time.Second,
	MaxElapsedTime:  2 * time.Minute,
}

// NewExponentialBackOff returns a jitter-free exponential policy measuring its
// elapsed time on params.Clock.
func NewExponentialBackOff(params BackoffParams) *backoff.ExponentialBackOff {
	clk := params.Clock
	if clk == nil {
		clk = clock.New()
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     params.InitialInterval,
		RandomizationFactor: 0,
		Multiplier:          params.Multiplier,
		MaxInterval:         params.MaxInterval,
		MaxElapsedTime:      params.MaxElapsedTime,
		Stop:                backoff.Stop,
		Clock:               clk,
	}
	b.Reset()
	return b
}

// clockTimer adapts a clock.Clock timer to backoff.Timer so retries sleep on the same clock.
type clockTimer struct {
	clock clock.Clock
	timer *clock.Timer
}

func (t *clockTimer) Start(duration time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.Timer(duration)
		return
	}
	t.timer.Reset(duration)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.C
}

var _ backoff.Timer = (*clockTimer)(nil)

// retry runs op until it succeeds, fails permanently or the policy gives up.
// Giving up is reported as ErrServerUnreachable wrapping op's last error.
func (c *Client) retry(ctx context.Context, name string, op func() error) error {
	var lastErr error
	permanent := false
	operation := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			permanent = true
			return backoff.Permanent(ctx.Err())
		}
		lastErr = err
		return err
	}
	notify := func(err error, wait time.Duration) {
		retriesCounter.Inc(ctx)
		log.Ctx(ctx).Warn().Str("op", name).Msgf(
			"Failed to reach server err: <%s>, retrying after: %.1fs", err, wait.Seconds())
	}

	policy := backoff.WithContext(NewExponentialBackOff(c.backoff), ctx)
	err := backoff.RetryNotifyWithTimer(operation, policy, notify, &clockTimer{clock: c.clock})
	switch {
	case err == nil:
		return nil
	case permanent || ctx.Err() != nil:
		return ctx.Err()
	default:
		return NewErrServerUnreachable(name, lastErr)
	}
}
