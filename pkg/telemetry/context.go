package telemetry

import (
	"context"
	"time"
)

// NewDetachedContext keeps everything parent carries, its span and logger
// included, but none of its cancellation or deadline. Teardown that has to run
// after an interrupt uses it, so destroying the activity or withdrawing the
// demand still shows up under the run's trace.
func NewDetachedContext(parent context.Context) context.Context {
	return detached{Context: parent}
}

// NewCleanupContext detaches from parent and bounds the teardown by timeout.
func NewCleanupContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(NewDetachedContext(parent), timeout)
}

// detached only forwards Value to the wrapped context.
type detached struct {
	context.Context
}

func (detached) Deadline() (time.Time, bool) { return time.Time{}, false }

func (detached) Done() <-chan struct{} { return nil }

func (detached) Err() error { return nil }
