package activity

import (
	"context"
	"io"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/lib/concurrency"
	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

type ExecutorParams struct {
	Activity Activity
}

// Executor runs batches on one activity and owns its teardown.
type Executor struct {
	activity Activity

	destroyOnce sync.Once
	destroyErr  error
}

func NewExecutor(params ExecutorParams) *Executor {
	return &Executor{activity: params.Activity}
}

func (e *Executor) ActivityID() string {
	return e.activity.ID()
}

// Execute submits the batch and waits for every command to finish, returning
// their results in order.
//
// The first failing command aborts the batch and is returned as ErrStepFailed.
// Commands that already ran are not rolled back: a failed Start leaves the
// image deployed, a failed Transfer may have been partially written.
func (e *Executor) Execute(ctx context.Context, batch Batch) ([]StepResult, error) {
	ctx, span := telemetry.NewSpan(ctx, "activity", "Execute")
	defer span.End()

	if len(batch) == 0 {
		return nil, ErrEmptyBatch
	}
	handle, err := e.activity.Exec(ctx, batch)
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(errors.Wrap(err, "submitting batch"))
	}
	log.Ctx(ctx).Debug().Str("batch_id", handle.ID()).Int("commands", len(batch)).Msg("batch submitted")

	// the result poller must not outlive this call
	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]StepResult, 0, len(batch))
	for res := range handle.Results(pollCtx) {
		if res.Err != nil {
			return results, telemetry.RecordErrorOnSpan(span)(res.Err)
		}
		r := res.Value
		name := "unknown"
		if r.Index >= 0 && r.Index < len(batch) {
			name = batch[r.Index].Name()
		}
		if r.Result == ResultError {
			return results, telemetry.RecordErrorOnSpan(span)(NewErrStepFailed(r.Index, name, deref(r.Message)))
		}
		results = append(results, StepResult{
			Index:   r.Index,
			Command: name,
			Stdout:  deref(r.Stdout),
			Stderr:  deref(r.Stderr),
			Message: deref(r.Message),
		})
		if r.IsBatchFinished || len(results) == len(batch) {
			return results, nil
		}
	}
	if ctx.Err() != nil {
		return results, ctx.Err()
	}
	return results, telemetry.RecordErrorOnSpan(span)(NewErrStreamEnded(handle.ID(), len(results)))
}

// ExecuteStreaming starts a single Run and returns its live event stream.
// Output is captured as a stream regardless of run.Capture.
func (e *Executor) ExecuteStreaming(ctx context.Context, run Run) (*EventStream, error) {
	run.Capture = StreamingCapture()
	handle, err := e.activity.Exec(ctx, Batch{run})
	if err != nil {
		return nil, errors.Wrap(err, "submitting streaming batch")
	}
	streamCtx, cancel := context.WithCancel(ctx)
	return &EventStream{
		batchID: handle.ID(),
		events:  handle.Events(streamCtx),
		cancel:  cancel,
	}, nil
}

// EventStream is a finite, non-restartable sequence of runtime events.
// It must be consumed: the provider may block when its output is not read.
type EventStream struct {
	batchID  string
	events   <-chan *concurrency.AsyncResult[RuntimeEvent]
	cancel   context.CancelFunc
	seen     int
	finished bool
}

func (s *EventStream) BatchID() string {
	return s.batchID
}

// Next returns the next event. Once Finished was returned, every later call
// returns io.EOF and the underlying transport is released.
func (s *EventStream) Next(ctx context.Context) (RuntimeEvent, error) {
	if s.finished {
		return nil, io.EOF
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res, ok := <-s.events:
		if !ok {
			s.Close()
			return nil, NewErrStreamEnded(s.batchID, s.seen)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		s.seen++
		if _, done := res.Value.(Finished); done {
			s.finished = true
			s.Close()
		}
		return res.Value, nil
	}
}

// Close releases the stream. It is safe to call more than once.
func (s *EventStream) Close() {
	s.cancel()
}

// Sinks receive output bytes as they arrive.
type Sinks struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Consume pulls the stream to its end, forwarding output to the sinks, and
// returns the Finished event. A sink failing to write is logged and does not
// stop consumption.
func (e *Executor) Consume(ctx context.Context, stream *EventStream, sinks Sinks) (Finished, error) {
	defer stream.Close()
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			return Finished{}, err
		}
		switch ev := event.(type) {
		case StdOut:
			forward(ctx, sinks.Stdout, ev.Data, "stdout")
		case StdErr:
			forward(ctx, sinks.Stderr, ev.Data, "stderr")
		case Started:
			log.Ctx(ctx).Trace().Int("index", ev.Index).Msg("command started")
		case Finished:
			return ev, nil
		}
	}
}

func forward(ctx context.Context, w io.Writer, data []byte, name string) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msgf("failed to forward %s", name)
	}
}

// Destroy tears down the activity. Only the first call reaches the provider;
// later calls return nil.
func (e *Executor) Destroy(ctx context.Context) error {
	called := false
	e.destroyOnce.Do(func() {
		called = true
		log.Ctx(ctx).Info().Str("activity_id", e.activity.ID()).Msg("destroying activity")
		e.destroyErr = e.activity.Destroy(ctx)
		if e.destroyErr != nil {
			log.Ctx(ctx).Warn().Err(e.destroyErr).Str("activity_id", e.activity.ID()).Msg("failed to destroy activity")
		}
	})
	if !called {
		log.Ctx(ctx).Debug().Str("activity_id", e.activity.ID()).Msg("activity already destroyed")
		return nil
	}
	return e.destroyErr
}
