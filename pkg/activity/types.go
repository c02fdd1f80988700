package activity

//go:generate mockgen -source types.go -destination mocks.go -package activity

import (
	"context"

	"github.com/yagna-labs/zksync-requestor/pkg/lib/concurrency"
)

// Activity is the execution context on the provider, bound to one agreement.
type Activity interface {
	ID() string
	// Exec submits a batch and returns a handle to observe its execution.
	Exec(ctx context.Context, batch Batch) (BatchHandle, error)
	// Destroy tears the execution context down.
	Destroy(ctx context.Context) error
}

// BatchHandle observes one submitted batch.
type BatchHandle interface {
	ID() string
	// Results streams one result per executed command, in order, and closes
	// once the batch finished or failed.
	Results(ctx context.Context) <-chan *concurrency.AsyncResult[CommandResult]
	// Events streams runtime events of commands with streaming capture.
	Events(ctx context.Context) <-chan *concurrency.AsyncResult[RuntimeEvent]
}

type ResultKind string

const (
	ResultOk    ResultKind = "Ok"
	ResultError ResultKind = "Error"
)

// CommandResult is the provider's report about one command of a batch.
type CommandResult struct {
	Index           int
	Result          ResultKind
	Stdout          *string
	Stderr          *string
	Message         *string
	IsBatchFinished bool
}

// StepResult is the outcome of a successful command, as returned by Execute.
type StepResult struct {
	Index   int
	Command string
	Stdout  string
	Stderr  string
	Message string
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
