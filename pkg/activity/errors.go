package activity

import (
	"errors"
	"fmt"
)

// ErrEmptyBatch is returned when asked to execute a batch without commands.
var ErrEmptyBatch = errors.New("batch has no commands")

// ErrStepFailed is returned when a command of a batch fails. Commands after it
// were not executed; commands before it are not rolled back.
type ErrStepFailed struct {
	Index   int
	Command string
	Message string
}

func NewErrStepFailed(index int, command, message string) ErrStepFailed {
	return ErrStepFailed{Index: index, Command: command, Message: message}
}

func (e ErrStepFailed) Error() string {
	return fmt.Sprintf("step %d (%s) failed: %s", e.Index, e.Command, e.Message)
}

// ErrStreamEnded is returned when a result or event stream closes before the batch finished.
type ErrStreamEnded struct {
	BatchID string
	Seen    int
}

func NewErrStreamEnded(batchID string, seen int) ErrStreamEnded {
	return ErrStreamEnded{BatchID: batchID, Seen: seen}
}

func (e ErrStreamEnded) Error() string {
	return fmt.Sprintf("stream of batch %s ended unexpectedly after %d items", e.BatchID, e.Seen)
}
