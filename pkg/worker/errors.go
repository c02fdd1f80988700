package worker

import (
	"fmt"
)

// ErrNoWorkAvailable is returned when no size class had a block to prove.
type ErrNoWorkAvailable struct {
	Sizes []int
}

func NewErrNoWorkAvailable(sizes []int) ErrNoWorkAvailable {
	return ErrNoWorkAvailable{Sizes: sizes}
}

func (e ErrNoWorkAvailable) Error() string {
	return fmt.Sprintf("checked block sizes %v and found no block to prove", e.Sizes)
}

// ErrPhase ties a cycle failure to the phase and block it happened in.
type ErrPhase struct {
	Phase   Phase
	BlockID int64
	JobID   int32
	Cause   error
}

func NewErrPhase(phase Phase, block BlockInfo, cause error) ErrPhase {
	return ErrPhase{Phase: phase, BlockID: block.BlockID, JobID: block.JobID, Cause: cause}
}

func (e ErrPhase) Error() string {
	return fmt.Sprintf("%s failed for block %d (job %d): %s", e.Phase, e.BlockID, e.JobID, e.Cause)
}

func (e ErrPhase) Unwrap() error {
	return e.Cause
}
