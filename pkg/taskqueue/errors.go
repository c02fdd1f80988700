package taskqueue

import (
	"fmt"
)

// ErrServerUnreachable is returned once the retry budget of an operation is spent.
type ErrServerUnreachable struct {
	Op      string
	LastErr error
}

func NewErrServerUnreachable(op string, lastErr error) ErrServerUnreachable {
	return ErrServerUnreachable{Op: op, LastErr: lastErr}
}

func (e ErrServerUnreachable) Error() string {
	return fmt.Sprintf("prover can't reach server during %s, max time elapsed: %v", e.Op, e.LastErr)
}

func (e ErrServerUnreachable) Unwrap() error {
	return e.LastErr
}

// ErrReportFailed is returned when the server rejects an in-progress report.
type ErrReportFailed struct {
	JobID      int32
	StatusCode int
	Cause      error
}

func NewErrReportFailed(jobID int32, statusCode int, cause error) ErrReportFailed {
	return ErrReportFailed{JobID: jobID, StatusCode: statusCode, Cause: cause}
}

func (e ErrReportFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("working on request for job %d failed: %v", e.JobID, e.Cause)
	}
	return fmt.Sprintf("working on request for job %d failed with status: %d", e.JobID, e.StatusCode)
}

func (e ErrReportFailed) Unwrap() error {
	return e.Cause
}

// ErrSerialization is returned when a request or response body is malformed.
type ErrSerialization struct {
	Op    string
	Cause error
}

func NewErrSerialization(op string, cause error) ErrSerialization {
	return ErrSerialization{Op: op, Cause: cause}
}

func (e ErrSerialization) Error() string {
	return fmt.Sprintf("failed to parse %s response: %v", e.Op, e.Cause)
}

func (e ErrSerialization) Unwrap() error {
	return e.Cause
}

// ErrDataNotReady means the server knows the block but has not prepared its data yet.
type ErrDataNotReady struct {
	BlockID int64
}

func NewErrDataNotReady(blockID int64) ErrDataNotReady {
	return ErrDataNotReady{BlockID: blockID}
}

func (e ErrDataNotReady) Error() string {
	return fmt.Sprintf("ProverData for block %d is not ready yet", e.BlockID)
}

// ErrUnexpectedStatus carries a non-200 answer of the server.
type ErrUnexpectedStatus struct {
	Op         string
	StatusCode int
	Message    string
}

func (e ErrUnexpectedStatus) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s request failed with status: %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s request failed with status: %d and message: %s", e.Op, e.StatusCode, e.Message)
}
