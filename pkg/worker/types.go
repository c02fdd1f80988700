package worker

import (
	"context"
	"fmt"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
	"github.com/yagna-labs/zksync-requestor/pkg/taskqueue"
)

// Phase is the step of a proving cycle the worker is in.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseClaimingWork
	PhaseNotifying
	PhaseFetchingPayload
	PhaseUploading
	PhaseRunningRemote
	PhaseDownloadingResult
	PhasePublishing
	// PhaseDone ends a cycle. Output of the cycle is never published twice.
	PhaseDone
	PhaseRetrying
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseClaimingWork:
		return "ClaimingWork"
	case PhaseNotifying:
		return "Notifying"
	case PhaseFetchingPayload:
		return "FetchingPayload"
	case PhaseUploading:
		return "Uploading"
	case PhaseRunningRemote:
		return "RunningRemote"
	case PhaseDownloadingResult:
		return "DownloadingResult"
	case PhasePublishing:
		return "Publishing"
	case PhaseDone:
		return "Done"
	case PhaseRetrying:
		return "Retrying"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// BlockInfo identifies the unit of work of one cycle. It is also the job
// description uploaded next to the block.
type BlockInfo struct {
	BlockID   int64 `json:"block_id"`
	JobID     int32 `json:"job_id"`
	BlockSize int   `json:"block_size"`
}

// TaskQueue is the part of the task-queue server a cycle needs.
type TaskQueue interface {
	ClaimWork(ctx context.Context, blockSize int) (*taskqueue.Claim, error)
	ReportInProgress(ctx context.Context, jobID int32) error
	FetchPayload(ctx context.Context, blockID int64) (taskqueue.ProverData, error)
	PublishResult(ctx context.Context, blockID int64, proof taskqueue.EncodedProof) error
}

// Transfers moves JSON values in and out of the provider's container.
type Transfers interface {
	SendJSON(ctx context.Context, remotePath string, v any) error
	ReceiveJSON(ctx context.Context, remotePath string, out any) error
}

// Runner starts the prover and follows its output.
type Runner interface {
	ExecuteStreaming(ctx context.Context, run activity.Run) (*activity.EventStream, error)
	Consume(ctx context.Context, stream *activity.EventStream, sinks activity.Sinks) (activity.Finished, error)
}

// compile time check that the executor can drive the prover.
var _ Runner = (*activity.Executor)(nil)

const (
	remoteJobInfoPath = "/blocks/job-info.json"
	remoteBlockPath   = "/blocks/block-%d.json"
	remoteProofPath   = "/proofs/proof-%d.json"
)
