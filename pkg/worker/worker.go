package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
	"github.com/yagna-labs/zksync-requestor/pkg/lib/backoff"
	"github.com/yagna-labs/zksync-requestor/pkg/logger"
	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
	"github.com/yagna-labs/zksync-requestor/pkg/taskqueue"
)

var DefaultSizes = []int{6, 30, 74, 150, 320, 630}

const DefaultRetryDelay = 10 * time.Second

type WorkerParams struct {
	TaskQueue TaskQueue
	Transfers Transfers
	Runner    Runner

	// Sizes are the block size classes asked for, in order.
	Sizes      []int
	EntryPoint string
	Args       []string
	// RetryDelay is the pause after a failed cycle.
	RetryDelay time.Duration
	Clock      clock.Clock

	// DebugDir receives copies of exchanged files and the prover output.
	// Empty disables them.
	DebugDir   string
	StdoutFile string
	StderrFile string
	// ProgressMax is the stdout size of a complete prover run.
	ProgressMax int64
	// ShowProgress draws a progress bar on stderr. It is only honoured when
	// stderr is a terminal.
	ShowProgress bool
}

// Worker proves one block at a time on the rented provider.
type Worker struct {
	taskQueue TaskQueue
	transfers Transfers
	runner    Runner

	sizes      []int
	entryPoint string
	args       []string
	backoff    backoff.Backoff

	debugDir     string
	stdoutFile   string
	stderrFile   string
	progressMax  int64
	showProgress bool

	phase atomic.Int32
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.TaskQueue == nil || params.Transfers == nil || params.Runner == nil {
		return nil, errors.New("task queue, transfers and runner are required")
	}
	if params.EntryPoint == "" {
		return nil, errors.New("prover entry point is required")
	}
	sizes := params.Sizes
	if len(sizes) == 0 {
		sizes = DefaultSizes
	}
	retryDelay := params.RetryDelay
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	w := &Worker{
		taskQueue:    params.TaskQueue,
		transfers:    params.Transfers,
		runner:       params.Runner,
		sizes:        sizes,
		entryPoint:   params.EntryPoint,
		args:         params.Args,
		backoff:      backoff.NewFixed(retryDelay, params.Clock),
		debugDir:     params.DebugDir,
		stdoutFile:   params.StdoutFile,
		stderrFile:   params.StderrFile,
		progressMax:  params.ProgressMax,
		showProgress: params.ShowProgress && stderrIsTerminal(),
	}
	if w.stdoutFile == "" {
		w.stdoutFile = "stdout-output.txt"
	}
	if w.stderrFile == "" {
		w.stderrFile = "stderr-output.txt"
	}
	return w, nil
}

// Phase returns the current phase. It is safe to call while the worker runs.
func (w *Worker) Phase() Phase {
	return Phase(w.phase.Load())
}

func (w *Worker) setPhase(ctx context.Context, phase Phase) {
	w.phase.Store(int32(phase))
	log.Ctx(ctx).Debug().Str("phase", phase.String()).Msg("entering phase")
}

// Run proves blocks until ctx is cancelled. A failed cycle is logged and
// the next one starts after the retry delay.
func (w *Worker) Run(ctx context.Context) error {
	for attempt := 0; ; attempt++ {
		w.backoff.Backoff(ctx, attempt)
		if ctx.Err() != nil {
			w.setPhase(ctx, PhaseIdle)
			return ctx.Err()
		}

		cyclesCounter.Inc(ctx)
		err := w.ProveBlock(ctx)
		if ctx.Err() != nil {
			w.setPhase(ctx, PhaseIdle)
			return ctx.Err()
		}
		if err == nil {
			attempt = -1
			continue
		}

		failuresCounter.Inc(ctx)
		w.setPhase(ctx, PhaseRetrying)
		var noWork ErrNoWorkAvailable
		if errors.As(err, &noWork) {
			log.Ctx(ctx).Info().Msgf("%s, retrying in %s", err, w.backoff.BackoffDuration(1))
		} else {
			log.Ctx(ctx).Warn().Err(err).Msgf("proving cycle failed, retrying in %s", w.backoff.BackoffDuration(1))
		}
	}
}

// ProveBlock runs one cycle: claim a block, notify the server, hand the block
// to the prover on the provider and publish the proof it produced.
func (w *Worker) ProveBlock(ctx context.Context) (err error) {
	ctx, span := telemetry.NewSpan(ctx, "worker", "ProveBlock")
	defer span.End()
	defer func() {
		_ = telemetry.RecordErrorOnSpan(span)(err)
	}()

	block, err := w.claim(ctx)
	if err != nil {
		return err
	}
	span.SetAttributes(telemetry.BlockAttributes(block.BlockID, block.JobID)...)
	ctx = logger.ContextWithBlock(ctx, block.BlockID, block.JobID)
	log.Ctx(ctx).Info().Msgf("got block %d of size %d to prove, job id %d", block.BlockID, block.BlockSize, block.JobID)

	if err = w.step(ctx, PhaseNotifying, block, func(ctx context.Context) error {
		return w.taskQueue.ReportInProgress(ctx, block.JobID)
	}); err != nil {
		return err
	}

	var data taskqueue.ProverData
	if err = w.step(ctx, PhaseFetchingPayload, block, func(ctx context.Context) error {
		var fetchErr error
		data, fetchErr = w.taskQueue.FetchPayload(ctx, block.BlockID)
		return fetchErr
	}); err != nil {
		return err
	}
	w.saveDebugCopy(ctx, fmt.Sprintf("blocks/job-info-%d.json", block.JobID), block)
	w.saveDebugCopy(ctx, "blocks/job-info.json", block)
	w.saveDebugCopy(ctx, fmt.Sprintf("blocks/block-%d.json", block.BlockID), data)

	if err = w.step(ctx, PhaseUploading, block, func(ctx context.Context) error {
		if err := w.transfers.SendJSON(ctx, remoteJobInfoPath, block); err != nil {
			return err
		}
		return w.transfers.SendJSON(ctx, fmt.Sprintf(remoteBlockPath, block.BlockID), data)
	}); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Msg("block uploaded, running prover on the provider")

	if err = w.step(ctx, PhaseRunningRemote, block, w.runProver); err != nil {
		return err
	}

	var proof taskqueue.EncodedProof
	if err = w.step(ctx, PhaseDownloadingResult, block, func(ctx context.Context) error {
		return w.transfers.ReceiveJSON(ctx, fmt.Sprintf(remoteProofPath, block.BlockID), &proof)
	}); err != nil {
		return err
	}
	w.saveDebugCopy(ctx, fmt.Sprintf("proofs/proof-%d.json", block.BlockID), proof)
	log.Ctx(ctx).Info().Msg("proof downloaded, publishing")

	if err = w.step(ctx, PhasePublishing, block, func(ctx context.Context) error {
		return w.taskQueue.PublishResult(ctx, block.BlockID, proof)
	}); err != nil {
		return err
	}
	publishedCounter.Inc(ctx, telemetry.BlockAttributes(block.BlockID, block.JobID)...)

	w.setPhase(ctx, PhaseDone)
	log.Ctx(ctx).Info().Msgf("block %d published", block.BlockID)
	return nil
}

// claim asks for a block of every size class in order and takes the first one.
func (w *Worker) claim(ctx context.Context) (BlockInfo, error) {
	w.setPhase(ctx, PhaseClaimingWork)
	ctx, span := telemetry.NewSpan(ctx, "worker", PhaseClaimingWork.String())
	defer span.End()

	for _, size := range w.sizes {
		claim, err := w.taskQueue.ClaimWork(ctx, size)
		if err != nil {
			return BlockInfo{}, telemetry.RecordErrorOnSpan(span)(
				NewErrPhase(PhaseClaimingWork, BlockInfo{BlockSize: size}, err))
		}
		if claim != nil {
			return BlockInfo{BlockID: claim.BlockID, JobID: claim.JobID, BlockSize: size}, nil
		}
		log.Ctx(ctx).Debug().Msgf("no block of size %d, checking other sizes", size)
	}
	return BlockInfo{}, NewErrNoWorkAvailable(w.sizes)
}

func (w *Worker) step(ctx context.Context, phase Phase, block BlockInfo, fn func(context.Context) error) error {
	w.setPhase(ctx, phase)
	ctx, span := telemetry.NewSpan(ctx, "worker", phase.String(),
		oteltrace.WithAttributes(telemetry.BlockAttributes(block.BlockID, block.JobID)...))
	defer span.End()

	if err := fn(ctx); err != nil {
		return telemetry.RecordErrorOnSpan(span)(NewErrPhase(phase, block, err))
	}
	return nil
}

// runProver runs the prover and forwards its output until it finishes. A
// non-zero exit code is logged only: whether a proof exists is decided by
// the download that follows.
func (w *Worker) runProver(ctx context.Context) error {
	stream, err := w.runner.ExecuteStreaming(ctx, activity.Run{EntryPoint: w.entryPoint, Args: w.args})
	if err != nil {
		return err
	}
	log.Ctx(ctx).Debug().Str("batch_id", stream.BatchID()).Msg("prover started")

	output := w.openOutput(ctx)
	defer output.Close()

	finished, err := w.runner.Consume(ctx, stream, output.sinks)
	if err != nil {
		return err
	}
	oteltrace.SpanFromContext(ctx).SetAttributes(attribute.Int("return_code", finished.ReturnCode))
	if finished.ReturnCode != 0 {
		log.Ctx(ctx).Warn().Int("return_code", finished.ReturnCode).
			Msgf("prover exited with code %d: %s", finished.ReturnCode, finished.MessageOrEmpty())
		return nil
	}
	log.Ctx(ctx).Info().Msgf("prover finished with code 0, message: %s", finished.MessageOrEmpty())
	return nil
}
