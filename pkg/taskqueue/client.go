package taskqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
	"github.com/yagna-labs/zksync-requestor/pkg/util/closer"
)

type ClientParams struct {
	BaseURL        string
	WorkerName     string
	RequestTimeout time.Duration
	Backoff        BackoffParams
	// Clock drives the retry policy. Defaults to the wall clock.
	Clock      clock.Clock
	HTTPClient *http.Client
}

// Client talks to the proof coordination server. Claiming work, fetching data
// and publishing proofs are retried under the backoff policy. Reporting
// progress and (de)registering are single attempts.
type Client struct {
	baseURL    *url.URL
	workerName string
	backoff    BackoffParams
	clock      clock.Clock
	httpClient *http.Client
}

func NewClient(params ClientParams) (*Client, error) {
	if params.WorkerName == "" {
		return nil, errors.New("worker name cannot be empty")
	}
	baseURL, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid task queue server URL %q", params.BaseURL)
	}
	if params.Backoff == (BackoffParams{}) {
		params.Backoff = DefaultBackoffParams
	}
	if params.Clock == nil {
		params.Clock = clock.New()
	}
	params.Backoff.Clock = params.Clock
	httpClient := params.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: params.RequestTimeout,
			Transport: otelhttp.NewTransport(nil,
				otelhttp.WithSpanOptions(
					trace.WithAttributes(attribute.String("worker_name", params.WorkerName)),
				),
			),
		}
	}
	return &Client{
		baseURL:    baseURL,
		workerName: params.WorkerName,
		backoff:    params.Backoff,
		clock:      params.Clock,
		httpClient: httpClient,
	}, nil
}

// ClaimWork asks for a block of the given size class. A nil claim means the
// server has no work of that size right now.
func (c *Client) ClaimWork(ctx context.Context, blockSize int) (*Claim, error) {
	ctx, span := telemetry.NewSpan(ctx, "taskqueue", "ClaimWork")
	defer span.End()
	span.SetAttributes(attribute.Int("block_size", blockSize))

	var claim *Claim
	err := c.retry(ctx, "block_to_prove", func() error {
		var res blockToProveResponse
		body, _, err := c.do(ctx, http.MethodGet, blockToProvePath, proverRequest{Name: c.workerName, BlockSize: blockSize})
		if err != nil {
			return errors.Wrap(err, "block to prove request failed")
		}
		if err = json.Unmarshal(body, &res); err != nil {
			return NewErrSerialization("block to prove", err)
		}
		claim = nil
		if res.Block != 0 {
			claim = &Claim{BlockID: res.Block, JobID: res.ProverRunID}
		}
		return nil
	})
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(err)
	}
	return claim, nil
}

// ReportInProgress tells the server the job is being worked on. It is not retried.
func (c *Client) ReportInProgress(ctx context.Context, jobID int32) error {
	ctx, span := telemetry.NewSpan(ctx, "taskqueue", "ReportInProgress")
	defer span.End()

	log.Ctx(ctx).Trace().Msgf("sending working_on %d", jobID)
	_, status, err := c.do(ctx, http.MethodPost, workingOnPath, workingOnRequest{ProverRunID: jobID})
	if err != nil {
		return telemetry.RecordErrorOnSpan(span)(NewErrReportFailed(jobID, status, err))
	}
	if status < 200 || status > 299 {
		return telemetry.RecordErrorOnSpan(span)(NewErrReportFailed(jobID, status, nil))
	}
	return nil
}

// FetchPayload downloads the prover input of a block, waiting under the retry
// policy while the server reports it as not ready.
func (c *Client) FetchPayload(ctx context.Context, blockID int64) (ProverData, error) {
	ctx, span := telemetry.NewSpan(ctx, "taskqueue", "FetchPayload")
	defer span.End()

	var data ProverData
	err := c.retry(ctx, "prover_data", func() error {
		body, _, err := c.do(ctx, http.MethodGet, proverDataPath, blockID)
		if err != nil {
			return errors.Wrap(err, "failed to request prover data")
		}
		var res *json.RawMessage
		if err = json.Unmarshal(body, &res); err != nil {
			return NewErrSerialization("prover data", err)
		}
		if res == nil {
			return NewErrDataNotReady(blockID)
		}
		data = ProverData(*res)
		return nil
	})
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(err)
	}
	return data, nil
}

// PublishResult uploads a proof. A "duplicate key" answer means another worker
// already published this block and is treated as success.
func (c *Client) PublishResult(ctx context.Context, blockID int64, proof EncodedProof) error {
	ctx, span := telemetry.NewSpan(ctx, "taskqueue", "PublishResult")
	defer span.End()

	err := c.retry(ctx, "publish", func() error {
		log.Ctx(ctx).Trace().Msgf("Trying publish proof %d", blockID)
		body, status, err := c.do(ctx, http.MethodPost, publishPath, publishRequest{Block: uint32(blockID), Proof: proof})
		if err != nil {
			return errors.Wrap(err, "failed to send publish request")
		}
		if status == http.StatusOK {
			return nil
		}
		message := strings.TrimSpace(string(body))
		if message == duplicateKeyMessage {
			log.Ctx(ctx).Warn().Msgf("proof for block %d already exists", blockID)
			return nil
		}
		return ErrUnexpectedStatus{Op: "publish", StatusCode: status, Message: message}
	})
	return telemetry.RecordErrorOnSpan(span)(err)
}

// Register announces this worker and returns the id the server assigned to it.
func (c *Client) Register(ctx context.Context, blockSize int) (int32, error) {
	ctx, span := telemetry.NewSpan(ctx, "taskqueue", "Register")
	defer span.End()

	log.Ctx(ctx).Debug().Msgf("Registering prover... Block size: %d", blockSize)
	body, status, err := c.do(ctx, http.MethodPost, registerPath, proverRequest{Name: c.workerName, BlockSize: blockSize})
	if err != nil {
		return 0, telemetry.RecordErrorOnSpan(span)(errors.Wrap(err, "register request failed"))
	}
	id, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 32)
	if err != nil {
		return 0, telemetry.RecordErrorOnSpan(span)(
			NewErrSerialization("register", errors.Wrapf(err, "status %d", status)))
	}
	return int32(id), nil
}

// Deregister tells the server this worker is stopping.
func (c *Client) Deregister(ctx context.Context, workerID int32) error {
	ctx, span := telemetry.NewSpan(ctx, "taskqueue", "Deregister")
	defer span.End()

	body, status, err := c.do(ctx, http.MethodPost, stoppedPath, workerID)
	if err != nil {
		return telemetry.RecordErrorOnSpan(span)(errors.Wrap(err, "prover stopped request failed"))
	}
	// shutdown continues either way
	if status < 200 || status > 299 {
		log.Ctx(ctx).Warn().Int32("worker_id", workerID).Int("status", status).
			Msgf("task queue server rejected prover stopped: %s", strings.TrimSpace(string(body)))
	}
	return nil
}

// do sends reqData as JSON and returns the raw response body and status.
func (c *Client) do(ctx context.Context, method, path string, reqData interface{}) ([]byte, int, error) {
	var body bytes.Buffer
	if err := json.NewEncoder(&body).Encode(reqData); err != nil {
		return nil, 0, errors.Wrap(err, "error encoding request body")
	}

	addr := c.baseURL.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, addr.String(), &body)
	if err != nil {
		return nil, 0, errors.Wrapf(err, "error creating %s request", method)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(WorkerNameHeader, c.workerName)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer closer.DrainAndCloseWithLogOnError("task queue response", res.Body)

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, errors.Wrap(err, "error reading response body")
	}
	return resBody, res.StatusCode, nil
}
