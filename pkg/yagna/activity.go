package yagna

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/activity"
	"github.com/yagna-labs/zksync-requestor/pkg/lib/concurrency"
	"github.com/yagna-labs/zksync-requestor/pkg/util/closer"
)

type createActivityJSON struct {
	AgreementID string `json:"agreementId"`
}

type execJSON struct {
	Text string `json:"text"`
}

type resultJSON struct {
	Index           int     `json:"index"`
	Result          string  `json:"result"`
	Stdout          *string `json:"stdout,omitempty"`
	Stderr          *string `json:"stderr,omitempty"`
	Message         *string `json:"message,omitempty"`
	IsBatchFinished bool    `json:"isBatchFinished"`
}

func (r resultJSON) toCommandResult() activity.CommandResult {
	return activity.CommandResult{
		Index:           r.Index,
		Result:          activity.ResultKind(r.Result),
		Stdout:          r.Stdout,
		Stderr:          r.Stderr,
		Message:         r.Message,
		IsBatchFinished: r.IsBatchFinished,
	}
}

// CreateActivity starts an execution context on the provider of the agreement.
func CreateActivity(ctx context.Context, client *Client, agreementID string) (*Activity, error) {
	var raw json.RawMessage
	body := createActivityJSON{AgreementID: agreementID}
	if err := client.do(ctx, http.MethodPost, activityAPI+"/activity", nil, body, &raw); err != nil {
		return nil, errors.Wrapf(err, "creating activity for agreement %s", agreementID)
	}
	id, err := activityID(raw)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("activity_id", id).Str("agreement_id", agreementID).Msg("activity created")
	return &Activity{client: client, id: id}, nil
}

// activityID accepts both the bare id and the {"activityId": ...} object
// returned by newer daemons.
func activityID(raw json.RawMessage) (string, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}
	var obj struct {
		ActivityID string `json:"activityId"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ActivityID != "" {
		return obj.ActivityID, nil
	}
	return "", errors.Errorf("unexpected create activity response %s", string(raw))
}

// Activity implements activity.Activity over the daemon's activity API.
type Activity struct {
	client *Client
	id     string
}

func (a *Activity) ID() string {
	return a.id
}

func (a *Activity) path() string {
	return activityAPI + "/activity/" + url.PathEscape(a.id)
}

func (a *Activity) Exec(ctx context.Context, batch activity.Batch) (activity.BatchHandle, error) {
	script, err := activity.MarshalBatch(batch)
	if err != nil {
		return nil, err
	}
	var batchID string
	if err = a.client.do(ctx, http.MethodPost, a.path()+"/exec", nil, execJSON{Text: string(script)}, &batchID); err != nil {
		return nil, errors.Wrap(err, "executing batch")
	}
	return &batchHandle{client: a.client, path: a.path() + "/exec/" + url.PathEscape(batchID), id: batchID}, nil
}

func (a *Activity) Destroy(ctx context.Context) error {
	if err := a.client.do(ctx, http.MethodDelete, a.path(), nil, nil, nil); err != nil {
		return errors.Wrapf(err, "destroying activity %s", a.id)
	}
	return nil
}

type batchHandle struct {
	client *Client
	path   string
	id     string
}

func (b *batchHandle) ID() string {
	return b.id
}

// Results long-polls the batch results. Every poll returns all results so
// far; only the new ones are delivered. The stream ends after the last command,
// the first failed command, or the first error.
func (b *batchHandle) Results(ctx context.Context) <-chan *concurrency.AsyncResult[activity.CommandResult] {
	out := make(chan *concurrency.AsyncResult[activity.CommandResult])
	send := func(res *concurrency.AsyncResult[activity.CommandResult]) bool {
		select {
		case out <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		seen := 0
		for ctx.Err() == nil {
			var results []resultJSON
			err := b.client.do(ctx, http.MethodGet, b.path, b.client.pollQuery(), nil, &results)
			if err != nil {
				if ctx.Err() == nil && !isPollTimeout(err) {
					send(concurrency.NewAsyncError[activity.CommandResult](err))
					return
				}
				continue
			}
			for _, r := range results {
				if r.Index < seen {
					continue
				}
				seen = r.Index + 1
				if !send(concurrency.NewAsyncValue(r.toCommandResult())) {
					return
				}
				if r.IsBatchFinished || r.Result == string(activity.ResultError) {
					return
				}
			}
		}
	}()
	return out
}

// Events follows the batch's server-sent runtime events until Finished.
func (b *batchHandle) Events(ctx context.Context) <-chan *concurrency.AsyncResult[activity.RuntimeEvent] {
	out := make(chan *concurrency.AsyncResult[activity.RuntimeEvent])
	send := func(res *concurrency.AsyncResult[activity.RuntimeEvent]) bool {
		select {
		case out <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		req, err := b.client.newRequest(ctx, http.MethodGet, b.path, nil, nil)
		if err != nil {
			send(concurrency.NewAsyncError[activity.RuntimeEvent](err))
			return
		}
		req.Header.Set("Accept", "text/event-stream")
		res, err := b.client.http.Do(req)
		if err != nil {
			send(concurrency.NewAsyncError[activity.RuntimeEvent](errors.Wrap(err, "opening event stream")))
			return
		}
		defer closer.CloseWithLogOnError("event stream", res.Body)
		if res.StatusCode != http.StatusOK {
			send(concurrency.NewAsyncError[activity.RuntimeEvent](
				NewErrAPI("GET "+b.path, res.StatusCode, "event stream refused")))
			return
		}

		err = readEvents(res.Body, func(ev sseEvent) bool {
			if ev.Name != "" && ev.Name != "runtime" {
				return true
			}
			event, err := decodeRuntimeEvent(ev.Data)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("batch_id", b.id).Msg("skipping malformed runtime event")
				return true
			}
			if event == nil {
				return true
			}
			if !send(concurrency.NewAsyncValue(event)) {
				return false
			}
			_, finished := event.(activity.Finished)
			return !finished
		})
		if err != nil && ctx.Err() == nil {
			send(concurrency.NewAsyncError[activity.RuntimeEvent](errors.Wrap(err, "reading event stream")))
		}
	}()
	return out
}
