package yagna

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/util/closer"
)

const (
	marketAPI   = "/market-api/v1"
	activityAPI = "/activity-api/v1"

	DefaultPollTimeout = 5 * time.Second
	DefaultMaxEvents   = 10
)

type ClientParams struct {
	// BaseURL of the local daemon, e.g. http://127.0.0.1:7465.
	BaseURL string
	// AppKey authenticates every request as a bearer token.
	AppKey string
	// PollTimeout bounds each long-poll request on the daemon side.
	PollTimeout time.Duration
	MaxEvents   int
	// RetryMax, RetryWaitMin and RetryWaitMax tune transport level retries.
	// Zero values keep the retryablehttp defaults.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Clock        clock.Clock
	HTTPClient   *http.Client
}

// Client talks to the REST API of a local yagna daemon.
type Client struct {
	base        *url.URL
	appKey      string
	pollTimeout time.Duration
	maxEvents   int
	clock       clock.Clock
	http        *retryablehttp.Client
}

func NewClient(params ClientParams) (*Client, error) {
	if params.AppKey == "" {
		return nil, errors.New("yagna app key is required")
	}
	base, err := url.Parse(params.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid yagna API URL %q", params.BaseURL)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.Logger = leveledLogger{}
	if params.HTTPClient != nil {
		httpClient.HTTPClient = params.HTTPClient
	}
	if params.RetryMax > 0 {
		httpClient.RetryMax = params.RetryMax
	}
	if params.RetryWaitMin > 0 {
		httpClient.RetryWaitMin = params.RetryWaitMin
	}
	if params.RetryWaitMax > 0 {
		httpClient.RetryWaitMax = params.RetryWaitMax
	}
	// The daemon answers 408 when a long poll timed out; that is not a failure.
	httpClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusRequestTimeout {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	c := &Client{
		base:        base,
		appKey:      params.AppKey,
		pollTimeout: params.PollTimeout,
		maxEvents:   params.MaxEvents,
		clock:       params.Clock,
		http:        httpClient,
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = DefaultPollTimeout
	}
	if c.maxEvents <= 0 {
		c.maxEvents = DefaultMaxEvents
	}
	if c.clock == nil {
		c.clock = clock.New()
	}
	return c, nil
}

func (c *Client) pollQuery() url.Values {
	return url.Values{"timeout": []string{strconv.FormatFloat(c.pollTimeout.Seconds(), 'f', -1, 64)}}
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*retryablehttp.Request, error) {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	var rawBody any
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s %s", method, path)
		}
		rawBody = bytes.NewReader(data)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u.String(), rawBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.appKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends a JSON request and decodes the JSON response into out when out is
// not nil. Non 2xx answers are returned as ErrAPI.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	log.Ctx(ctx).Trace().Msgf("yagna %s %s", method, path)
	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer closer.DrainAndCloseWithLogOnError(path, res.Body)

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s", method, path)
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return NewErrAPI(method+" "+path, res.StatusCode, apiMessage(data))
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s", method, path)
	}
	return nil
}

// apiMessage extracts the message of a daemon error body, which is either
// {"message": "..."} or plain text.
func apiMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return string(bytes.TrimSpace(data))
}
