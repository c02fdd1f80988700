//go:build unit || !integration

package requestor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"

	"github.com/yagna-labs/zksync-requestor/pkg/config"
	"github.com/yagna-labs/zksync-requestor/pkg/logger"
	"github.com/yagna-labs/zksync-requestor/pkg/market"
	"github.com/yagna-labs/zksync-requestor/pkg/system"
)

// RunSuite drives run against a fake yagna daemon and a fake task queue
// server, then replays what Execute does on the way out.
type RunSuite struct {
	suite.Suite
	yagna     *mux.Router
	taskQueue *mux.Router
	cfg       config.RequestorConfig
	cm        *system.CleanupManager

	mu       sync.Mutex
	requests map[string]int
}

func TestRunSuite(t *testing.T) {
	suite.Run(t, new(RunSuite))
}

func (s *RunSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.requests = make(map[string]int)
	s.yagna = mux.NewRouter()
	s.taskQueue = mux.NewRouter()
	yagnaServer := httptest.NewServer(s.record(s.yagna))
	s.T().Cleanup(yagnaServer.Close)
	taskQueueServer := httptest.NewServer(s.record(s.taskQueue))
	s.T().Cleanup(taskQueueServer.Close)

	s.cfg = config.Default
	s.cfg.Yagna.APIURL = yagnaServer.URL
	s.cfg.Yagna.AppKey = "secret"
	s.cfg.Market.PollTimeout = 50 * time.Millisecond
	s.cfg.Market.Deadline = time.Minute
	s.cfg.TaskQueue.ServerURL = taskQueueServer.URL
	s.cfg.TaskQueue.RequestTimeout = 5 * time.Second
	s.cfg.TaskQueue.Backoff = config.BackoffConfig{
		InitialInterval: time.Millisecond,
		Multiplier:      1.5,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
	}
	s.cfg.Worker.Sizes = []int{6}
	s.cfg.Worker.RetryDelay = time.Hour
	s.cfg.Worker.DebugDir = s.T().TempDir()
	s.cfg.Transfer.ListenAddress = "127.0.0.1:0"
	s.Require().NoError(s.cfg.Validate())

	s.cm = system.NewCleanupManager()
}

func (s *RunSuite) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *RunSuite) count(request string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[request]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// signalOnce returns a channel closed by the first call of the returned func.
func signalOnce() (<-chan struct{}, func()) {
	ch := make(chan struct{})
	var once sync.Once
	return ch, func() { once.Do(func() { close(ch) }) }
}

// marketAgrees serves a market where the first event is already a provider
// answer, so negotiation goes straight to the agreement.
func (s *RunSuite) marketAgrees() {
	s.yagna.HandleFunc("/market-api/v1/demands", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, "sub-1")
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/market-api/v1/demands/sub-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	var offered bool
	s.yagna.HandleFunc("/market-api/v1/demands/sub-1/events", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		first := !offered
		offered = true
		s.mu.Unlock()
		if !first {
			writeJSON(w, http.StatusRequestTimeout, map[string]string{"message": "timeout"})
			return
		}
		writeJSON(w, http.StatusOK, []map[string]any{{
			"eventType": "ProposalEvent",
			"proposal": map[string]any{
				"proposalId":     "p1",
				"issuerId":       "provider-1",
				"state":          "Draft",
				"prevProposalId": "c0",
			},
		}})
	}).Methods(http.MethodGet)
	s.yagna.HandleFunc("/market-api/v1/agreements", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, "agreement-1")
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/market-api/v1/agreements/agreement-1/confirm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/market-api/v1/agreements/agreement-1/wait", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "Approved")
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/market-api/v1/agreements/agreement-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"offer": map[string]any{"properties": map[string]any{market.PropertyNodeName: "prover-7"}},
		})
	}).Methods(http.MethodGet)
}

// activityStarts serves an activity whose deploy and start both succeed.
func (s *RunSuite) activityStarts() {
	s.yagna.HandleFunc("/activity-api/v1/activity", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, "act-1")
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/activity-api/v1/activity/act-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	s.yagna.HandleFunc("/activity-api/v1/activity/act-1/exec", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, "batch-1")
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/activity-api/v1/activity/act-1/exec/batch-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"index": 0, "result": "Ok"},
			{"index": 1, "result": "Ok", "isBatchFinished": true},
		})
	}).Methods(http.MethodGet)
}

func (s *RunSuite) registers() {
	s.taskQueue.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "7")
	}).Methods(http.MethodPost)
	s.taskQueue.HandleFunc("/stopped", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.Equal("7", strings.TrimSpace(string(body)))
	}).Methods(http.MethodPost)
}

// start runs the requestor in the background and returns its outcome.
func (s *RunSuite) start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, s.cm, s.cfg)
	}()
	return done
}

func (s *RunSuite) wait(done <-chan error) error {
	select {
	case err := <-done:
		return err
	case <-time.After(10 * time.Second):
		s.FailNow("run did not return after cancellation")
		return nil
	}
}

// cleanup mirrors Execute, including a second call that must be a no-op.
func (s *RunSuite) cleanup() {
	s.NoError(s.cm.Cleanup(context.Background()))
	s.NoError(s.cm.Cleanup(context.Background()))
}

func (s *RunSuite) TestInterruptWhileProving() {
	s.marketAgrees()
	s.activityStarts()
	s.registers()
	polling, polled := signalOnce()
	s.taskQueue.HandleFunc("/block_to_prove", func(w http.ResponseWriter, r *http.Request) {
		polled()
		_, _ = io.WriteString(w, `{"block":0,"prover_run_id":0}`)
	}).Methods(http.MethodGet)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := s.start(ctx)
	select {
	case <-polling:
	case err := <-done:
		s.FailNowf("run returned before asking for work", "err: %v", err)
	case <-time.After(10 * time.Second):
		s.FailNow("worker never asked for work")
	}
	cancel()

	s.NoError(s.wait(done))
	s.cleanup()
	s.Equal(1, s.count("DELETE /activity-api/v1/activity/act-1"))
	s.Equal(1, s.count("POST /stopped"))
	s.Equal(1, s.count("DELETE /market-api/v1/demands/sub-1"))
}

func (s *RunSuite) TestInterruptWhileNegotiating() {
	s.yagna.HandleFunc("/market-api/v1/demands", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusCreated, "sub-1")
	}).Methods(http.MethodPost)
	s.yagna.HandleFunc("/market-api/v1/demands/sub-1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)
	polling, polled := signalOnce()
	s.yagna.HandleFunc("/market-api/v1/demands/sub-1/events", func(w http.ResponseWriter, r *http.Request) {
		polled()
		// no provider ever answers
		select {
		case <-r.Context().Done():
		case <-time.After(50 * time.Millisecond):
		}
		writeJSON(w, http.StatusRequestTimeout, map[string]string{"message": "timeout"})
	}).Methods(http.MethodGet)
	s.registers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := s.start(ctx)
	select {
	case <-polling:
	case err := <-done:
		s.FailNowf("run returned before negotiating", "err: %v", err)
	case <-time.After(10 * time.Second):
		s.FailNow("demand was never polled")
	}
	cancel()

	s.NoError(s.wait(done))
	s.cleanup()
	s.Equal(1, s.count("DELETE /market-api/v1/demands/sub-1"))
	s.Zero(s.count("POST /register"))
	s.Zero(s.count("POST /stopped"))
}

func (s *RunSuite) TestInterruptWhileRegistering() {
	s.marketAgrees()
	registering, registered := signalOnce()
	s.taskQueue.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		registered()
		<-r.Context().Done()
	}).Methods(http.MethodPost)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := s.start(ctx)
	select {
	case <-registering:
	case err := <-done:
		s.FailNowf("run returned before registering", "err: %v", err)
	case <-time.After(10 * time.Second):
		s.FailNow("worker never registered")
	}
	cancel()

	s.NoError(s.wait(done))
	s.cleanup()
	s.Zero(s.count("POST /stopped"))
	s.Zero(s.count("POST /activity-api/v1/activity"))
}

func (s *RunSuite) TestNegotiationFailureIsFatal() {
	s.yagna.HandleFunc("/market-api/v1/demands", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid constraints"})
	}).Methods(http.MethodPost)

	err := s.wait(s.start(context.Background()))
	s.Require().Error(err)
	s.Contains(err.Error(), "negotiating a provider")
	s.cleanup()
	s.Zero(s.count("POST /register"))
}
