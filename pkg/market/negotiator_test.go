//go:build unit || !integration

package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"

	"github.com/yagna-labs/zksync-requestor/pkg/lib/concurrency"
	"github.com/yagna-labs/zksync-requestor/pkg/logger"
)

type fakeSubscription struct {
	proposals []Proposal
	// hold keeps the stream open after the listed proposals until ctx is done.
	hold bool

	mu           sync.Mutex
	countered    []string
	unsubscribed int
}

func (f *fakeSubscription) ID() string { return "sub-1" }

func (f *fakeSubscription) Proposals(ctx context.Context) <-chan *concurrency.AsyncResult[Proposal] {
	ch := make(chan *concurrency.AsyncResult[Proposal])
	go func() {
		defer close(ch)
		for _, p := range f.proposals {
			select {
			case ch <- concurrency.NewAsyncValue(p):
			case <-ctx.Done():
				return
			}
		}
		if f.hold {
			<-ctx.Done()
		}
	}()
	return ch
}

func (f *fakeSubscription) Counter(_ context.Context, proposal Proposal, demand Demand) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countered = append(f.countered, proposal.ID)
	return "counter-" + proposal.ID, nil
}

func (f *fakeSubscription) Unsubscribe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed++
	return nil
}

type fakeMarket struct {
	sub *fakeSubscription
	// confirmErrors fails the confirmation of agreements created from these proposals.
	confirmErrors map[string]error

	mu        sync.Mutex
	created   []string
	confirmed []string
	demand    Demand
}

func (f *fakeMarket) Subscribe(_ context.Context, demand Demand) (Subscription, error) {
	f.demand = demand
	return f.sub, nil
}

func (f *fakeMarket) CreateAgreement(_ context.Context, proposalID string, validTo time.Time) (*Agreement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, proposalID)
	return &Agreement{ID: "agreement-" + proposalID, Deadline: validTo}, nil
}

func (f *fakeMarket) ConfirmAgreement(_ context.Context, agreementID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	proposalID := agreementID[len("agreement-"):]
	if err := f.confirmErrors[proposalID]; err != nil {
		return err
	}
	f.confirmed = append(f.confirmed, agreementID)
	return nil
}

func (f *fakeMarket) ProviderName(context.Context, string) (string, error) {
	return "provider-node", nil
}

type NegotiatorSuite struct {
	suite.Suite
	clock  *clock.Mock
	demand Demand
}

func TestNegotiatorSuite(t *testing.T) {
	suite.Run(t, new(NegotiatorSuite))
}

func (s *NegotiatorSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.clock = clock.NewMock()
	s.demand = NewDemand(DemandParams{
		NodeName:    "zk-sync-node",
		Subnet:      "devnet-alpha.3",
		TaskPackage: "hash:sha3:abc:http://example/image",
		RuntimeName: "vm",
		Deadline:    s.clock.Now().Add(25 * time.Minute),
	})
}

func (s *NegotiatorSuite) negotiator(m Market) *Negotiator {
	return NewNegotiator(NegotiatorParams{Market: m, Clock: s.clock})
}

func initial(id string) Proposal {
	return Proposal{ID: id, IssuerID: "issuer-" + id, State: ProposalStateInitial}
}

func response(id string) Proposal {
	return Proposal{ID: id, IssuerID: "issuer-" + id, PrevProposalID: "counter-" + id, State: ProposalStateDraft}
}

func (s *NegotiatorSuite) TestCountersThenAgreesOnResponse() {
	sub := &fakeSubscription{proposals: []Proposal{initial("p1"), response("p2"), response("p3")}}
	m := &fakeMarket{sub: sub}

	agreement, err := s.negotiator(m).Negotiate(context.Background(), s.demand)
	s.Require().NoError(err)
	s.Equal("agreement-p2", agreement.ID)
	s.True(agreement.Confirmed)
	s.Equal("provider-node", agreement.ProviderName)
	s.Equal(s.demand.Deadline, agreement.Deadline)

	s.Equal([]string{"p1"}, sub.countered)
	s.Equal([]string{"p2"}, m.created, "proposals after the confirmed one must be ignored")
	s.Equal(1, sub.unsubscribed)
}

func (s *NegotiatorSuite) TestConfirmationFailureKeepsNegotiating() {
	sub := &fakeSubscription{proposals: []Proposal{response("p1"), response("p2")}}
	m := &fakeMarket{sub: sub, confirmErrors: map[string]error{"p1": errors.New("agreement taken by another requestor")}}

	agreement, err := s.negotiator(m).Negotiate(context.Background(), s.demand)
	s.Require().NoError(err)
	s.Equal("agreement-p2", agreement.ID)
	s.Equal([]string{"p1", "p2"}, m.created)
	s.Equal(1, sub.unsubscribed)
}

func (s *NegotiatorSuite) TestEmptyStreamIsNoMatch() {
	sub := &fakeSubscription{}
	_, err := s.negotiator(&fakeMarket{sub: sub}).Negotiate(context.Background(), s.demand)

	var noMatch ErrNoMatchFound
	s.Require().ErrorAs(err, &noMatch)
	s.Equal(0, noMatch.Proposals)
	s.Equal(1, sub.unsubscribed)
}

func (s *NegotiatorSuite) TestAllRejectedIsNoMatch() {
	sub := &fakeSubscription{proposals: []Proposal{initial("p1"), response("p2")}}
	m := &fakeMarket{sub: sub, confirmErrors: map[string]error{"p2": errors.New("rejected")}}

	_, err := s.negotiator(m).Negotiate(context.Background(), s.demand)
	var noMatch ErrNoMatchFound
	s.Require().ErrorAs(err, &noMatch)
	s.Equal(2, noMatch.Proposals)
}

func (s *NegotiatorSuite) TestDeadlineIsConfirmationTimeout() {
	sub := &fakeSubscription{proposals: []Proposal{initial("p1")}, hold: true}
	done := make(chan error, 1)
	go func() {
		_, err := s.negotiator(&fakeMarket{sub: sub}).Negotiate(context.Background(), s.demand)
		done <- err
	}()

	var err error
	s.Require().Eventually(func() bool {
		select {
		case err = <-done:
			return true
		default:
			s.clock.Add(time.Minute)
			return false
		}
	}, 5*time.Second, time.Millisecond)

	var timeout ErrConfirmationTimeout
	s.Require().ErrorAs(err, &timeout)
	s.Equal(s.demand.Deadline, timeout.Deadline)
	s.Equal(1, sub.unsubscribed)
}

func (s *NegotiatorSuite) TestParentCancellation() {
	sub := &fakeSubscription{hold: true}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.negotiator(&fakeMarket{sub: sub}).Negotiate(ctx, s.demand)
	s.ErrorIs(err, context.Canceled)
	s.Equal(1, sub.unsubscribed)
}

func (s *NegotiatorSuite) TestDemand() {
	s.Equal("zk-sync-node", s.demand.Properties[PropertyNodeName])
	s.Equal("devnet-alpha.3", s.demand.Properties[PropertySubnet])
	s.Equal("hash:sha3:abc:http://example/image", s.demand.Properties[PropertyTaskPackage])
	s.Equal(s.demand.Deadline.UnixMilli(), s.demand.Properties[PropertyExpiration])
	s.Equal("(&(golem.runtime.name=vm)(golem.node.debug.subnet=devnet-alpha.3))", s.demand.Constraints)
}

func (s *NegotiatorSuite) TestIsResponse() {
	s.False(initial("p").IsResponse())
	s.True(response("p").IsResponse())
	rejected := response("p")
	rejected.State = ProposalStateRejected
	s.False(rejected.IsResponse())
}
