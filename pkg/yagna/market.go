package yagna

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/yagna-labs/zksync-requestor/pkg/lib/backoff"
	"github.com/yagna-labs/zksync-requestor/pkg/lib/concurrency"
	"github.com/yagna-labs/zksync-requestor/pkg/market"
)

const (
	eventTypeProposal         = "ProposalEvent"
	eventTypeProposalRejected = "ProposalRejectedEvent"
	approvalApproved          = "Approved"

	maxPollBackoff = 30 * time.Second
)

type demandJSON struct {
	Properties  map[string]any `json:"properties"`
	Constraints string         `json:"constraints"`
}

type proposalJSON struct {
	ProposalID     string         `json:"proposalId"`
	IssuerID       string         `json:"issuerId"`
	State          string         `json:"state"`
	PrevProposalID string         `json:"prevProposalId,omitempty"`
	Properties     map[string]any `json:"properties"`
	Constraints    string         `json:"constraints"`
}

type marketEvent struct {
	EventType  string        `json:"eventType"`
	EventDate  time.Time     `json:"eventDate"`
	Proposal   *proposalJSON `json:"proposal,omitempty"`
	ProposalID string        `json:"proposalId,omitempty"`
	Reason     *struct {
		Message string `json:"message"`
	} `json:"reason,omitempty"`
}

type agreementProposalJSON struct {
	ProposalID string `json:"proposalId"`
	ValidTo    string `json:"validTo"`
}

type agreementJSON struct {
	AgreementID string `json:"agreementId"`
	State       string `json:"state"`
	ValidTo     string `json:"validTo"`
	Offer       struct {
		ProviderID string         `json:"providerId"`
		Properties map[string]any `json:"properties"`
	} `json:"offer"`
}

func toDemandJSON(demand market.Demand) demandJSON {
	return demandJSON{Properties: demand.Properties, Constraints: demand.Constraints}
}

func (p proposalJSON) toProposal() market.Proposal {
	return market.Proposal{
		ID:             p.ProposalID,
		IssuerID:       p.IssuerID,
		PrevProposalID: p.PrevProposalID,
		State:          market.ProposalState(p.State),
		Properties:     p.Properties,
		Constraints:    p.Constraints,
	}
}

// formatTimestamp renders t the way the daemon parses timestamps.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Market implements market.Market over the daemon's market API.
type Market struct {
	client *Client
}

func NewMarket(client *Client) *Market {
	return &Market{client: client}
}

func (m *Market) Subscribe(ctx context.Context, demand market.Demand) (market.Subscription, error) {
	var id string
	if err := m.client.do(ctx, http.MethodPost, marketAPI+"/demands", nil, toDemandJSON(demand), &id); err != nil {
		return nil, errors.Wrap(err, "subscribing demand")
	}
	if id == "" {
		return nil, errors.New("daemon returned an empty subscription id")
	}
	return &subscription{client: m.client, id: id}, nil
}

func (m *Market) CreateAgreement(ctx context.Context, proposalID string, validTo time.Time) (*market.Agreement, error) {
	var id string
	body := agreementProposalJSON{ProposalID: proposalID, ValidTo: formatTimestamp(validTo)}
	if err := m.client.do(ctx, http.MethodPost, marketAPI+"/agreements", nil, body, &id); err != nil {
		return nil, errors.Wrapf(err, "creating agreement from proposal %s", proposalID)
	}
	return &market.Agreement{ID: id, Deadline: validTo}, nil
}

// ConfirmAgreement confirms the agreement and long-polls until the provider
// approves it or ctx is done.
func (m *Market) ConfirmAgreement(ctx context.Context, agreementID string) error {
	path := marketAPI + "/agreements/" + url.PathEscape(agreementID)
	if err := m.client.do(ctx, http.MethodPost, path+"/confirm", nil, nil, nil); err != nil {
		return errors.Wrap(err, "confirming agreement")
	}
	for {
		var result string
		err := m.client.do(ctx, http.MethodPost, path+"/wait", m.client.pollQuery(), nil, &result)
		switch {
		case err == nil && (result == "" || result == approvalApproved):
			return nil
		case err == nil:
			return errors.Errorf("agreement %s was not approved: %s", agreementID, result)
		case isPollTimeout(err):
			log.Ctx(ctx).Debug().Str("agreement_id", agreementID).Msg("still waiting for agreement approval")
			if ctx.Err() != nil {
				return ctx.Err()
			}
		default:
			return errors.Wrap(err, "waiting for agreement approval")
		}
	}
}

func (m *Market) ProviderName(ctx context.Context, agreementID string) (string, error) {
	var agreement agreementJSON
	path := marketAPI + "/agreements/" + url.PathEscape(agreementID)
	if err := m.client.do(ctx, http.MethodGet, path, nil, nil, &agreement); err != nil {
		return "", errors.Wrap(err, "fetching agreement")
	}
	name, ok := agreement.Offer.Properties[market.PropertyNodeName].(string)
	if !ok {
		return "", errors.Errorf("offer of agreement %s has no %s", agreementID, market.PropertyNodeName)
	}
	return name, nil
}

type subscription struct {
	client *Client
	id     string
}

func (s *subscription) ID() string {
	return s.id
}

func (s *subscription) path() string {
	return marketAPI + "/demands/" + url.PathEscape(s.id)
}

// Proposals long-polls the subscription's events. Transient failures are
// delivered as errors and polling resumes after an exponential pause; the
// stream ends when ctx is done or the daemon no longer knows the subscription.
func (s *subscription) Proposals(ctx context.Context) <-chan *concurrency.AsyncResult[market.Proposal] {
	out := make(chan *concurrency.AsyncResult[market.Proposal])
	query := s.client.pollQuery()
	query.Set("maxEvents", strconv.Itoa(s.client.maxEvents))

	send := func(res *concurrency.AsyncResult[market.Proposal]) bool {
		select {
		case out <- res:
			return true
		case <-ctx.Done():
			return false
		}
	}

	retry := &backoff.Exponential{
		BaseBackoff: s.client.pollTimeout,
		MaxBackoff:  maxPollBackoff,
		Multiplier:  2,
		Clock:       s.client.clock,
	}
	if retry.MaxBackoff < retry.BaseBackoff {
		retry.MaxBackoff = retry.BaseBackoff
	}

	go func() {
		defer close(out)
		failures := 0
		for ctx.Err() == nil {
			var events []marketEvent
			err := s.client.do(ctx, http.MethodGet, s.path()+"/events", query, nil, &events)
			if err != nil {
				if ctx.Err() != nil || isPollTimeout(err) {
					continue
				}
				if !send(concurrency.NewAsyncError[market.Proposal](err)) || IsGone(err) {
					return
				}
				failures++
				retry.Backoff(ctx, failures)
				continue
			}
			failures = 0
			for _, event := range events {
				switch {
				case event.EventType == eventTypeProposal && event.Proposal != nil:
					if !send(concurrency.NewAsyncValue(event.Proposal.toProposal())) {
						return
					}
				case event.EventType == eventTypeProposalRejected:
					reason := ""
					if event.Reason != nil {
						reason = event.Reason.Message
					}
					log.Ctx(ctx).Debug().Str("proposal_id", event.ProposalID).Msgf("proposal rejected: %s", reason)
				default:
					log.Ctx(ctx).Trace().Msgf("ignoring market event %s", event.EventType)
				}
			}
		}
	}()
	return out
}

func (s *subscription) Counter(ctx context.Context, proposal market.Proposal, demand market.Demand) (string, error) {
	var id string
	path := s.path() + "/proposals/" + url.PathEscape(proposal.ID)
	if err := s.client.do(ctx, http.MethodPost, path, nil, toDemandJSON(demand), &id); err != nil {
		return "", errors.Wrapf(err, "countering proposal %s", proposal.ID)
	}
	return id, nil
}

// Unsubscribe withdraws the demand. A subscription the daemon already dropped
// counts as unsubscribed.
func (s *subscription) Unsubscribe(ctx context.Context) error {
	err := s.client.do(ctx, http.MethodDelete, s.path(), nil, nil, nil)
	if err != nil && !IsGone(err) {
		return errors.Wrap(err, "unsubscribing demand")
	}
	return nil
}
