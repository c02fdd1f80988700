package market

import (
	"context"
	"time"

	"github.com/yagna-labs/zksync-requestor/pkg/lib/concurrency"
)

// Demand describes the compute this requestor wants. It is immutable once published.
type Demand struct {
	Properties  map[string]any
	Constraints string
	Deadline    time.Time
}

type ProposalState string

const (
	ProposalStateInitial  ProposalState = "Initial"
	ProposalStateDraft    ProposalState = "Draft"
	ProposalStateRejected ProposalState = "Rejected"
	ProposalStateAccepted ProposalState = "Accepted"
	ProposalStateExpired  ProposalState = "Expired"
)

// Proposal is a provider's offer matched against our demand.
type Proposal struct {
	ID             string
	IssuerID       string
	PrevProposalID string
	State          ProposalState
	Properties     map[string]any
	Constraints    string
}

// IsResponse reports whether the provider answered one of our counter proposals,
// in which case an agreement can be created from it directly.
func (p Proposal) IsResponse() bool {
	return p.PrevProposalID != "" && p.State != ProposalStateRejected
}

// Agreement binds this requestor to one provider until Deadline.
type Agreement struct {
	ID           string
	Deadline     time.Time
	Confirmed    bool
	ProviderName string
}

// Market is the marketplace boundary used during negotiation.
type Market interface {
	// Subscribe publishes the demand and returns the subscription receiving proposals.
	Subscribe(ctx context.Context, demand Demand) (Subscription, error)
	// CreateAgreement proposes an agreement out of a provider proposal.
	CreateAgreement(ctx context.Context, proposalID string, validTo time.Time) (*Agreement, error)
	// ConfirmAgreement confirms the agreement and waits until the provider approves it.
	ConfirmAgreement(ctx context.Context, agreementID string) error
	// ProviderName returns the node name the provider advertised in the agreement.
	ProviderName(ctx context.Context, agreementID string) (string, error)
}

// Subscription is a published demand.
type Subscription interface {
	ID() string
	// Proposals streams proposals in arrival order until ctx is done or the subscription ends.
	Proposals(ctx context.Context) <-chan *concurrency.AsyncResult[Proposal]
	// Counter answers a proposal with our demand, unchanged.
	Counter(ctx context.Context, proposal Proposal, demand Demand) (string, error)
	Unsubscribe(ctx context.Context) error
}
