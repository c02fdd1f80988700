package market

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yagna-labs/zksync-requestor/pkg/telemetry"
)

const unsubscribeTimeout = 10 * time.Second

type NegotiatorParams struct {
	Market Market
	Clock  clock.Clock
}

// Negotiator turns a demand into a confirmed agreement.
type Negotiator struct {
	market Market
	clock  clock.Clock
}

func NewNegotiator(params NegotiatorParams) *Negotiator {
	clk := params.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Negotiator{market: params.Market, clock: clk}
}

// Negotiate publishes the demand and consumes proposals in arrival order until
// one agreement is confirmed or demand.Deadline passes.
//
// Responses to our counter proposals are turned into agreements; every other
// proposal is countered with the unchanged demand. A failure to create or
// confirm an agreement is logged and negotiation continues with the next proposal.
// The subscription is released on every return path.
func (n *Negotiator) Negotiate(ctx context.Context, demand Demand) (*Agreement, error) {
	ctx, span := telemetry.NewSpan(ctx, "market", "Negotiate")
	defer span.End()

	sub, err := n.market.Subscribe(ctx, demand)
	if err != nil {
		return nil, telemetry.RecordErrorOnSpan(span)(errors.Wrap(err, "publishing demand"))
	}
	span.SetAttributes(attribute.String("subscription_id", sub.ID()))
	log.Ctx(ctx).Info().Str("subscription_id", sub.ID()).Msgf("demand published, negotiating until %s",
		demand.Deadline.Format(time.RFC3339))

	defer func() {
		cleanupCtx, cancel := telemetry.NewCleanupContext(ctx, unsubscribeTimeout)
		defer cancel()
		if err := sub.Unsubscribe(cleanupCtx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("subscription_id", sub.ID()).Msg("failed to unsubscribe demand")
		}
	}()

	negotiationCtx, cancel := n.clock.WithDeadline(ctx, demand.Deadline)
	defer cancel()

	seen := 0
	for res := range sub.Proposals(negotiationCtx) {
		if res.Err != nil {
			if negotiationCtx.Err() != nil {
				break
			}
			log.Ctx(ctx).Warn().Err(res.Err).Msg("failed to receive proposal")
			continue
		}
		seen++
		proposal := res.Value
		l := log.Ctx(ctx).With().Str("proposal_id", proposal.ID).Str("issuer_id", proposal.IssuerID).Logger()

		if !proposal.IsResponse() {
			if _, err := sub.Counter(negotiationCtx, proposal, demand); err != nil {
				l.Warn().Err(err).Msg("failed to send counter proposal")
			} else {
				l.Debug().Msg("counter proposal sent")
			}
			continue
		}

		agreement, err := n.agree(negotiationCtx, proposal, demand.Deadline)
		if err != nil {
			l.Warn().Err(err).Msg("agreement not confirmed, waiting for other proposals")
			continue
		}
		span.SetAttributes(attribute.String("agreement_id", agreement.ID))
		return agreement, nil
	}

	switch {
	case ctx.Err() != nil:
		return nil, telemetry.RecordErrorOnSpan(span)(ctx.Err())
	case negotiationCtx.Err() != nil:
		return nil, telemetry.RecordErrorOnSpan(span)(NewErrConfirmationTimeout(demand.Deadline))
	default:
		return nil, telemetry.RecordErrorOnSpan(span)(NewErrNoMatchFound(sub.ID(), seen))
	}
}

func (n *Negotiator) agree(ctx context.Context, proposal Proposal, deadline time.Time) (*Agreement, error) {
	agreement, err := n.market.CreateAgreement(ctx, proposal.ID, deadline)
	if err != nil {
		return nil, errors.Wrap(err, "creating agreement")
	}
	l := log.Ctx(ctx).With().Str("agreement_id", agreement.ID).Logger()
	l.Info().Msg("agreement created, confirming")

	if err = n.market.ConfirmAgreement(ctx, agreement.ID); err != nil {
		return nil, errors.Wrapf(err, "confirming agreement %s", agreement.ID)
	}
	agreement.Confirmed = true

	name, err := n.market.ProviderName(ctx, agreement.ID)
	if err != nil || name == "" {
		l.Warn().Err(err).Msg("agreement confirmed with a provider that has no node name")
	} else {
		agreement.ProviderName = name
		l.Info().Str("provider", name).Msgf("agreement confirmed with provider %s", name)
	}
	return agreement, nil
}
