package market

import (
	"fmt"
	"time"
)

// ErrNoMatchFound is returned when the proposal stream ends without a confirmed agreement.
type ErrNoMatchFound struct {
	SubscriptionID string
	Proposals      int
}

func NewErrNoMatchFound(subscriptionID string, proposals int) ErrNoMatchFound {
	return ErrNoMatchFound{SubscriptionID: subscriptionID, Proposals: proposals}
}

func (e ErrNoMatchFound) Error() string {
	return fmt.Sprintf("no agreement confirmed for subscription %s after %d proposals", e.SubscriptionID, e.Proposals)
}

// ErrConfirmationTimeout is returned when no provider confirmed before the deadline.
type ErrConfirmationTimeout struct {
	Deadline time.Time
}

func NewErrConfirmationTimeout(deadline time.Time) ErrConfirmationTimeout {
	return ErrConfirmationTimeout{Deadline: deadline}
}

func (e ErrConfirmationTimeout) Error() string {
	return fmt.Sprintf("no provider confirmed an agreement before %s", e.Deadline.Format(time.RFC3339))
}
