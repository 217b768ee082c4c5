package subscription

import (
	"context"
	"errors"
	"time"

	"fixmyspine_backend/internal/model"
)

// Precondition violations. These are non-fatal: the engine logs the event
// payload and acknowledges the delivery, since redelivering the same event
// cannot fix a missing reference or an invalid transition.
var (
	ErrBusinessNotFound     = errors.New("business not found for event reference")
	ErrSubscriptionNotFound = errors.New("no business matches subscription id")
	ErrOwnerMismatch        = errors.New("business is not owned by the event's user")
	ErrAlreadySubscribed    = errors.New("business already has an active subscription")
	ErrInvalidTransition    = errors.New("event is not valid for the current subscription status")
)

// Ledger is the durable record of each business's subscription state plus
// the append-only event log. All mutation of subscription fields goes
// through Transact; the periodic tasks only use the read queries and the
// notification reservation.
type Ledger interface {
	// Transact runs fn inside a single storage transaction. Either the
	// business update and its event row both commit, or neither does.
	Transact(ctx context.Context, fn func(tx LedgerTx) error) error

	// ExpiringOn returns active subscriptions whose renewal deadline falls
	// on the given calendar day. Used by the renewal notifier.
	ExpiringOn(ctx context.Context, day time.Time) ([]model.Business, error)

	// Overdue returns businesses still holding a premium tier whose
	// renewal deadline has passed. Used by the expiry sweeper.
	Overdue(ctx context.Context, now time.Time) ([]model.Business, error)

	// InconsistentActive returns active subscriptions with a missing
	// deadline, a past deadline, or no provider subscription id. Used by
	// the weekly health check.
	InconsistentActive(ctx context.Context, now time.Time) ([]model.Business, error)

	// ReserveNotification atomically records that a reminder for the
	// given horizon was claimed today. Returns false when a record for
	// (business, horizon, day) already exists.
	ReserveNotification(ctx context.Context, businessID uint, horizonDays int, day time.Time) (bool, error)
}

// LedgerTx is the view of the ledger inside one transaction. Lookups lock
// the business row so concurrent events for the same subscription serialize
// on their read-modify-write.
type LedgerTx interface {
	// BusinessByID loads and locks a business row by its primary key.
	// Returns ErrBusinessNotFound when no row matches.
	BusinessByID(id uint) (*model.Business, error)

	// BusinessBySubscriptionID loads and locks a business row by its
	// provider subscription id. Returns ErrSubscriptionNotFound when no
	// row matches.
	BusinessBySubscriptionID(subscriptionID string) (*model.Business, error)

	// SaveBusiness writes the new subscription state.
	SaveBusiness(b *model.Business) error

	// AppendEvent inserts an audit row. Returns fresh=false when the
	// event id was already recorded, which the engine interprets as a
	// duplicate delivery, not an error.
	AppendEvent(ev *model.SubscriptionEvent) (fresh bool, err error)
}
