package subscription

import "fixmyspine_backend/internal/model"

// EventKind is the closed set of normalized event kinds the reconciliation
// engine dispatches on. Adding a kind means extending the switch in
// Engine.transition; the default branch turns a missed case into an error
// instead of a silent no-op.
type EventKind string

const (
	KindCreated       EventKind = "subscription.created"
	KindRenewed       EventKind = "subscription.renewed"
	KindCancelled     EventKind = "subscription.cancelled"
	KindPaymentFailed EventKind = "payment.failed"
	KindStatusSynced  EventKind = "subscription.updated"
	KindExpired       EventKind = "subscription.expired"

	// KindIgnored marks provider event types this subsystem does not
	// handle. They are logged and acknowledged so unknown events never
	// fail a webhook delivery.
	KindIgnored EventKind = "ignored"
)

func (k EventKind) String() string {
	return string(k)
}

// Outcome is the signal the webhook boundary translates into its HTTP
// response. Everything except OutcomeRetry is acknowledged to the provider.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
	OutcomeRetry     Outcome = "retry"
)

// Acknowledge reports whether the provider delivery should be accepted.
// Only transient storage failures request redelivery; precondition
// violations are acknowledged because redelivery cannot fix a data problem.
func (o Outcome) Acknowledge() bool {
	return o != OutcomeRetry
}

// StatusFromProvider maps the provider's reported subscription status onto
// the local status enum. Used by StatusSynced events to correct drift.
func StatusFromProvider(raw string) model.SubscriptionStatus {
	switch raw {
	case "canceled":
		return model.SubscriptionCancelled
	case "past_due", "unpaid":
		return model.SubscriptionPastDue
	default:
		return model.SubscriptionActive
	}
}
