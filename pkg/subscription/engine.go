package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"fixmyspine_backend/internal/model"

	"gorm.io/datatypes"
)

// renewalPeriod is how far each successful checkout or renewal pushes the
// deadline. Annual premium listings only; pricing is not decided here.
const renewalPeriod = time.Hour * 24 * 365

// dispatchTimeout bounds every outbound notification call.
const dispatchTimeout = 10 * time.Second

// Gateway is the read-only view of the payment provider the engine needs:
// resolving a checkout session to its subscription when the webhook payload
// carries only the session reference.
type Gateway interface {
	SubscriptionForSession(ctx context.Context, sessionID string) (subscriptionID string, err error)
}

// Sender delivers subscription notifications. Best-effort side channel:
// failures are logged, never retried, and never affect ledger state.
type Sender interface {
	SendRenewalReminder(ctx context.Context, email, name, businessName string, endsAt time.Time, daysLeft int) error
	SendPaymentFailure(ctx context.Context, email, name, businessName, reason string) error
	SendSubscriptionCancelled(ctx context.Context, email, name, businessName string, endsAt time.Time) error
}

// Engine applies normalized provider events to the ledger under one
// transaction per event. It is the only writer of business subscription
// fields; the sweeper funnels its expiry transitions through Apply so they
// share the same idempotency guard and audit trail.
type Engine struct {
	ledger  Ledger
	gateway Gateway
	sender  Sender

	// Now is the engine's clock. Overridable in tests.
	Now func() time.Time
}

func NewEngine(ledger Ledger, gateway Gateway, sender Sender) *Engine {
	return &Engine{
		ledger:  ledger,
		gateway: gateway,
		sender:  sender,
		Now:     time.Now,
	}
}

// errDuplicate aborts the transaction after the idempotency guard detects a
// redelivery. Nothing has been written at that point, so the rollback is a
// no-op.
var errDuplicate = errors.New("duplicate event")

// Ingest is the webhook entry point: normalize, admit, apply. The returned
// outcome tells the boundary whether to acknowledge the delivery or request
// redelivery; only storage failures come back as OutcomeRetry.
func (e *Engine) Ingest(ctx context.Context, env Envelope) (Outcome, error) {
	if !env.Verified {
		return OutcomeRejected, fmt.Errorf("refusing unverified event %s", env.ID)
	}

	ev, err := Normalize(env)
	if err != nil {
		log.Printf("Could not normalize event %s (%s): %v", env.ID, env.Type, err)
		return OutcomeRejected, nil
	}

	if ev.Kind == KindIgnored {
		log.Printf("Ignoring unhandled event type: %s (%s)", env.Type, env.ID)
		return OutcomeIgnored, nil
	}

	// A completed checkout may reference its subscription only through the
	// session. Resolve it from the provider before touching the ledger; a
	// gateway failure is transient, so ask for redelivery.
	if ev.Kind == KindCreated && ev.SubscriptionID == "" {
		subID, err := e.gateway.SubscriptionForSession(ctx, ev.SessionID)
		if err != nil {
			log.Printf("Could not resolve checkout session %s: %v", ev.SessionID, err)
			return OutcomeRetry, err
		}
		ev.SubscriptionID = subID
	}

	return e.Apply(ctx, ev)
}

// Apply runs one event through the state machine inside a single ledger
// transaction. Safe to call concurrently; events for the same business
// serialize on the row lock taken by the lookup.
func (e *Engine) Apply(ctx context.Context, ev NormalizedEvent) (Outcome, error) {
	if ev.Kind == KindIgnored {
		return OutcomeIgnored, nil
	}

	var applied model.Business

	err := e.ledger.Transact(ctx, func(tx LedgerTx) error {
		business, err := e.resolve(tx, ev)
		if err != nil {
			return err
		}

		fresh, err := tx.AppendEvent(&model.SubscriptionEvent{
			EventID:    ev.EventID,
			BusinessID: business.ID,
			Kind:       ev.Kind.String(),
			Payload:    auditPayload(ev),
			ObservedAt: e.Now(),
		})
		if err != nil {
			return err
		}
		if !fresh {
			return errDuplicate
		}

		if err := e.transition(business, ev); err != nil {
			return err
		}

		if err := tx.SaveBusiness(business); err != nil {
			return err
		}

		applied = *business
		return nil
	})

	switch {
	case err == nil:
		log.Printf("Applied %s (%s) to business %d: status=%s tier=%s",
			ev.Kind, ev.EventID, applied.ID, applied.SubscriptionStatus, applied.ListingTier)
		e.dispatch(ev, applied)
		return OutcomeApplied, nil

	case errors.Is(err, errDuplicate):
		log.Printf("Duplicate delivery of event %s, already applied", ev.EventID)
		return OutcomeDuplicate, nil

	case isPrecondition(err):
		log.Printf("Rejected %s (%s): %v; payload: %s", ev.Kind, ev.EventID, err, auditPayload(ev))
		return OutcomeRejected, nil

	default:
		log.Printf("Storage failure applying %s (%s): %v", ev.Kind, ev.EventID, err)
		return OutcomeRetry, err
	}
}

// resolve locates and locks the business row an event targets.
func (e *Engine) resolve(tx LedgerTx, ev NormalizedEvent) (*model.Business, error) {
	switch ev.Kind {
	case KindCreated, KindExpired:
		if ev.BusinessID == 0 {
			return nil, ErrBusinessNotFound
		}
		return tx.BusinessByID(ev.BusinessID)
	default:
		if ev.SubscriptionID == "" {
			return nil, ErrSubscriptionNotFound
		}
		return tx.BusinessBySubscriptionID(ev.SubscriptionID)
	}
}

// transition is the state machine. One exhaustive switch over the closed
// event kind set; preconditions fail with sentinel errors that roll the
// transaction back.
func (e *Engine) transition(b *model.Business, ev NormalizedEvent) error {
	now := e.Now()

	switch ev.Kind {
	case KindCreated:
		if ev.UserID != 0 && b.UserID != ev.UserID {
			return ErrOwnerMismatch
		}
		if b.SubscriptionStatus == model.SubscriptionActive {
			return ErrAlreadySubscribed
		}
		endsAt := now.Add(renewalPeriod)
		subID := ev.SubscriptionID
		b.SubscriptionStatus = model.SubscriptionActive
		b.ListingTier = model.TierPremium
		b.StripeSubscriptionID = &subID
		b.SubscriptionEndsAt = &endsAt

	case KindRenewed:
		endsAt := now.Add(renewalPeriod)
		b.SubscriptionEndsAt = &endsAt
		if b.SubscriptionStatus == model.SubscriptionPastDue {
			b.SubscriptionStatus = model.SubscriptionActive
		}

	case KindPaymentFailed:
		if b.SubscriptionStatus != model.SubscriptionActive {
			return ErrInvalidTransition
		}
		// Grace period: the listing stays premium until the deadline.
		b.SubscriptionStatus = model.SubscriptionPastDue

	case KindCancelled:
		// Premium persists until the deadline passes; the sweeper moves
		// the row to expired.
		b.SubscriptionStatus = model.SubscriptionCancelled

	case KindStatusSynced:
		b.SubscriptionStatus = StatusFromProvider(ev.RawStatus)

	case KindExpired:
		switch b.SubscriptionStatus {
		case model.SubscriptionActive, model.SubscriptionPastDue, model.SubscriptionCancelled:
		default:
			return ErrInvalidTransition
		}
		if b.SubscriptionEndsAt == nil || !b.SubscriptionEndsAt.Before(ev.OccurredAt) {
			return ErrInvalidTransition
		}
		b.SubscriptionStatus = model.SubscriptionExpired
		b.ListingTier = model.TierFree
		b.StripeSubscriptionID = nil

	default:
		return fmt.Errorf("unhandled event kind: %s", ev.Kind)
	}

	return nil
}

// dispatch sends the post-commit notification an applied event calls for.
// Fire-and-forget: a dispatch failure never unwinds the ledger write.
func (e *Engine) dispatch(ev NormalizedEvent, b model.Business) {
	if e.sender == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	var err error
	switch ev.Kind {
	case KindPaymentFailed:
		err = e.sender.SendPaymentFailure(ctx, b.User.Email, b.User.GetFullName(), b.Name, ev.FailureReason)
	case KindCancelled:
		endsAt := e.Now()
		if b.SubscriptionEndsAt != nil {
			endsAt = *b.SubscriptionEndsAt
		}
		err = e.sender.SendSubscriptionCancelled(ctx, b.User.Email, b.User.GetFullName(), b.Name, endsAt)
	default:
		return
	}

	if err != nil {
		log.Printf("Could not send %s notification for business %d: %v", ev.Kind, b.ID, err)
	}
}

func isPrecondition(err error) bool {
	return errors.Is(err, ErrBusinessNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrOwnerMismatch) ||
		errors.Is(err, ErrAlreadySubscribed) ||
		errors.Is(err, ErrInvalidTransition)
}

// auditPayload captures the event fields worth keeping for manual review.
func auditPayload(ev NormalizedEvent) datatypes.JSON {
	fields := map[string]interface{}{
		"subscription_id": ev.SubscriptionID,
	}
	if ev.SessionID != "" {
		fields["session_id"] = ev.SessionID
	}
	if ev.CustomerID != "" {
		fields["customer_id"] = ev.CustomerID
	}
	if ev.AmountCents != 0 {
		fields["amount"] = ev.AmountCents
		fields["currency"] = ev.Currency
	}
	if ev.FailureReason != "" {
		fields["failure_reason"] = ev.FailureReason
	}
	if ev.RawStatus != "" {
		fields["status"] = ev.RawStatus
	}

	payload, _ := json.Marshal(fields)
	return datatypes.JSON(payload)
}
