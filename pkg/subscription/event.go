package subscription

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Envelope is the verified provider event as delivered to the webhook
// boundary. Signature verification happens before an envelope is built;
// the normalizer assumes integrity and only maps shapes.
type Envelope struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Created  int64           `json:"created"`
	Data     json.RawMessage `json:"data"`
	Verified bool            `json:"-"`
}

// NormalizedEvent is the canonical internal form of a provider event.
// Exactly one of BusinessID / SubscriptionID identifies the target:
// Created and Expired events carry the business reference, everything else
// resolves through the provider subscription id.
type NormalizedEvent struct {
	EventID        string
	Kind           EventKind
	BusinessID     uint
	UserID         uint
	SubscriptionID string
	SessionID      string
	CustomerID     string
	OccurredAt     time.Time
	AmountCents    int64
	Currency       string
	FailureReason  string
	RawStatus      string
}

type checkoutSessionData struct {
	ID           string `json:"id"`
	Subscription string `json:"subscription"`
	Customer     string `json:"customer"`
	AmountTotal  int64  `json:"amount_total"`
	Currency     string `json:"currency"`
	Metadata     struct {
		BusinessID string `json:"business_id"`
		UserID     string `json:"user_id"`
	} `json:"metadata"`
}

type invoiceData struct {
	ID               string `json:"id"`
	Subscription     string `json:"subscription"`
	AmountPaid       int64  `json:"amount_paid"`
	AmountDue        int64  `json:"amount_due"`
	Currency         string `json:"currency"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type subscriptionData struct {
	ID               string `json:"id"`
	Customer         string `json:"customer"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

// Normalize converts a provider envelope into a NormalizedEvent. Unknown
// event types come back with Kind = KindIgnored; the caller logs and
// acknowledges them so forward-compatible deliveries never fail. A payload
// that cannot be decoded for a recognized type is a real error.
func Normalize(env Envelope) (NormalizedEvent, error) {
	ev := NormalizedEvent{
		EventID:    env.ID,
		OccurredAt: time.Unix(env.Created, 0),
	}

	switch env.Type {
	case "checkout.session.completed":
		var data checkoutSessionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return ev, fmt.Errorf("could not decode checkout session payload: %w", err)
		}
		ev.Kind = KindCreated
		ev.SessionID = data.ID
		ev.SubscriptionID = data.Subscription
		ev.CustomerID = data.Customer
		ev.AmountCents = data.AmountTotal
		ev.Currency = data.Currency
		ev.BusinessID = parseRef(data.Metadata.BusinessID)
		ev.UserID = parseRef(data.Metadata.UserID)

	case "invoice.payment_succeeded":
		var data invoiceData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return ev, fmt.Errorf("could not decode invoice payload: %w", err)
		}
		if data.Subscription == "" {
			// One-off invoice, not subscription related.
			ev.Kind = KindIgnored
			return ev, nil
		}
		ev.Kind = KindRenewed
		ev.SubscriptionID = data.Subscription
		ev.AmountCents = data.AmountPaid
		ev.Currency = data.Currency

	case "invoice.payment_failed":
		var data invoiceData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return ev, fmt.Errorf("could not decode invoice payload: %w", err)
		}
		if data.Subscription == "" {
			ev.Kind = KindIgnored
			return ev, nil
		}
		ev.Kind = KindPaymentFailed
		ev.SubscriptionID = data.Subscription
		ev.AmountCents = data.AmountDue
		ev.Currency = data.Currency
		if data.LastPaymentError != nil {
			ev.FailureReason = data.LastPaymentError.Message
		}

	case "customer.subscription.deleted":
		var data subscriptionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return ev, fmt.Errorf("could not decode subscription payload: %w", err)
		}
		ev.Kind = KindCancelled
		ev.SubscriptionID = data.ID
		ev.CustomerID = data.Customer

	case "customer.subscription.updated":
		var data subscriptionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return ev, fmt.Errorf("could not decode subscription payload: %w", err)
		}
		ev.Kind = KindStatusSynced
		ev.SubscriptionID = data.ID
		ev.RawStatus = data.Status

	default:
		ev.Kind = KindIgnored
	}

	return ev, nil
}

func parseRef(s string) uint {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint(n)
}
