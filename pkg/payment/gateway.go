package payment

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fixmyspine_backend/internal/model"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// Gateway wraps the Stripe client. The reconciliation engine only reads
// through it (resolving checkout sessions); the checkout controller uses it
// to start and cancel subscriptions. Every call carries the bounded
// timeout configured on the HTTP client.
type Gateway struct {
	client        *client.API
	annualPriceID string
}

func NewGateway(secretKey, annualPriceID string, timeout time.Duration) *Gateway {
	sc := &client.API{}
	sc.Init(secretKey, stripe.NewBackends(&http.Client{Timeout: timeout}))

	return &Gateway{
		client:        sc,
		annualPriceID: annualPriceID,
	}
}

// SubscriptionForSession resolves a checkout session to its subscription
// id. Used when a checkout.session.completed payload carries only the
// session reference.
func (g *Gateway) SubscriptionForSession(ctx context.Context, sessionID string) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}

	session, err := g.client.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", fmt.Errorf("could not retrieve checkout session %s: %w", sessionID, err)
	}
	if session.Subscription == nil {
		return "", fmt.Errorf("checkout session %s has no subscription", sessionID)
	}

	return session.Subscription.ID, nil
}

// CreateCheckoutSession starts the annual premium checkout for a business.
// The business and user ids travel in the session and subscription
// metadata so the webhook can route the completed checkout back to its
// listing.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, user *model.User, business *model.Business, successURL, cancelURL string) (*stripe.CheckoutSession, error) {
	customer, err := g.findOrCreateCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customer.ID),
		Mode:     stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(g.annualPriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"business_id": strconv.FormatUint(uint64(business.ID), 10),
				"user_id":     strconv.FormatUint(uint64(user.ID), 10),
			},
		},
	}
	params.AddMetadata("business_id", strconv.FormatUint(uint64(business.ID), 10))
	params.AddMetadata("user_id", strconv.FormatUint(uint64(user.ID), 10))
	params.SetIdempotencyKey(uuid.NewString())

	session, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("could not create checkout session: %w", err)
	}
	return session, nil
}

// SessionPaid reports whether a checkout session completed payment, plus
// the subscription it created. Used by the success redirect, which only
// confirms status; the webhook path owns the ledger write.
func (g *Gateway) SessionPaid(ctx context.Context, sessionID string) (bool, string, error) {
	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
	}

	session, err := g.client.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return false, "", fmt.Errorf("could not retrieve checkout session %s: %w", sessionID, err)
	}

	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}
	return session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid, subscriptionID, nil
}

// CancelSubscription cancels at the provider. The resulting
// customer.subscription.deleted webhook drives the ledger transition; this
// call never mutates local state.
func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{
		Params: stripe.Params{Context: ctx},
	}
	if _, err := g.client.Subscriptions.Cancel(subscriptionID, params); err != nil {
		return fmt.Errorf("could not cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// PortalURL creates a billing portal session for the user's customer.
func (g *Gateway) PortalURL(ctx context.Context, user *model.User, returnURL string) (string, error) {
	customer, err := g.findOrCreateCustomer(ctx, user)
	if err != nil {
		return "", err
	}

	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customer.ID),
		ReturnURL: stripe.String(returnURL),
	}

	session, err := g.client.BillingPortalSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("could not create billing portal session: %w", err)
	}
	return session.URL, nil
}

func (g *Gateway) findOrCreateCustomer(ctx context.Context, user *model.User) (*stripe.Customer, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(user.Email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := g.client.Customers.List(listParams)
	if iter.Next() {
		return iter.Customer(), nil
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("could not look up customer: %w", err)
	}

	customer, err := g.client.Customers.New(&stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(user.Email),
		Name:   stripe.String(user.GetFullName()),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create customer: %w", err)
	}
	return customer, nil
}
