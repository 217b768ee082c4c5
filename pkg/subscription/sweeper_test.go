package subscription

import (
	"context"
	"testing"
	"time"

	"fixmyspine_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiresOverdueSubscriptions(t *testing.T) {
	ledger := newMemLedger()
	engine, _, _ := newTestEngine(ledger)
	sweeper := NewSweeper(ledger, engine)

	pastDeadline := testNow.Add(-24 * time.Hour)
	futureDeadline := testNow.Add(30 * 24 * time.Hour)

	seedBusiness(ledger, 1, model.SubscriptionActive, model.TierPremium, "sub_1", &pastDeadline)
	seedBusiness(ledger, 2, model.SubscriptionCancelled, model.TierPremium, "sub_2", &pastDeadline)
	seedBusiness(ledger, 3, model.SubscriptionActive, model.TierPremium, "sub_3", &futureDeadline)

	count, err := sweeper.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []uint{1, 2} {
		business := ledger.business(id)
		assert.Equal(t, model.SubscriptionExpired, business.SubscriptionStatus)
		assert.Equal(t, model.TierFree, business.ListingTier)
		assert.Nil(t, business.StripeSubscriptionID, "expired rows must drop the provider reference")
		assertInvariant(t, business)
	}

	// The still-running subscription is untouched.
	untouched := ledger.business(3)
	assert.Equal(t, model.SubscriptionActive, untouched.SubscriptionStatus)
	assert.Equal(t, model.TierPremium, untouched.ListingTier)
}

func TestSweepRerunIsIdempotent(t *testing.T) {
	ledger := newMemLedger()
	engine, _, _ := newTestEngine(ledger)
	sweeper := NewSweeper(ledger, engine)

	pastDeadline := testNow.Add(-24 * time.Hour)
	seedBusiness(ledger, 1, model.SubscriptionActive, model.TierPremium, "sub_1", &pastDeadline)

	first, err := sweeper.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	// Same day, same deterministic event id: the rerun lands on the
	// idempotency guard.
	second, err := sweeper.Sweep(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Equal(t, 1, ledger.eventCount())
}

func TestSweepAllowsResubscribeAfterExpiry(t *testing.T) {
	ledger := newMemLedger()
	engine, _, _ := newTestEngine(ledger)
	sweeper := NewSweeper(ledger, engine)

	pastDeadline := testNow.Add(-24 * time.Hour)
	seedBusiness(ledger, 1, model.SubscriptionActive, model.TierPremium, "sub_old", &pastDeadline)

	_, err := sweeper.Sweep(context.Background(), testNow)
	require.NoError(t, err)

	outcome, err := engine.Apply(context.Background(), NormalizedEvent{
		EventID:        "evt_resub",
		Kind:           KindCreated,
		BusinessID:     1,
		SubscriptionID: "sub_new",
		OccurredAt:     testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, outcome)

	business := ledger.business(1)
	assert.Equal(t, model.SubscriptionActive, business.SubscriptionStatus)
	assert.Equal(t, model.TierPremium, business.ListingTier)
	assert.Equal(t, "sub_new", *business.StripeSubscriptionID)
}
