package subscription

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCheckoutSession(t *testing.T) {
	env := Envelope{
		ID:      "evt_checkout",
		Type:    "checkout.session.completed",
		Created: 1750000000,
		Data: json.RawMessage(`{
			"id": "cs_test_1",
			"subscription": "sub_abc",
			"customer": "cus_1",
			"amount_total": 49900,
			"currency": "aud",
			"metadata": {"business_id": "42", "user_id": "7"}
		}`),
		Verified: true,
	}

	ev, err := Normalize(env)
	require.NoError(t, err)

	assert.Equal(t, "evt_checkout", ev.EventID)
	assert.Equal(t, KindCreated, ev.Kind)
	assert.Equal(t, uint(42), ev.BusinessID)
	assert.Equal(t, uint(7), ev.UserID)
	assert.Equal(t, "sub_abc", ev.SubscriptionID)
	assert.Equal(t, "cs_test_1", ev.SessionID)
	assert.Equal(t, "cus_1", ev.CustomerID)
	assert.Equal(t, int64(49900), ev.AmountCents)
	assert.Equal(t, "aud", ev.Currency)
	assert.Equal(t, time.Unix(1750000000, 0), ev.OccurredAt)
}

func TestNormalizeInvoiceEvents(t *testing.T) {
	t.Run("payment succeeded", func(t *testing.T) {
		env := Envelope{
			ID:   "evt_renew",
			Type: "invoice.payment_succeeded",
			Data: json.RawMessage(`{"id": "in_1", "subscription": "sub_abc", "amount_paid": 49900, "currency": "aud"}`),
		}

		ev, err := Normalize(env)
		require.NoError(t, err)
		assert.Equal(t, KindRenewed, ev.Kind)
		assert.Equal(t, "sub_abc", ev.SubscriptionID)
		assert.Equal(t, int64(49900), ev.AmountCents)
	})

	t.Run("payment failed with reason", func(t *testing.T) {
		env := Envelope{
			ID:   "evt_fail",
			Type: "invoice.payment_failed",
			Data: json.RawMessage(`{"id": "in_2", "subscription": "sub_abc", "amount_due": 49900, "last_payment_error": {"message": "Your card was declined."}}`),
		}

		ev, err := Normalize(env)
		require.NoError(t, err)
		assert.Equal(t, KindPaymentFailed, ev.Kind)
		assert.Equal(t, "Your card was declined.", ev.FailureReason)
	})

	t.Run("one-off invoice without subscription is ignored", func(t *testing.T) {
		env := Envelope{
			ID:   "evt_oneoff",
			Type: "invoice.payment_succeeded",
			Data: json.RawMessage(`{"id": "in_3", "amount_paid": 1000}`),
		}

		ev, err := Normalize(env)
		require.NoError(t, err)
		assert.Equal(t, KindIgnored, ev.Kind)
	})
}

func TestNormalizeSubscriptionEvents(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		env := Envelope{
			ID:   "evt_deleted",
			Type: "customer.subscription.deleted",
			Data: json.RawMessage(`{"id": "sub_abc", "customer": "cus_1", "status": "canceled"}`),
		}

		ev, err := Normalize(env)
		require.NoError(t, err)
		assert.Equal(t, KindCancelled, ev.Kind)
		assert.Equal(t, "sub_abc", ev.SubscriptionID)
	})

	t.Run("updated carries the raw status", func(t *testing.T) {
		env := Envelope{
			ID:   "evt_updated",
			Type: "customer.subscription.updated",
			Data: json.RawMessage(`{"id": "sub_abc", "status": "past_due"}`),
		}

		ev, err := Normalize(env)
		require.NoError(t, err)
		assert.Equal(t, KindStatusSynced, ev.Kind)
		assert.Equal(t, "past_due", ev.RawStatus)
	})
}

func TestNormalizeUnknownTypeIgnored(t *testing.T) {
	env := Envelope{
		ID:   "evt_unknown",
		Type: "customer.tax_id.created",
		Data: json.RawMessage(`{"id": "txi_1"}`),
	}

	ev, err := Normalize(env)
	require.NoError(t, err)
	assert.Equal(t, KindIgnored, ev.Kind)
	assert.Equal(t, "evt_unknown", ev.EventID)
}

func TestNormalizeMalformedPayload(t *testing.T) {
	env := Envelope{
		ID:   "evt_broken",
		Type: "checkout.session.completed",
		Data: json.RawMessage(`{"metadata": "not-an-object"}`),
	}

	_, err := Normalize(env)
	assert.Error(t, err)
}

func TestStatusFromProvider(t *testing.T) {
	assert.Equal(t, "cancelled", string(StatusFromProvider("canceled")))
	assert.Equal(t, "past_due", string(StatusFromProvider("past_due")))
	assert.Equal(t, "past_due", string(StatusFromProvider("unpaid")))
	assert.Equal(t, "active", string(StatusFromProvider("active")))
	assert.Equal(t, "active", string(StatusFromProvider("trialing")))
}

func TestParseRef(t *testing.T) {
	assert.Equal(t, uint(42), parseRef("42"))
	assert.Equal(t, uint(0), parseRef(""))
	assert.Equal(t, uint(0), parseRef("not-a-number"))
	assert.Equal(t, uint(0), parseRef("-1"))
}
