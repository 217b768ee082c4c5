package subscription

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"fixmyspine_backend/internal/model"

	"gorm.io/datatypes"
)

// HealthCheck flags active subscriptions whose stored state cannot be
// right: a missing provider subscription id, no renewal deadline, or a
// deadline already in the past. Each finding is appended to the event log
// for manual review; the rows themselves are never touched.
type HealthCheck struct {
	ledger Ledger
}

func NewHealthCheck(ledger Ledger) *HealthCheck {
	return &HealthCheck{ledger: ledger}
}

// Run returns the number of inconsistent subscriptions it flagged. Audit
// event ids are deterministic per business and day, so rerunning the check
// the same day does not duplicate findings.
func (h *HealthCheck) Run(ctx context.Context, now time.Time) (int, error) {
	inconsistent, err := h.ledger.InconsistentActive(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("could not fetch inconsistent subscriptions: %w", err)
	}

	flagged := 0
	for _, business := range inconsistent {
		payload, _ := json.Marshal(map[string]interface{}{
			"subscription_status":    business.SubscriptionStatus,
			"subscription_ends_at":   business.SubscriptionEndsAt,
			"stripe_subscription_id": business.StripeSubscriptionID,
		})

		ev := &model.SubscriptionEvent{
			EventID:    fmt.Sprintf("health:%d:%s", business.ID, now.Format("2006-01-02")),
			BusinessID: business.ID,
			Kind:       "health.inconsistent",
			Payload:    datatypes.JSON(payload),
			ObservedAt: now,
		}

		err := h.ledger.Transact(ctx, func(tx LedgerTx) error {
			fresh, err := tx.AppendEvent(ev)
			if err != nil {
				return err
			}
			if fresh {
				flagged++
			}
			return nil
		})
		if err != nil {
			log.Printf("Could not record health finding for business %d: %v", business.ID, err)
		}
	}

	log.Printf("Subscription health check found %d inconsistent subscriptions", len(inconsistent))
	return flagged, nil
}
