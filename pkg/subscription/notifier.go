package subscription

import (
	"context"
	"fmt"
	"log"
	"time"
)

// DefaultHorizons are the reminder thresholds, in days before expiry.
var DefaultHorizons = []int{7, 3, 1}

// Notifier scans for upcoming expirations and requests reminder sends.
// Reads the ledger only; its sole write is the per-day notification
// reservation that keeps overlapping runs from double-sending.
type Notifier struct {
	ledger Ledger
	sender Sender
}

func NewNotifier(ledger Ledger, sender Sender) *Notifier {
	return &Notifier{ledger: ledger, sender: sender}
}

// Notify sends renewal reminders for every horizon and returns per-horizon
// send counts. A reminder is claimed before it is dispatched, so at most
// one send per (business, horizon, day) survives concurrent runs; dispatch
// failures are logged and skipped without aborting the rest of the batch.
func (n *Notifier) Notify(ctx context.Context, now time.Time, horizons []int) (map[int]int, error) {
	if len(horizons) == 0 {
		horizons = DefaultHorizons
	}

	counts := make(map[int]int, len(horizons))
	for _, days := range horizons {
		counts[days] = 0

		expiring, err := n.ledger.ExpiringOn(ctx, now.AddDate(0, 0, days))
		if err != nil {
			return counts, fmt.Errorf("could not fetch subscriptions expiring in %d days: %w", days, err)
		}

		for _, business := range expiring {
			reserved, err := n.ledger.ReserveNotification(ctx, business.ID, days, now)
			if err != nil {
				log.Printf("Could not reserve %d-day reminder for business %d: %v", days, business.ID, err)
				continue
			}
			if !reserved {
				log.Printf("Renewal reminder already sent today for business %d (%d days)", business.ID, days)
				continue
			}

			endsAt := now
			if business.SubscriptionEndsAt != nil {
				endsAt = *business.SubscriptionEndsAt
			}

			sendCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
			err = n.sender.SendRenewalReminder(sendCtx, business.User.Email, business.User.GetFullName(), business.Name, endsAt, days)
			cancel()
			if err != nil {
				log.Printf("Could not send %d-day reminder to %s for business %d: %v", days, business.User.Email, business.ID, err)
				continue
			}

			log.Printf("Sent %d-day renewal reminder to %s for business %s", days, business.User.Email, business.Name)
			counts[days]++
		}
	}

	return counts, nil
}
