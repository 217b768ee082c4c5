package subscription

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Sweeper downgrades premium listings whose renewal deadline has passed
// without a renewal event. It never writes business rows itself: every
// expiry is synthesized as an event and pushed through the engine so it
// shares the transactional write path and the audit trail.
type Sweeper struct {
	ledger Ledger
	engine *Engine
}

func NewSweeper(ledger Ledger, engine *Engine) *Sweeper {
	return &Sweeper{ledger: ledger, engine: engine}
}

// Sweep transitions every overdue subscription to expired and returns the
// number of rows it moved. Event ids are deterministic per business and
// day, so a rerun (or a crash-retry) lands on the idempotency guard and
// becomes a no-op.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.ledger.Overdue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("could not fetch overdue subscriptions: %w", err)
	}

	transitioned := 0
	for _, business := range overdue {
		ev := NormalizedEvent{
			EventID:    fmt.Sprintf("expire:%d:%s", business.ID, now.Format("2006-01-02")),
			Kind:       KindExpired,
			BusinessID: business.ID,
			OccurredAt: now,
		}

		outcome, err := s.engine.Apply(ctx, ev)
		if err != nil {
			log.Printf("Could not expire subscription for business %d: %v", business.ID, err)
			continue
		}
		if outcome == OutcomeApplied {
			log.Printf("Subscription expired and downgraded for business %d (%s)", business.ID, business.Name)
			transitioned++
		}
	}

	log.Printf("Expiry sweep completed: %d subscriptions transitioned", transitioned)
	return transitioned, nil
}
