package subscription

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fixmyspine_backend/internal/model"
)

// memLedger is an in-memory Ledger for engine, sweeper and notifier tests.
// A single mutex around Transact mirrors the row-level serialization the
// relational store provides.
type memLedger struct {
	mu            sync.Mutex
	businesses    map[uint]*model.Business
	events        []model.SubscriptionEvent
	notifications map[string]bool

	// failTransact simulates a storage failure.
	failTransact bool
}

func newMemLedger() *memLedger {
	return &memLedger{
		businesses:    make(map[uint]*model.Business),
		notifications: make(map[string]bool),
	}
}

func (l *memLedger) addBusiness(b model.Business) {
	l.mu.Lock()
	defer l.mu.Unlock()
	copied := b
	l.businesses[b.ID] = &copied
}

func (l *memLedger) business(id uint) model.Business {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.businesses[id]
}

func (l *memLedger) eventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *memLedger) Transact(ctx context.Context, fn func(tx LedgerTx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failTransact {
		return fmt.Errorf("storage unavailable")
	}

	tx := &memLedgerTx{ledger: l}
	if err := fn(tx); err != nil {
		return err
	}

	// Commit.
	for _, b := range tx.savedBusinesses {
		copied := b
		l.businesses[b.ID] = &copied
	}
	l.events = append(l.events, tx.appendedEvents...)
	return nil
}

func (l *memLedger) ExpiringOn(ctx context.Context, day time.Time) ([]model.Business, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	target := day.Format("2006-01-02")
	var out []model.Business
	for _, b := range l.businesses {
		if b.SubscriptionStatus != model.SubscriptionActive || b.SubscriptionEndsAt == nil {
			continue
		}
		if b.SubscriptionEndsAt.Format("2006-01-02") == target {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (l *memLedger) Overdue(ctx context.Context, now time.Time) ([]model.Business, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Business
	for _, b := range l.businesses {
		switch b.SubscriptionStatus {
		case model.SubscriptionActive, model.SubscriptionPastDue, model.SubscriptionCancelled:
		default:
			continue
		}
		if b.SubscriptionEndsAt != nil && b.SubscriptionEndsAt.Before(now) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (l *memLedger) InconsistentActive(ctx context.Context, now time.Time) ([]model.Business, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.Business
	for _, b := range l.businesses {
		if b.SubscriptionStatus != model.SubscriptionActive {
			continue
		}
		if b.SubscriptionEndsAt == nil || b.SubscriptionEndsAt.Before(now) || !b.HasSubscription() {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (l *memLedger) ReserveNotification(ctx context.Context, businessID uint, horizonDays int, day time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := fmt.Sprintf("%d:%d:%s", businessID, horizonDays, day.Format("2006-01-02"))
	if l.notifications[key] {
		return false, nil
	}
	l.notifications[key] = true
	return true, nil
}

type memLedgerTx struct {
	ledger          *memLedger
	savedBusinesses []model.Business
	appendedEvents  []model.SubscriptionEvent
}

func (t *memLedgerTx) BusinessByID(id uint) (*model.Business, error) {
	b, ok := t.ledger.businesses[id]
	if !ok {
		return nil, ErrBusinessNotFound
	}
	copied := *b
	return &copied, nil
}

func (t *memLedgerTx) BusinessBySubscriptionID(subscriptionID string) (*model.Business, error) {
	for _, b := range t.ledger.businesses {
		if b.StripeSubscriptionID != nil && *b.StripeSubscriptionID == subscriptionID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, ErrSubscriptionNotFound
}

func (t *memLedgerTx) SaveBusiness(b *model.Business) error {
	t.savedBusinesses = append(t.savedBusinesses, *b)
	return nil
}

func (t *memLedgerTx) AppendEvent(ev *model.SubscriptionEvent) (bool, error) {
	for _, existing := range t.ledger.events {
		if existing.EventID == ev.EventID {
			return false, nil
		}
	}
	for _, pending := range t.appendedEvents {
		if pending.EventID == ev.EventID {
			return false, nil
		}
	}
	t.appendedEvents = append(t.appendedEvents, *ev)
	return true, nil
}
