package subscription

import (
	"context"
	"errors"
	"time"

	"fixmyspine_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLedger implements Ledger on the relational store. Row locks on the
// business lookups serialize concurrent events for the same subscription;
// the unique index on subscription_events.event_id is the idempotency
// guard. Requires TranslateError on the gorm config so unique violations
// surface as gorm.ErrDuplicatedKey across drivers.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Transact(ctx context.Context, fn func(tx LedgerTx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormLedgerTx{tx: tx})
	})
}

func (l *GormLedger) ExpiringOn(ctx context.Context, day time.Time) ([]model.Business, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var businesses []model.Business
	err := l.db.WithContext(ctx).
		Where("subscription_status = ?", model.SubscriptionActive).
		Where("subscription_ends_at >= ? AND subscription_ends_at < ?", start, end).
		Preload("User").
		Find(&businesses).Error
	return businesses, err
}

func (l *GormLedger) Overdue(ctx context.Context, now time.Time) ([]model.Business, error) {
	var businesses []model.Business
	err := l.db.WithContext(ctx).
		Where("subscription_status IN ?", []model.SubscriptionStatus{
			model.SubscriptionActive,
			model.SubscriptionPastDue,
			model.SubscriptionCancelled,
		}).
		Where("subscription_ends_at IS NOT NULL AND subscription_ends_at < ?", now).
		Preload("User").
		Find(&businesses).Error
	return businesses, err
}

func (l *GormLedger) InconsistentActive(ctx context.Context, now time.Time) ([]model.Business, error) {
	var businesses []model.Business
	err := l.db.WithContext(ctx).
		Where("subscription_status = ?", model.SubscriptionActive).
		Where("subscription_ends_at IS NULL OR subscription_ends_at < ? OR stripe_subscription_id IS NULL", now).
		Find(&businesses).Error
	return businesses, err
}

func (l *GormLedger) ReserveNotification(ctx context.Context, businessID uint, horizonDays int, day time.Time) (bool, error) {
	record := model.NotificationRecord{
		BusinessID:  businessID,
		HorizonDays: horizonDays,
		SentOn:      day.Format("2006-01-02"),
		Kind:        "renewal_reminder",
	}

	err := l.db.WithContext(ctx).Create(&record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type gormLedgerTx struct {
	tx *gorm.DB
}

func (t *gormLedgerTx) BusinessByID(id uint) (*model.Business, error) {
	var business model.Business
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&business, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := t.preloadUser(&business); err != nil {
		return nil, err
	}
	return &business, nil
}

func (t *gormLedgerTx) BusinessBySubscriptionID(subscriptionID string) (*model.Business, error) {
	var business model.Business
	err := t.tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("stripe_subscription_id = ?", subscriptionID).
		First(&business).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := t.preloadUser(&business); err != nil {
		return nil, err
	}
	return &business, nil
}

// preloadUser loads the owner separately so the row lock stays on the
// businesses table only.
func (t *gormLedgerTx) preloadUser(business *model.Business) error {
	if business.UserID == 0 {
		return nil
	}
	err := t.tx.First(&business.User, business.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (t *gormLedgerTx) SaveBusiness(b *model.Business) error {
	return t.tx.Omit(clause.Associations).Save(b).Error
}

func (t *gormLedgerTx) AppendEvent(ev *model.SubscriptionEvent) (bool, error) {
	err := t.tx.Create(ev).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
