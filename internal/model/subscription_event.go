package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionEvent is the append-only audit log of every state-changing
// input the reconciliation engine applied. Rows are never updated or
// deleted. The unique index on EventID doubles as the idempotency guard:
// a second delivery of the same provider event fails the insert and is
// treated as a duplicate, not an error.
type SubscriptionEvent struct {
	gorm.Model
	EventID    string         `json:"event_id" gorm:"uniqueIndex;not null"`
	BusinessID uint           `json:"business_id" gorm:"index"`
	Kind       string         `json:"kind" gorm:"not null"`
	Payload    datatypes.JSON `json:"payload"`
	ObservedAt time.Time      `json:"observed_at"`

	// İlişki
	Business Business `json:"-" gorm:"foreignKey:BusinessID"`
}

// NotificationRecord deduplicates renewal reminders. At most one row may
// exist per (business, horizon, calendar date); the composite unique index
// makes the check-and-insert atomic across overlapping scheduler runs.
// Derived data only, never authoritative.
type NotificationRecord struct {
	gorm.Model
	BusinessID  uint   `json:"business_id" gorm:"uniqueIndex:idx_notification_dedup"`
	HorizonDays int    `json:"horizon_days" gorm:"uniqueIndex:idx_notification_dedup"`
	SentOn      string `json:"sent_on" gorm:"uniqueIndex:idx_notification_dedup"` // calendar date, YYYY-MM-DD
	Kind        string `json:"kind" gorm:"not null"`
}
