package model

import (
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Listing Tiers
type ListingTier string

const (
	TierFree    ListingTier = "free"
	TierPremium ListingTier = "premium"
)

// Subscription Status
type SubscriptionStatus string

const (
	SubscriptionNone      SubscriptionStatus = "none"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type Business struct {
	gorm.Model
	Name        string `json:"name" gorm:"not null"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:text"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`

	UserID uint `json:"user_id" gorm:"index"`

	// Location fields
	Address  string `json:"address"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	Postcode string `json:"postcode"`

	IsApproved bool `json:"is_approved" gorm:"default:false"`

	// Subscription fields. Only the reconciliation engine writes these;
	// everything else reads them through the ledger queries.
	ListingTier          ListingTier        `json:"listing_tier" gorm:"default:'free'"`
	SubscriptionStatus   SubscriptionStatus `json:"subscription_status" gorm:"default:'none'"`
	StripeSubscriptionID *string            `json:"stripe_subscription_id" gorm:"index"`
	SubscriptionEndsAt   *time.Time         `json:"subscription_ends_at"`

	// İlişkiler
	User User `json:"-" gorm:"foreignKey:UserID"`
}

func (b *Business) IsPremium() bool {
	return b.ListingTier == TierPremium
}

// HasSubscription reports whether the business is linked to a provider
// subscription.
func (b *Business) HasSubscription() bool {
	return b.StripeSubscriptionID != nil && *b.StripeSubscriptionID != ""
}

// BeforeCreate business oluşturulurken slug'ı otomatik oluşturur
func (b *Business) BeforeCreate(tx *gorm.DB) error {
	if b.Slug == "" {
		s := slug.Make(b.Name)

		// Slug'ın benzersiz olduğundan emin ol
		var count int64
		tx.Model(&Business{}).Where("slug = ?", s).Count(&count)
		if count > 0 {
			s = s + "-" + b.CreatedAt.Format("20060102")
		}

		b.Slug = s
	}
	return nil
}
