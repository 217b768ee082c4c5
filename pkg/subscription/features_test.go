package subscription

import (
	"testing"

	"fixmyspine_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCanUseFeature(t *testing.T) {
	assert.True(t, CanUseFeature(model.TierPremium, WebsiteLink))
	assert.True(t, CanUseFeature(model.TierPremium, PriorityPlacement))
	assert.False(t, CanUseFeature(model.TierFree, WebsiteLink))
	assert.True(t, CanUseFeature(model.TierFree, PhoneDisplay))
	assert.False(t, CanUseFeature(model.ListingTier("unknown"), PhoneDisplay))
}

func TestGetTierLimits(t *testing.T) {
	assert.Equal(t, 12, GetTierLimits(model.TierPremium).MaxGalleryPhotos)
	assert.Equal(t, 1, GetTierLimits(model.TierFree).MaxGalleryPhotos)
}
