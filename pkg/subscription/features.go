package subscription

import "fixmyspine_backend/internal/model"

type Feature string

const (
	PriorityPlacement Feature = "priority_placement"
	WebsiteLink       Feature = "website_link"
	PhoneDisplay      Feature = "phone_display"
	ExtendedProfile   Feature = "extended_profile"
	GalleryPhotos     Feature = "gallery_photos"
	EmailSupport      Feature = "email_support"
)

type TierLimits struct {
	MaxGalleryPhotos int
	AllowedFeatures  map[Feature]bool
}

var TierFeatures = map[model.ListingTier]TierLimits{
	model.TierFree: {
		MaxGalleryPhotos: 1,
		AllowedFeatures: map[Feature]bool{
			PriorityPlacement: false,
			WebsiteLink:       false,
			PhoneDisplay:      true,
			ExtendedProfile:   false,
			GalleryPhotos:     false,
			EmailSupport:      false,
		},
	},
	model.TierPremium: {
		MaxGalleryPhotos: 12,
		AllowedFeatures: map[Feature]bool{
			PriorityPlacement: true,
			WebsiteLink:       true,
			PhoneDisplay:      true,
			ExtendedProfile:   true,
			GalleryPhotos:     true,
			EmailSupport:      true,
		},
	},
}

// Helper functions
func CanUseFeature(tier model.ListingTier, feature Feature) bool {
	limits, exists := TierFeatures[tier]
	if !exists {
		return false
	}
	return limits.AllowedFeatures[feature]
}

func GetTierLimits(tier model.ListingTier) TierLimits {
	return TierFeatures[tier]
}
