package seed

import (
	"fixmyspine_backend/internal/model"
	"log"

	"gorm.io/gorm"
)

// SeedDemoData creates a demo practitioner and listings for local runs.
func SeedDemoData(db *gorm.DB) {
	user := model.User{
		Email:     "demo@fixmyspine.com.au",
		Name:      "Demo Practitioner",
		FirstName: "Demo",
		LastName:  "Practitioner",
	}
	if err := db.FirstOrCreate(&user, model.User{Email: user.Email}).Error; err != nil {
		log.Printf("Error creating demo user: %v", err)
		return
	}

	businesses := []model.Business{
		{
			Name:        "Sydney Spine Clinic",
			Description: "Chiropractic care in the Sydney CBD",
			Phone:       "02 9000 0001",
			Suburb:      "Sydney",
			State:       "NSW",
			Postcode:    "2000",
			UserID:      user.ID,
			IsApproved:  true,
		},
		{
			Name:        "Newtown Physio & Spine",
			Description: "Physiotherapy and spinal health",
			Phone:       "02 9000 0002",
			Suburb:      "Newtown",
			State:       "NSW",
			Postcode:    "2042",
			UserID:      user.ID,
			IsApproved:  true,
		},
	}

	for _, business := range businesses {
		result := db.FirstOrCreate(&business, model.Business{Name: business.Name})
		if result.Error != nil {
			log.Printf("Error creating business %s: %v", business.Name, result.Error)
		}
	}

	log.Println("Demo data seeded successfully!")
}
