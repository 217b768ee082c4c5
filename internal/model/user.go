package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email string `json:"email" gorm:"uniqueIndex;not null"`
	Name  string `json:"name" gorm:"not null"`

	// Opsiyonel profil bilgileri
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`

	IsAdmin bool `json:"is_admin" gorm:"default:false"`

	// İlişkiler
	Businesses []Business `json:"-"`
}

func (u *User) GetFullName() string {
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full == "" {
		return u.Name
	}
	return full
}
