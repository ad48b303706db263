package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	// UserID is the public identifier carried in tokens, audit rows and
	// food entry ownership. Stable across email changes.
	UserID   string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Email    string `gorm:"uniqueIndex;not null"`
	Password string `gorm:"not null"`
	FullName string
	Disabled bool
}
