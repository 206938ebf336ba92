package models

import (
	"time"
)

type User struct {
	Base
	Email        string    `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	FirstName    string    `gorm:"size:150;not null" json:"first_name"`
	LastName     string    `gorm:"size:150;not null" json:"last_name"`
	PasswordHash string    `gorm:"not null" json:"-"`
	IsSuperuser  bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"-"`
}
