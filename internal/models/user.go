package models

import (
	"time"
)

const (
	GroupUser  = "user"
	GroupAdmin = "admin"

	GuestUsername = "guest"
)

type User struct {
	ID               uint   `gorm:"primaryKey"`
	PublicID         string `gorm:"size:24;uniqueIndex;not null"`
	Username         string `gorm:"size:64;uniqueIndex;not null"`
	Email            string `gorm:"size:120;uniqueIndex;not null"`
	EmailConfirmedAt *time.Time
	PasswordHash     string `gorm:"size:512;not null"`
	Group            string `gorm:"size:100;index;not null"`
	Name             string `gorm:"size:100"`
	AboutMe          string `gorm:"size:200"`
	Points           *int
	Privacy          bool    `gorm:"default:false"`
	Token            *string `gorm:"size:128;uniqueIndex"`
	TokenExpiration  *time.Time
	LastSeen         time.Time `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (u *User) IsAdmin() bool { return u.Group == GroupAdmin }

func (u *User) IsGuest() bool { return u.Username == GuestUsername }
