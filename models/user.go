package models

import (
	"time"
)

// User is a login account. Only active staff users may use the application.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Username           string    `gorm:"uniqueIndex;not null;size:150" json:"username"`
	FullName           string    `gorm:"size:200" json:"full_name"`
	PasswordHash       string    `gorm:"not null" json:"-"`
	IsStaff            bool      `gorm:"not null;default:false" json:"is_staff"`
	IsActive           bool      `gorm:"not null" json:"is_active"`
	MustChangePassword bool      `gorm:"not null;default:false" json:"must_change_password"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) CanSignIn() bool {
	return u.IsActive && u.IsStaff
}
