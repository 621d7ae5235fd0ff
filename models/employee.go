package models

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"workhours/apperror"
)

type Employee struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Name        string      `gorm:"not null;size:255;index" json:"name"`
	Position    string      `gorm:"size:255" json:"position"`
	WorkEntries []WorkEntry `gorm:"foreignKey:EmployeeID;constraint:OnDelete:CASCADE" json:"work_entries,omitempty"`
}

func (e *Employee) BeforeSave(tx *gorm.DB) error {
	e.Name = strings.TrimSpace(e.Name)
	e.Position = strings.TrimSpace(e.Position)
	if e.Name == "" {
		return apperror.Validation("Employee name is required.")
	}
	if len(e.Name) > 255 || len(e.Position) > 255 {
		return apperror.Validation("Employee name and position are limited to 255 characters.")
	}
	return nil
}
