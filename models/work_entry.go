package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"workhours/apperror"
	"workhours/worktime"
)

// WorkEntry is one shift of one employee. DurationHours and TotalHours are
// derived on every save and cannot be set by callers.
type WorkEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	EmployeeID    uint            `gorm:"not null;uniqueIndex:idx_work_entry_slot,priority:1" json:"employee_id"`
	Employee      Employee        `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
	Date          time.Time       `gorm:"not null;type:date;index;uniqueIndex:idx_work_entry_slot,priority:2" json:"date"`
	StartTime     worktime.Clock  `gorm:"not null;type:time;uniqueIndex:idx_work_entry_slot,priority:3" json:"start_time"`
	EndTime       worktime.Clock  `gorm:"not null;type:time;uniqueIndex:idx_work_entry_slot,priority:4" json:"end_time"`
	ExtraHours    decimal.Decimal `gorm:"not null;type:numeric(4,2);default:0" json:"extra_hours"`
	DurationHours decimal.Decimal `gorm:"not null;type:numeric(6,2);default:0" json:"duration_hours"`
	TotalHours    decimal.Decimal `gorm:"not null;type:numeric(6,2);default:0" json:"total_hours"`
}

// BeforeSave runs for both create and update, ahead of the unique index.
func (e *WorkEntry) BeforeSave(tx *gorm.DB) error {
	if e.EmployeeID == 0 {
		return apperror.Validation("Employee is required.")
	}
	return e.Recompute()
}

// Recompute normalises Date and refreshes the derived hour fields.
func (e *WorkEntry) Recompute() error {
	result, err := worktime.Compute(e.Date, e.StartTime, e.EndTime, e.ExtraHours)
	if err != nil {
		return err
	}
	e.Date = worktime.Day(e.Date)
	e.DurationHours = result.DurationHours
	e.TotalHours = result.TotalHours
	return nil
}

func (e *WorkEntry) String() string {
	return fmt.Sprintf("%s - %s (%sh)", e.Employee.Name, e.Date.Format(DateLayout), e.DurationHours.StringFixed(2))
}

// EntryFilter narrows a set of work entries. Zero fields do not constrain.
// Year and Month match the calendar components of Date and apply on top of
// StartDate/EndDate.
type EntryFilter struct {
	EmployeeID uint
	StartDate  *time.Time
	EndDate    *time.Time
	Year       int
	Month      int
}

func (f EntryFilter) IsZero() bool {
	return f.EmployeeID == 0 && f.StartDate == nil && f.EndDate == nil && f.Year == 0 && f.Month == 0
}

const DateLayout = "2006-01-02"
