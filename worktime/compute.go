// Package worktime turns a shift's date, start and end time into worked hours.
package worktime

import (
	"time"

	"github.com/shopspring/decimal"

	"workhours/apperror"
)

const MaxShiftHours = 12

var (
	maxShift       = decimal.NewFromInt(MaxShiftHours)
	maxExtraHours  = decimal.RequireFromString("99.99")
	secondsPerHour = decimal.NewFromInt(3600)
)

// Result holds the derived hours of one work entry.
type Result struct {
	DurationHours decimal.Decimal
	TotalHours    decimal.Decimal
}

// Compute derives duration and total hours for a shift.
//
// An end time earlier than the start time is read as ending on the next
// calendar day. Equal times give a zero duration and are rejected. Duration
// is rounded half-up to two places, then the total is rounded again after
// adding extra, so the total may be off by 0.01 from the unrounded sum.
func Compute(date time.Time, start, end Clock, extra decimal.Decimal) (Result, error) {
	if date.IsZero() {
		return Result{}, apperror.Validation("date is required")
	}
	if !start.Valid() || !end.Valid() {
		return Result{}, apperror.Validation("start and end time are required")
	}
	if err := checkExtraHours(extra); err != nil {
		return Result{}, err
	}

	day := Day(date)
	startAt := day.Add(start.Duration())
	endAt := day.Add(end.Duration())
	if end.Before(start) {
		endAt = endAt.AddDate(0, 0, 1)
	}

	seconds := int64(endAt.Sub(startAt) / time.Second)
	duration := decimal.NewFromInt(seconds).DivRound(secondsPerHour, 2)

	if duration.GreaterThan(maxShift) {
		return Result{}, apperror.Validation(
			"Work duration cannot exceed %d hours per day. Current duration: %s hours",
			MaxShiftHours, duration.StringFixed(2))
	}
	if !duration.IsPositive() {
		return Result{}, apperror.Validation("End time must be after start time.")
	}

	return Result{
		DurationHours: duration,
		TotalHours:    duration.Add(extra).Round(2),
	}, nil
}

func checkExtraHours(extra decimal.Decimal) error {
	switch {
	case extra.IsNegative():
		return apperror.Validation("Extra hours cannot be negative.")
	case !exponentInRange(extra):
		return apperror.Validation("Extra hours must be a number between 0 and %s.", maxExtraHours.StringFixed(2))
	case !extra.Equal(extra.Truncate(2)):
		return apperror.Validation("Extra hours allow at most 2 decimal places.")
	case extra.GreaterThan(maxExtraHours):
		return apperror.Validation("Extra hours cannot exceed %s.", maxExtraHours.StringFixed(2))
	}
	return nil
}

// Day strips the clock from t, keeping its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
