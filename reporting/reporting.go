// Package reporting filters work entries and folds them into hour totals.
// The aggregation functions never filter or recompute: callers filter first,
// then aggregate whatever they hold.
package reporting

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"workhours/models"
	"workhours/worktime"
)

// EmployeeTotals is one row of a per-employee summary.
type EmployeeTotals struct {
	EmployeeID   uint
	EmployeeName string
	RegularHours decimal.Decimal
	ExtraHours   decimal.Decimal
	TotalHours   decimal.Decimal
}

// Totals is the grand total over a set of entries.
type Totals struct {
	RegularHours decimal.Decimal
	ExtraHours   decimal.Decimal
	TotalHours   decimal.Decimal
}

// FilterEntries returns the entries matching every set field of f, newest
// first. The input slice is not modified. database.Store.ListEntries is the
// SQL version of the same filter and must select the same entries.
func FilterEntries(entries []models.WorkEntry, f models.EntryFilter) []models.WorkEntry {
	out := make([]models.WorkEntry, 0, len(entries))
	for _, e := range entries {
		if Matches(e, f) {
			out = append(out, e)
		}
	}
	SortNewestFirst(out)
	return out
}

// Matches reports whether e satisfies f.
func Matches(e models.WorkEntry, f models.EntryFilter) bool {
	day := worktime.Day(e.Date)
	if f.EmployeeID != 0 && e.EmployeeID != f.EmployeeID {
		return false
	}
	if f.StartDate != nil && day.Before(worktime.Day(*f.StartDate)) {
		return false
	}
	if f.EndDate != nil && day.After(worktime.Day(*f.EndDate)) {
		return false
	}
	if f.Year != 0 && day.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(day.Month()) != f.Month {
		return false
	}
	return true
}

// SortNewestFirst orders entries by date, then start time, both descending.
// ID breaks the remaining ties so the order is stable across queries.
func SortNewestFirst(entries []models.WorkEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		da, db := worktime.Day(a.Date), worktime.Day(b.Date)
		if !da.Equal(db) {
			return da.After(db)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime > b.StartTime
		}
		return a.ID > b.ID
	})
}

// SumDurations adds up DurationHours. An empty input sums to zero.
func SumDurations(entries []models.WorkEntry) decimal.Decimal {
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.DurationHours)
	}
	return sum
}

// Sum returns the regular, extra and total hours of entries.
func Sum(entries []models.WorkEntry) Totals {
	t := Totals{RegularHours: decimal.Zero, ExtraHours: decimal.Zero, TotalHours: decimal.Zero}
	for _, e := range entries {
		t.RegularHours = t.RegularHours.Add(e.DurationHours)
		t.ExtraHours = t.ExtraHours.Add(e.ExtraHours)
		t.TotalHours = t.TotalHours.Add(e.TotalHours)
	}
	return t
}

// GroupTotalsByEmployee returns one row per employee present in entries,
// ordered by employee name. Entries are expected to carry their Employee.
func GroupTotalsByEmployee(entries []models.WorkEntry) []EmployeeTotals {
	index := make(map[uint]int)
	var rows []EmployeeTotals
	for _, e := range entries {
		i, ok := index[e.EmployeeID]
		if !ok {
			i = len(rows)
			index[e.EmployeeID] = i
			rows = append(rows, EmployeeTotals{
				EmployeeID:   e.EmployeeID,
				EmployeeName: e.Employee.Name,
				RegularHours: decimal.Zero,
				ExtraHours:   decimal.Zero,
				TotalHours:   decimal.Zero,
			})
		}
		row := &rows[i]
		row.RegularHours = row.RegularHours.Add(e.DurationHours)
		row.ExtraHours = row.ExtraHours.Add(e.ExtraHours)
		row.TotalHours = row.TotalHours.Add(e.TotalHours)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := strings.Compare(rows[i].EmployeeName, rows[j].EmployeeName); c != 0 {
			return c < 0
		}
		return rows[i].EmployeeID < rows[j].EmployeeID
	})
	return rows
}

// MonthFilter selects a single calendar month.
func MonthFilter(year int, month time.Month) models.EntryFilter {
	return models.EntryFilter{Year: year, Month: int(month)}
}

// YearFilter selects a calendar year.
func YearFilter(year int) models.EntryFilter {
	return models.EntryFilter{Year: year}
}
