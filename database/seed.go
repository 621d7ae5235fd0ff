package database

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"workhours/apperror"
	"workhours/models"
	"workhours/worktime"
)

var demoEmployees = []struct {
	Name     string
	Position string
}{
	{"Alice Johnson", "Engineer"},
	{"Bob Smith", "Designer"},
	{"Carol Lee", "Project Manager"},
}

// SeedReport counts what a demo seed run wrote.
type SeedReport struct {
	EmployeesCreated int
	EntriesCreated   int
	EntriesSkipped   int
}

// SeedDemo creates the demo employees and one entry per employee for each of
// the seven days before today. Entries go through CreateEntry like any other
// write; slots that already exist or fail validation are skipped.
func SeedDemo(ctx context.Context, store *Store, today time.Time, rnd *rand.Rand, log *zap.Logger) (SeedReport, error) {
	var report SeedReport

	employees := make([]*models.Employee, 0, len(demoEmployees))
	for _, d := range demoEmployees {
		e, created, err := store.FindOrCreateEmployee(ctx, d.Name, d.Position)
		if err != nil {
			return report, err
		}
		if created {
			report.EmployeesCreated++
		}
		employees = append(employees, e)
	}

	today = worktime.Day(today)
	for _, e := range employees {
		for daysAgo := 1; daysAgo <= 7; daysAgo++ {
			startHour := 8 + rnd.IntN(3)
			endHour := min(startHour+6+rnd.IntN(4), 23)

			entry := &models.WorkEntry{
				EmployeeID: e.ID,
				Date:       today.AddDate(0, 0, -daysAgo),
				StartTime:  worktime.NewClock(startHour, 0, 0),
				EndTime:    worktime.NewClock(endHour, 0, 0),
			}
			if err := store.CreateEntry(ctx, entry); err != nil {
				if apperror.KindOf(err) == 0 {
					return report, err
				}
				log.Debug("seed entry skipped",
					zap.String("employee", e.Name),
					zap.Time("date", entry.Date),
					zap.Error(err))
				report.EntriesSkipped++
				continue
			}
			report.EntriesCreated++
		}
	}

	return report, nil
}
