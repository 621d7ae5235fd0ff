package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workhours/apperror"
	"workhours/models"
	"workhours/worktime"
)

const msgDuplicateEntry = "An entry for this employee, date and time range already exists."

// Store is the persistence layer for employees, work entries and users.
// Uniqueness of (employee, date, start, end) is enforced by the database.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Employees

func (s *Store) CreateEmployee(ctx context.Context, e *models.Employee) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error
	return translateError(err, "Employee not found.", "An employee with this id already exists.")
}

func (s *Store) UpdateEmployee(ctx context.Context, e *models.Employee) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Employee
		if err := tx.First(&existing, e.ID).Error; err != nil {
			return translateError(err, "Employee not found.", "")
		}
		e.CreatedAt = existing.CreatedAt
		return translateError(tx.Omit(clause.Associations).Save(e).Error, "Employee not found.", "")
	})
}

func (s *Store) GetEmployee(ctx context.Context, id uint) (*models.Employee, error) {
	var e models.Employee
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, translateError(err, "Employee not found.", "")
	}
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	var employees []models.Employee
	err := s.db.WithContext(ctx).Order("name asc, id asc").Find(&employees).Error
	return employees, err
}

// FindOrCreateEmployee returns the employee with the given name, creating it
// with position when missing. The bool reports whether it was created.
func (s *Store) FindOrCreateEmployee(ctx context.Context, name, position string) (*models.Employee, bool, error) {
	var e models.Employee
	err := s.db.WithContext(ctx).Where("name = ?", name).Order("id asc").First(&e).Error
	if err == nil {
		return &e, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	e = models.Employee{Name: name, Position: position}
	if err := s.CreateEmployee(ctx, &e); err != nil {
		return nil, false, err
	}
	return &e, true, nil
}

// DeleteEmployee removes the employee and all of its work entries.
func (s *Store) DeleteEmployee(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", id).Delete(&models.WorkEntry{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Employee{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("Employee not found.")
		}
		return nil
	})
}

// Work entries

// CreateEntry stores a new entry. Derived hours are computed by the model's
// save hook before the insert reaches the unique index.
func (s *Store) CreateEntry(ctx context.Context, e *models.WorkEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireEmployee(tx, e.EmployeeID); err != nil {
			return err
		}
		err := tx.Omit(clause.Associations).Create(e).Error
		return translateError(err, "Work entry not found.", msgDuplicateEntry)
	})
}

// UpdateEntry overwrites an existing entry and recomputes its derived hours.
func (s *Store) UpdateEntry(ctx context.Context, e *models.WorkEntry) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.WorkEntry
		if err := tx.First(&existing, e.ID).Error; err != nil {
			return translateError(err, "Work entry not found.", "")
		}
		if err := requireEmployee(tx, e.EmployeeID); err != nil {
			return err
		}
		e.CreatedAt = existing.CreatedAt
		err := tx.Omit(clause.Associations).Save(e).Error
		return translateError(err, "Work entry not found.", msgDuplicateEntry)
	})
}

func (s *Store) GetEntry(ctx context.Context, id uint) (*models.WorkEntry, error) {
	var e models.WorkEntry
	if err := s.db.WithContext(ctx).Preload("Employee").First(&e, id).Error; err != nil {
		return nil, translateError(err, "Work entry not found.", "")
	}
	return &e, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.WorkEntry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("Work entry not found.")
	}
	return nil
}

// ListEntries returns entries matching f, newest first, with their
// employee loaded. A limit of zero or less returns every match.
func (s *Store) ListEntries(ctx context.Context, f models.EntryFilter, limit int) ([]models.WorkEntry, error) {
	q := s.filteredEntries(ctx, f).
		Preload("Employee").
		Order("work_entries.date desc, work_entries.start_time desc, work_entries.id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var entries []models.WorkEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// EntrySummary is the count and regular-hours sum of a filtered entry set.
type EntrySummary struct {
	Count         int64
	DurationHours decimal.Decimal
}

// SummarizeEntries counts the entries matching f and sums their duration
// without loading them.
func (s *Store) SummarizeEntries(ctx context.Context, f models.EntryFilter) (EntrySummary, error) {
	var row struct {
		Count int64
		Total decimal.Decimal
	}
	err := s.filteredEntries(ctx, f).
		Select("COUNT(*) AS count, COALESCE(SUM(work_entries.duration_hours), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return EntrySummary{}, err
	}
	// SQLite sums numeric columns as floats.
	return EntrySummary{Count: row.Count, DurationHours: row.Total.Round(2)}, nil
}

func (s *Store) filteredEntries(ctx context.Context, f models.EntryFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.WorkEntry{})

	if f.EmployeeID != 0 {
		q = q.Where("work_entries.employee_id = ?", f.EmployeeID)
	}
	if f.StartDate != nil {
		q = q.Where("work_entries.date >= ?", worktime.Day(*f.StartDate))
	}
	if f.EndDate != nil {
		q = q.Where("work_entries.date <= ?", worktime.Day(*f.EndDate))
	}

	switch {
	case f.Year != 0 && f.Month != 0:
		from := time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("work_entries.date >= ? AND work_entries.date < ?", from, from.AddDate(0, 1, 0))
	case f.Year != 0:
		from := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("work_entries.date >= ? AND work_entries.date < ?", from, from.AddDate(1, 0, 0))
	case f.Month != 0:
		// Only month specified - filter by month across all years
		q = q.Where(s.monthExpr()+" = ?", f.Month)
	}
	return q
}

func (s *Store) monthExpr() string {
	if s.db.Dialector.Name() == "sqlite" {
		return "CAST(strftime('%m', work_entries.date) AS INTEGER)"
	}
	return "EXTRACT(MONTH FROM work_entries.date)"
}

// Users

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	return translateError(err, "User not found.", "Username already exists.")
}

func (s *Store) SaveUser(ctx context.Context, u *models.User) error {
	err := s.db.WithContext(ctx).Save(u).Error
	return translateError(err, "User not found.", "Username already exists.")
}

func (s *Store) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, translateError(err, "User not found.", "")
	}
	return &u, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translateError(err, "User not found.", "")
	}
	return &u, nil
}

func requireEmployee(tx *gorm.DB, id uint) error {
	if id == 0 {
		return apperror.Validation("Employee is required.")
	}
	var count int64
	if err := tx.Model(&models.Employee{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperror.NotFound("Employee not found.")
	}
	return nil
}

// translateError maps gorm and driver errors onto the application's error
// kinds. Errors that already carry a kind pass through unchanged.
func translateError(err error, notFound, duplicate string) error {
	switch {
	case err == nil:
		return nil
	case apperror.KindOf(err) != 0:
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(notFound)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apperror.NotFound("Employee not found.")
	case duplicate != "" && (errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err)):
		return apperror.Conflict(duplicate, err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "SQLSTATE 23505")
}
