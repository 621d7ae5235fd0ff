package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"workhours/apperror"
	"workhours/models"
)

var ErrUnsupportedDatabase = errors.New("unsupported database url")

// Open connects to the database behind url. postgres:// and postgresql://
// URLs (or key=value DSNs) use PostgreSQL; sqlite://path, file: URIs and
// :memory: use SQLite with foreign keys enabled.
func Open(url string, sqlLogLevel string) (*gorm.DB, error) {
	dialector, err := Dialector(url)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(sqlLogLevel)),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dialector.Name() == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases alive for the lifetime of the pool.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func Dialector(url string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"), strings.Contains(url, "host="):
		return postgres.Open(url), nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqlite.Open(withForeignKeys(strings.TrimPrefix(url, "sqlite://"))), nil
	case strings.HasPrefix(url, "file:"), url == ":memory:":
		return sqlite.Open(withForeignKeys(url)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDatabase, url)
	}
}

func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + "?_foreign_keys=on"
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Employee{}, &models.WorkEntry{})
}

// NewStaffUser builds an active staff account with a bcrypt password hash.
func NewStaffUser(username, fullName, password string, mustChangePassword bool) (*models.User, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, fmt.Errorf("username must be at least 3 characters")
	}
	if len(password) < 5 {
		return nil, fmt.Errorf("password must be at least 5 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &models.User{
		Username:           username,
		FullName:           fullName,
		PasswordHash:       string(hashedPassword),
		IsStaff:            true,
		IsActive:           true,
		MustChangePassword: mustChangePassword,
	}, nil
}

// SeedDefaultAdmin creates the initial admin account unless a user with
// that name exists. The admin must change the password on first login.
func SeedDefaultAdmin(ctx context.Context, store *Store, username, password string, log *zap.Logger) error {
	_, err := store.FindUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !apperror.IsNotFound(err) {
		return err
	}

	admin, err := NewStaffUser(username, "Administrator", password, true)
	if err != nil {
		return err
	}
	if err := store.CreateUser(ctx, admin); err != nil {
		return err
	}

	log.Info("default admin user created", zap.String("username", username))
	return nil
}
