package database

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/CrazyWorldPL/IVshop/internal/models"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStale is returned when a conditional write lost against a concurrent one.
	ErrStale = errors.New("record changed concurrently")
)

// Options selects and addresses the storage backend.
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file, ":memory:" for tests
	DSN    string // postgres connection string
}

// DB wraps the GORM database connection
type DB struct {
	*gorm.DB
	logger *slog.Logger
}

// New opens the database and migrates the schema.
func New(opts Options, log *slog.Logger) (*DB, error) {
	dialector, err := openDialector(opts)
	if err != nil {
		return nil, err
	}

	// Configure GORM logger to be quiet (we use slog instead)
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Driver != "postgres" {
		// SQLite serialises writers; one connection avoids "database is locked"
		// and keeps a :memory: database alive for the process lifetime.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("Database connection established", "driver", driverName(opts))

	if err := db.AutoMigrate(
		&models.Server{},
		&models.Product{},
		&models.PaymentOperator{},
		&models.Purchase{},
		&models.Voucher{},
		&models.NavbarLink{},
	); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate schemas: %w", err)
	}

	log.Info("Database schemas migrated successfully")

	return &DB{
		DB:     db,
		logger: log,
	}, nil
}

func openDialector(opts Options) (gorm.Dialector, error) {
	switch driverName(opts) {
	case "postgres":
		if opts.DSN == "" {
			return nil, errors.New("postgres driver requires a DSN")
		}
		return postgres.Open(opts.DSN), nil
	case "sqlite":
		if opts.Path != ":memory:" && !strings.HasPrefix(opts.Path, "file:") {
			if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		return sqlite.Open(opts.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
}

func driverName(opts Options) string {
	if opts.Driver == "" {
		return "sqlite"
	}
	return opts.Driver
}

// Close closes the database connection
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newID() string {
	return uuid.New().String()
}

// translate maps GORM errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
