package gormstore

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
	AutoMigrate     bool
}

// Open connects to the configured database and migrates the schema when asked.
// SQLite is pinned to one connection so ":memory:" databases stay shared and
// foreign keys stay enabled.
func Open(opts Options) (*gorm.DB, error) {
	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Warn
	}
	cfg := &gorm.Config{
		Logger:  logger.Default.LogMode(opts.LogLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverSQLite, "":
		dsn := opts.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("gormstore: unsupported driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("gormstore: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: sql handle: %w", err)
	}
	if opts.Driver == DriverSQLite || opts.Driver == "" {
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("gormstore: enable foreign keys: %w", err)
		}
	} else {
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	if opts.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&GroceryItemModel{},
		&RecipeModel{},
		&RecipeIngredientModel{},
		&MealPlanModel{},
	); err != nil {
		return fmt.Errorf("gormstore: migrate: %w", err)
	}
	return nil
}
