package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"socialgraph/backend/internal/models"
)

// Options tunes the connection pool and the SQL logger.
type Options struct {
	MaxOpenConns  int
	MaxIdleTime   time.Duration
	SlowThreshold time.Duration
}

// Connect opens the postgres connection pool and verifies it with a ping.
func Connect(dsn string, opts Options, lg *slog.Logger) (*gorm.DB, error) {
	// Configure GORM logger
	customLogger := logger.New(
		slog.NewLogLogger(lg.Handler(), slog.LevelWarn), // io writer
		logger.Config{
			SlowThreshold:             opts.SlowThreshold, // Slow SQL threshold
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         customLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(opts.MaxIdleTime)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	lg.Info("Database connection established")
	return db, nil
}

// Migrate creates or updates the users, user_edges and user_events tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.UserEdge{}, &models.UserEvent{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
