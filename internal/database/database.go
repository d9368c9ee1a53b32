// Package database handles database connections and migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"atelier/internal/config"
	"atelier/internal/middleware"
	"atelier/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB is the process-wide database handle set by Connect.
var DB *gorm.DB

// slogGormLogger bridges GORM's logger interface onto the application's
// structured logger so SQL diagnostics carry request correlation fields.
type slogGormLogger struct {
	logger        *slog.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

func (l *slogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *slogGormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, args...))
	}
}

// Trace logs failed and slow queries. ErrRecordNotFound is routine control
// flow in the repositories and is never logged.
func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	attrs := []any{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		l.logger.ErrorContext(ctx, "query failed", append(attrs, slog.String("error", err.Error()))...)
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= logger.Warn:
		l.logger.WarnContext(ctx, "slow query", attrs...)
	case l.level >= logger.Info:
		l.logger.InfoContext(ctx, "query", attrs...)
	}
}

// Migrate runs AutoMigrate for every model plus the manual indexes GORM
// cannot express. Exposed so tests can migrate an in-memory database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Inventory{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Conversation{},
		&models.Message{},
		&models.Address{},
		&models.PaymentInstrument{},
		&models.NotificationPreference{},
		&models.ProfileSetting{},
		&models.Event{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Partial unique indexes backing idempotent conversation creation.
	// One support thread per user, one thread per (user, order).
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_support_user ON conversations (user_id) WHERE is_support",
	).Error; err != nil {
		return fmt.Errorf("failed to create support conversation index: %w", err)
	}
	if err := db.Exec(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_user_order ON conversations (user_id, order_id) WHERE order_id IS NOT NULL",
	).Error; err != nil {
		return fmt.Errorf("failed to create order conversation index: %w", err)
	}

	return nil
}

func buildDSN(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode)
}

// Connect opens the Postgres connection, tunes the pool and, outside
// production, runs migrations.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	gormLogger := &slogGormLogger{
		logger:        middleware.Logger,
		level:         logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}

	db, err := gorm.Open(postgres.Open(buildDSN(cfg)), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	middleware.Logger.Info("database connected", slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))

	if cfg.Env != "production" && cfg.Env != "prod" {
		// AutoMigrate stays on outside production for developer ergonomics.
		// Production schema changes ship as reviewed migrations.
		if err := Migrate(db); err != nil {
			return nil, err
		}
		middleware.Logger.Info("database migration completed")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	DB = db
	return db, nil
}
