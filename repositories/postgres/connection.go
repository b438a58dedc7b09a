package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/grocerlink/commerce-router/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Provider performance aggregates, one row per provider
		CREATE TABLE IF NOT EXISTS provider_metrics (
			provider_id            VARCHAR(64) PRIMARY KEY,
			total_orders           BIGINT NOT NULL DEFAULT 0,
			successful_orders      BIGINT NOT NULL DEFAULT 0,
			failed_orders          BIGINT NOT NULL DEFAULT 0,
			cancelled_orders       BIGINT NOT NULL DEFAULT 0,
			total_gmv_cents        BIGINT NOT NULL DEFAULT 0,
			total_commission_cents BIGINT NOT NULL DEFAULT 0,
			success_rate           DOUBLE PRECISION,
			avg_margin_rate        DOUBLE PRECISION,
			last_order_at          TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		-- Append-only ledger of confirmation attempts and cancellations
		CREATE TABLE IF NOT EXISTS order_outcomes (
			id                UUID PRIMARY KEY,
			order_id          VARCHAR(255) NOT NULL,
			provider_id       VARCHAR(64) NOT NULL,
			outcome           VARCHAR(20) NOT NULL,
			total_value_cents BIGINT NOT NULL DEFAULT 0,
			commission_cents  BIGINT NOT NULL DEFAULT 0,
			failover_from     VARCHAR(64),
			error_code        VARCHAR(40),
			created_at        TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_order_outcomes_order_id ON order_outcomes(order_id);
		CREATE INDEX IF NOT EXISTS idx_order_outcomes_provider_created ON order_outcomes(provider_id, created_at);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
