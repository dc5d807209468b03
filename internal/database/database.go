// Package database owns the PostgreSQL pool, the schema migrations and the
// transaction plumbing the repositories share.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jkindrix/pitchcheck/internal/config"
)

// Pool tuning not exposed in configuration.
const (
	maxConnIdleTime   = 5 * time.Minute
	healthCheckPeriod = time.Minute
)

// DB is the open pool plus the transaction manager built on it.
type DB struct {
	Pool      *pgxpool.Pool
	TxManager *TxManager
	logger    *zap.Logger
}

// New connects to PostgreSQL and verifies the connection. A non-nil
// observer receives the timing of every query.
func New(ctx context.Context, cfg *config.DatabaseConfig, observer QueryObserver, logger *zap.Logger) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	pc.MaxConns = int32(cfg.MaxConnections)
	pc.MinConns = int32(cfg.MaxIdleConnections)
	pc.MaxConnLifetime = cfg.ConnectionMaxLifetime
	pc.MaxConnIdleTime = maxConnIdleTime
	pc.HealthCheckPeriod = healthCheckPeriod
	pc.ConnConfig.Tracer = NewQueryTracer(DefaultSlowQueryThreshold, observer, logger)

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info("connected to database",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", pc.MaxConns),
	)
	return &DB{Pool: pool, TxManager: NewTxManager(pool, logger), logger: logger}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() {
	if db.Pool == nil {
		return
	}
	db.Pool.Close()
	db.logger.Info("database pool closed")
}

// Ping checks the database for /health.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// PoolStats reports the connection counts exported as gauges.
func (db *DB) PoolStats() (acquired, idle, total int32) {
	s := db.Pool.Stat()
	return s.AcquiredConns(), s.IdleConns(), s.TotalConns()
}

// Migrate brings the schema up to date with the embedded migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return NewMigrator(db.Pool, db.logger).Up(ctx, Migrations, "migrations")
}
