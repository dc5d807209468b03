package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Migrations holds the forward-only schema migrations.
//
//go:embed migrations/*.up.sql
var Migrations embed.FS

// migrationLockID serializes migrations across replicas starting together.
const migrationLockID = 0x70697463

type migration struct {
	version int
	file    string
}

// loadMigrations lists the NNN_name.up.sql files of dir ordered by version.
// Files without a numeric prefix are ignored.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		if v := extractVersion(entry.Name()); v > 0 {
			out = append(out, migration{version: v, file: entry.Name()})
		}
	}
	slices.SortFunc(out, func(a, b migration) int { return a.version - b.version })
	return out, nil
}

// extractVersion parses NNN from NNN_description.up.sql; 0 means invalid.
func extractVersion(filename string) int {
	prefix, _, ok := strings.Cut(filename, "_")
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0
	}
	return v
}

// Migrator applies schema migrations and records them in schema_migrations.
type Migrator struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewMigrator creates a Migrator.
func NewMigrator(pool *pgxpool.Pool, logger *zap.Logger) *Migrator {
	return &Migrator{pool: pool, logger: logger}
}

// Up applies every migration in dir of fsys that is not yet recorded. Each
// migration runs in its own transaction under an advisory lock.
func (m *Migrator) Up(ctx context.Context, fsys fs.FS, dir string) error {
	all, err := loadMigrations(fsys, dir)
	if err != nil {
		return err
	}

	if _, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		filename   TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied := 0
	for _, mig := range all {
		sql, err := fs.ReadFile(fsys, path.Join(dir, mig.file))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", mig.file, err)
		}

		ran := false
		err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
				return err
			}
			var done bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, mig.version).Scan(&done); err != nil || done {
				return err
			}
			if _, err := tx.Exec(ctx, string(sql)); err != nil {
				return err
			}
			ran = true
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, filename) VALUES ($1, $2)`, mig.version, mig.file)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", mig.file, err)
		}
		if ran {
			applied++
			m.logger.Info("applied migration", zap.String("file", mig.file), zap.Int("version", mig.version))
		}
	}

	m.logger.Info("schema up to date", zap.Int("applied", applied), zap.Int("known", len(all)))
	return nil
}
