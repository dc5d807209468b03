// Package repository implements data persistence using PostgreSQL.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jkindrix/pitchcheck/internal/database"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// Default query timeouts.
const (
	// DefaultQueryTimeout is the timeout for single-row reads.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultListQueryTimeout is the timeout for list queries.
	DefaultListQueryTimeout = 10 * time.Second

	// DefaultWriteTimeout is the timeout for INSERT and DELETE.
	DefaultWriteTimeout = 10 * time.Second
)

// WithQueryTimeout returns a context with the default query timeout.
// If the context already has a deadline shorter than the timeout, the original context is returned.
func WithQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultQueryTimeout)
}

// WithListQueryTimeout returns a context with the default list query timeout.
func WithListQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultListQueryTimeout)
}

// WithWriteTimeout returns a context with the default write timeout.
func WithWriteTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return withTimeout(ctx, DefaultWriteTimeout)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < timeout {
			return ctx, func() {}
		}
	}
	return context.WithTimeout(ctx, timeout)
}

// mapError converts a pgx error into the application taxonomy. resource names
// the entity for not-found errors.
func mapError(op, resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return apperrors.NotFound(resource)
	case database.IsUniqueViolation(err):
		return apperrors.Wrap(err, op, apperrors.CodeDatabase, "duplicate record")
	case database.IsForeignKeyViolation(err):
		return apperrors.Wrap(err, op, apperrors.CodeNotFound, "referenced record does not exist")
	default:
		return apperrors.DatabaseError(op, err)
	}
}
