package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jkindrix/pitchcheck/internal/database"
	"github.com/jkindrix/pitchcheck/internal/domain"
)

// MessageRepository implements domain.MessageRepository using PostgreSQL.
//
// Orders are assigned inside the INSERT as max(order)+1. Two appends racing
// for the same customer collide on the (customer_id, "order") primary key and
// the loser fails with DATABASE_ERROR; the sequence itself stays dense.
type MessageRepository struct {
	tm *database.TxManager
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(tm *database.TxManager) *MessageRepository {
	return &MessageRepository{tm: tm}
}

// Append stores msg at the next order for its customer.
func (r *MessageRepository) Append(ctx context.Context, msg *domain.Message) (int, error) {
	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO messages (` + MessageColumns.Select() + `)
		SELECT $1, COALESCE(MAX("order"), 0) + 1, $2, $3, $4, $5
		FROM messages
		WHERE customer_id = $1
		RETURNING "order"`

	var order int
	err := r.tm.GetQuerier(ctx).QueryRow(ctx, query,
		msg.CustomerID,
		string(msg.Speaker),
		msg.Text,
		msg.QuestionPosition,
		msg.CreatedAt,
	).Scan(&order)
	if err != nil {
		return 0, mapError("messages.Append", "customer", err)
	}

	msg.Order = order
	return order, nil
}

// ListByCustomer returns a customer's transcript ordered by order.
func (r *MessageRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*domain.Message, error) {
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + MessageColumns.Select() + ` FROM messages WHERE customer_id = $1 ORDER BY "order"`

	rows, err := r.tm.GetQuerier(ctx).Query(ctx, query, customerID)
	if err != nil {
		return nil, mapError("messages.ListByCustomer", "message", err)
	}
	messages, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, mapError("messages.ListByCustomer", "message", err)
	}
	return messages, nil
}

// NextOrder returns max(order)+1, or 1 for an empty transcript.
func (r *MessageRepository) NextOrder(ctx context.Context, customerID uuid.UUID) (int, error) {
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	var next int
	err := r.tm.GetQuerier(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX("order"), 0) + 1 FROM messages WHERE customer_id = $1`,
		customerID,
	).Scan(&next)
	if err != nil {
		return 0, mapError("messages.NextOrder", "message", err)
	}
	return next, nil
}

// ListByCompany returns the transcripts of all customers of a company,
// grouped by customer in creation order.
func (r *MessageRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Message, error) {
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	query := `
		SELECT ` + MessageColumns.SelectPrefixed() + `
		FROM messages
		JOIN customers ON customers.id = messages.customer_id
		WHERE customers.company_id = $1
		ORDER BY customers.created_at, customers.id, messages."order"`

	rows, err := r.tm.GetQuerier(ctx).Query(ctx, query, companyID)
	if err != nil {
		return nil, mapError("messages.ListByCompany", "message", err)
	}
	messages, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, mapError("messages.ListByCompany", "message", err)
	}
	return messages, nil
}

func scanMessage(row pgx.CollectableRow) (*domain.Message, error) {
	var (
		m       domain.Message
		speaker *string
	)
	if err := row.Scan(&m.CustomerID, &m.Order, &speaker, &m.Text, &m.QuestionPosition, &m.CreatedAt); err != nil {
		return nil, err
	}
	if speaker != nil {
		m.Speaker = domain.Speaker(*speaker)
	}
	m.Speaker = m.Author()
	return &m, nil
}
