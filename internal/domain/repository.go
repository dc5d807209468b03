package domain

import (
	"context"

	"github.com/google/uuid"
)

// CompanyRepository defines the interface for company persistence.
type CompanyRepository interface {
	// Create inserts a new company.
	Create(ctx context.Context, company *Company) error

	// GetByID retrieves a company by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Company, error)

	// List returns all companies ordered by name.
	List(ctx context.Context) ([]*CompanySummary, error)

	// Delete removes a company. Used only to compensate a failed creation.
	Delete(ctx context.Context, id uuid.UUID) error
}

// QuestionRepository defines the interface for question set persistence.
type QuestionRepository interface {
	// CreateBatch stores the texts at positions 1..N.
	CreateBatch(ctx context.Context, companyID uuid.UUID, texts []string) ([]*Question, error)

	// ListByCompany returns the question set ordered by position.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Question, error)
}

// CustomerRepository defines the interface for customer persistence.
type CustomerRepository interface {
	// Create inserts a new customer.
	Create(ctx context.Context, customer *Customer) error

	// GetByID retrieves a customer by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// ListByCompany returns the customers of a company ordered by creation.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Customer, error)
}

// MessageRepository defines the interface for the per-customer transcript log.
type MessageRepository interface {
	// Append stores msg at the next order for its customer and returns that order.
	// The assigned order is also written back to msg.Order.
	Append(ctx context.Context, msg *Message) (int, error)

	// ListByCustomer returns a customer's transcript ordered by order.
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Message, error)

	// NextOrder returns the order the next appended message would receive.
	NextOrder(ctx context.Context, customerID uuid.UUID) (int, error)

	// ListByCompany returns every transcript of a company's customers,
	// ordered by customer then order.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*Message, error)
}
