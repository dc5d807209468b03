package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jkindrix/pitchcheck/internal/database"
	"github.com/jkindrix/pitchcheck/internal/domain"
)

// CustomerRepository implements domain.CustomerRepository using PostgreSQL.
type CustomerRepository struct {
	tm *database.TxManager
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(tm *database.TxManager) *CustomerRepository {
	return &CustomerRepository{tm: tm}
}

// Create inserts a new customer. An unknown company yields NOT_FOUND.
func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	query := `INSERT INTO customers (` + CustomerColumns.Select() + `) VALUES (` + CustomerColumns.Placeholders() + `)`

	_, err := r.tm.GetQuerier(ctx).Exec(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.CompanyID,
		customer.CreatedAt,
	)
	return mapError("customers.Create", "company", err)
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + CustomerColumns.Select() + ` FROM customers WHERE id = $1`

	rows, err := r.tm.GetQuerier(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, mapError("customers.GetByID", "customer", err)
	}
	customer, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		return nil, mapError("customers.GetByID", "customer", err)
	}
	return customer, nil
}

// ListByCompany returns the customers of a company ordered by creation.
func (r *CustomerRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.Customer, error) {
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + CustomerColumns.Select() + ` FROM customers WHERE company_id = $1 ORDER BY created_at, id`

	rows, err := r.tm.GetQuerier(ctx).Query(ctx, query, companyID)
	if err != nil {
		return nil, mapError("customers.ListByCompany", "customer", err)
	}
	customers, err := pgx.CollectRows(rows, scanCustomer)
	if err != nil {
		return nil, mapError("customers.ListByCompany", "customer", err)
	}
	return customers, nil
}

func scanCustomer(row pgx.CollectableRow) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CompanyID, &c.CreatedAt)
	return &c, err
}
