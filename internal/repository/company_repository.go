package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jkindrix/pitchcheck/internal/database"
	"github.com/jkindrix/pitchcheck/internal/domain"
	apperrors "github.com/jkindrix/pitchcheck/internal/errors"
)

// CompanyRepository implements domain.CompanyRepository using PostgreSQL.
type CompanyRepository struct {
	tm *database.TxManager
}

// NewCompanyRepository creates a new CompanyRepository. Queries join any
// transaction carried by the context.
func NewCompanyRepository(tm *database.TxManager) *CompanyRepository {
	return &CompanyRepository{tm: tm}
}

// Create inserts a new company.
func (r *CompanyRepository) Create(ctx context.Context, company *domain.Company) error {
	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	query := `INSERT INTO companies (` + CompanyColumns.Select() + `) VALUES (` + CompanyColumns.Placeholders() + `)`

	_, err := r.tm.GetQuerier(ctx).Exec(ctx, query,
		company.ID,
		company.Name,
		company.Email,
		company.Pitch,
		company.CreatedAt,
	)
	return mapError("companies.Create", "company", err)
}

// GetByID retrieves a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	ctx, cancel := WithQueryTimeout(ctx)
	defer cancel()

	query := `SELECT ` + CompanyColumns.Select() + ` FROM companies WHERE id = $1`

	var c domain.Company
	err := r.tm.GetQuerier(ctx).QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Pitch,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, mapError("companies.GetByID", "company", err)
	}
	return &c, nil
}

// List returns all companies ordered by name.
func (r *CompanyRepository) List(ctx context.Context) ([]*domain.CompanySummary, error) {
	ctx, cancel := WithListQueryTimeout(ctx)
	defer cancel()

	rows, err := r.tm.GetQuerier(ctx).Query(ctx, `SELECT id, name FROM companies ORDER BY name, id`)
	if err != nil {
		return nil, mapError("companies.List", "company", err)
	}

	companies, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.CompanySummary, error) {
		var s domain.CompanySummary
		err := row.Scan(&s.ID, &s.Name)
		return &s, err
	})
	if err != nil {
		return nil, mapError("companies.List", "company", err)
	}
	return companies, nil
}

// Delete removes a company and, by cascade, anything that references it.
func (r *CompanyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := WithWriteTimeout(ctx)
	defer cancel()

	tag, err := r.tm.GetQuerier(ctx).Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return mapError("companies.Delete", "company", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("company")
	}
	return nil
}
