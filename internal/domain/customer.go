package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is an interview participant. A customer belongs to exactly one
// company and is never modified after creation.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CompanyID uuid.UUID `json:"companyId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCustomer creates a Customer with a fresh identity.
func NewCustomer(name, email string, companyID uuid.UUID) *Customer {
	return &Customer{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		CompanyID: companyID,
		CreatedAt: time.Now().UTC(),
	}
}
