// Package domain contains the core business entities and interfaces.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Company is a business and its pitch. It is created once together with its
// question set and never modified.
type Company struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Pitch     string    `json:"businessPitch"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewCompany creates a Company with a fresh identity.
func NewCompany(name, email, pitch string) *Company {
	return &Company{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Pitch:     pitch,
		CreatedAt: time.Now().UTC(),
	}
}

// CompanySummary is the directory view of a company.
type CompanySummary struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
