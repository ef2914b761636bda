package domain

import "github.com/google/uuid"

// Gestor is an account manager eligible to own leads and companies.
type Gestor struct {
	ID       uuid.UUID
	Name     string
	Email    string
	Role     string
	IsActive bool
}
