package repository

import (
	"context"
	"time"

	"lapublica_backend/internal/assignment/domain"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLeadByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ListUnassigned(ctx context.Context) ([]Lead, error)
	ListUnassignedNew(ctx context.Context) ([]Lead, error)
	ListByGestor(ctx context.Context, gestorID uuid.UUID) ([]Lead, error)
	CountActive(ctx context.Context) (int, error)
	CountUnassigned(ctx context.Context) (int, error)
	CountAssigned(ctx context.Context) (int, error)
}

// LeadAssigner performs the transactional assignment writes.
type LeadAssigner interface {
	Assign(ctx context.Context, p AssignParams) (Lead, error)
	AssignIfUnassigned(ctx context.Context, p AssignParams) (Lead, error)
	UnassignAllFromGestor(ctx context.Context, gestorID, actorID uuid.UUID) (int, error)
}

// GestorReader provides read access to gestors and their workload counts.
type GestorReader interface {
	GetGestorByID(ctx context.Context, id uuid.UUID) (domain.Gestor, error)
	ListActiveAssignable(ctx context.Context) ([]domain.Gestor, error)
	CountActiveLeadsByGestor(ctx context.Context) (map[uuid.UUID]int, error)
	CountCompaniesByGestor(ctx context.Context) (map[uuid.UUID]int, error)
}

// ActivityReader provides access to the assignment audit trail.
type ActivityReader interface {
	CountAssignmentsSince(ctx context.Context, since time.Time) (int, error)
}
