package repository

import (
	"context"
	"errors"

	"lapublica_backend/internal/assignment/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const gestorColumns = `id, name, email, role, is_active`

const listActiveAssignableQuery = `SELECT ` + gestorColumns + `
	FROM users
	WHERE is_active = TRUE AND role = ANY($1)
	ORDER BY name ASC`

const countActiveLeadsByGestorQuery = `SELECT assigned_to_id, COUNT(*)
	FROM leads
	WHERE assigned_to_id IS NOT NULL AND status NOT IN ('WON', 'LOST')
	GROUP BY assigned_to_id`

const countCompaniesByGestorQuery = `SELECT gestor_id, COUNT(*)
	FROM companies
	WHERE gestor_id IS NOT NULL
	GROUP BY gestor_id`

// GetGestorByID returns a single user as assignment target candidate.
func (r *Repository) GetGestorByID(ctx context.Context, id uuid.UUID) (domain.Gestor, error) {
	var gestor domain.Gestor
	err := r.pool.QueryRow(ctx, `SELECT `+gestorColumns+` FROM users WHERE id = $1`, id).Scan(
		&gestor.ID, &gestor.Name, &gestor.Email, &gestor.Role, &gestor.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Gestor{}, ErrNotFound
	}
	return gestor, err
}

// ListActiveAssignable returns all active users holding an assignable role,
// in name order. Name order is what makes the role-slot tie-break stable.
func (r *Repository) ListActiveAssignable(ctx context.Context) ([]domain.Gestor, error) {
	rows, err := r.pool.Query(ctx, listActiveAssignableQuery, domain.AssignableRoles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	gestors := make([]domain.Gestor, 0)
	for rows.Next() {
		var gestor domain.Gestor
		if err := rows.Scan(&gestor.ID, &gestor.Name, &gestor.Email, &gestor.Role, &gestor.IsActive); err != nil {
			return nil, err
		}
		gestors = append(gestors, gestor)
	}
	return gestors, rows.Err()
}

// CountActiveLeadsByGestor returns non-terminal lead counts keyed by owner.
func (r *Repository) CountActiveLeadsByGestor(ctx context.Context) (map[uuid.UUID]int, error) {
	return r.countsByID(ctx, countActiveLeadsByGestorQuery)
}

// CountCompaniesByGestor returns managed-company counts keyed by gestor.
func (r *Repository) CountCompaniesByGestor(ctx context.Context) (map[uuid.UUID]int, error) {
	return r.countsByID(ctx, countCompaniesByGestorQuery)
}

func (r *Repository) countsByID(ctx context.Context, query string) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}
