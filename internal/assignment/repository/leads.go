package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyAssigned is returned by the conditional assignment path
	// when the lead was assigned between read and write (or is gone).
	ErrAlreadyAssigned = errors.New("lead already assigned")
)

// Activity types recorded on leads. Append-only.
const (
	ActivityAssignment   = "ASSIGNMENT"
	ActivityUnassignment = "UNASSIGNMENT"
)

// Lead is a prospective client company tracked through the sales pipeline.
type Lead struct {
	ID               uuid.UUID
	CompanyName      string
	ContactName      string
	EstimatedRevenue *float64
	CompanySize      *string
	Sector           string
	Priority         string
	Status           string
	Stage            *string
	AssignedToID     *uuid.UUID
	AssignedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AssignParams carries one assignment write: the lead, the target gestor,
// the stage derived from the gestor's role, and the acting user for the
// audit record.
type AssignParams struct {
	LeadID      uuid.UUID
	GestorID    uuid.UUID
	Stage       string
	ActorID     uuid.UUID
	Description string
}

// Repository is the pgx-backed data access layer for the assignment module.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates the repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, company_name, contact_name, estimated_revenue, company_size,
	sector, priority, status, stage, assigned_to_id, assigned_at, created_at, updated_at`

// Priority bands order URGENT first; within a band, oldest first. This is
// the tie-break policy for both manual and automatic assignment.
const priorityOrderClause = `ORDER BY CASE priority
		WHEN 'URGENT' THEN 4
		WHEN 'HIGH' THEN 3
		WHEN 'MEDIUM' THEN 2
		ELSE 1
	END DESC, created_at ASC`

const listUnassignedQuery = `SELECT ` + leadColumns + `
	FROM leads
	WHERE assigned_to_id IS NULL AND status NOT IN ('WON', 'LOST')
	` + priorityOrderClause

const listUnassignedNewQuery = `SELECT ` + leadColumns + `
	FROM leads
	WHERE assigned_to_id IS NULL AND status = 'NEW'
	` + priorityOrderClause

const listByGestorQuery = `SELECT ` + leadColumns + `
	FROM leads
	WHERE assigned_to_id = $1 AND status <> 'LOST'
	ORDER BY created_at DESC`

const assignQuery = `UPDATE leads
	SET assigned_to_id = $2, assigned_at = now(), stage = $3, updated_at = now()
	WHERE id = $1
	RETURNING ` + leadColumns

const assignIfUnassignedQuery = `UPDATE leads
	SET assigned_to_id = $2, assigned_at = now(), stage = $3, updated_at = now()
	WHERE id = $1 AND assigned_to_id IS NULL
	RETURNING ` + leadColumns

const unassignByGestorQuery = `UPDATE leads
	SET assigned_to_id = NULL, assigned_at = NULL, updated_at = now()
	WHERE assigned_to_id = $1 AND status NOT IN ('WON', 'LOST')
	RETURNING id, company_name`

const countActiveLeadsQuery = `SELECT COUNT(*) FROM leads WHERE status NOT IN ('WON', 'LOST')`

const countUnassignedLeadsQuery = `SELECT COUNT(*) FROM leads
	WHERE assigned_to_id IS NULL AND status NOT IN ('WON', 'LOST')`

const countAssignedLeadsQuery = `SELECT COUNT(*) FROM leads
	WHERE assigned_to_id IS NOT NULL AND status NOT IN ('WON', 'LOST')`

// GetLeadByID returns a single lead.
func (r *Repository) GetLeadByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ListUnassigned returns all non-terminal leads without an owner, highest
// priority first, oldest first within a band.
func (r *Repository) ListUnassigned(ctx context.Context) ([]Lead, error) {
	return r.queryLeads(ctx, listUnassignedQuery)
}

// ListUnassignedNew returns the auto-assignment candidates: unassigned
// leads still in status NEW.
func (r *Repository) ListUnassignedNew(ctx context.Context) ([]Lead, error) {
	return r.queryLeads(ctx, listUnassignedNewQuery)
}

// ListByGestor returns a gestor's leads, excluding LOST.
func (r *Repository) ListByGestor(ctx context.Context, gestorID uuid.UUID) ([]Lead, error) {
	return r.queryLeads(ctx, listByGestorQuery, gestorID)
}

// CountActive counts all non-terminal leads.
func (r *Repository) CountActive(ctx context.Context) (int, error) {
	return r.countQuery(ctx, countActiveLeadsQuery)
}

// CountUnassigned counts non-terminal leads without an owner.
func (r *Repository) CountUnassigned(ctx context.Context) (int, error) {
	return r.countQuery(ctx, countUnassignedLeadsQuery)
}

// CountAssigned counts non-terminal leads with an owner.
func (r *Repository) CountAssigned(ctx context.Context) (int, error) {
	return r.countQuery(ctx, countAssignedLeadsQuery)
}

// Assign sets the lead's owner, stamps assigned_at and the derived stage,
// and appends the ASSIGNMENT activity. Both writes share one transaction so
// a lead can never be reassigned without its audit record.
func (r *Repository) Assign(ctx context.Context, p AssignParams) (Lead, error) {
	return r.assign(ctx, assignQuery, p, ErrNotFound)
}

// AssignIfUnassigned is the race-safe variant used by automatic assignment:
// the update only applies while assigned_to_id is still NULL, so two
// concurrent runs cannot both claim the same lead.
func (r *Repository) AssignIfUnassigned(ctx context.Context, p AssignParams) (Lead, error) {
	return r.assign(ctx, assignIfUnassignedQuery, p, ErrAlreadyAssigned)
}

func (r *Repository) assign(ctx context.Context, query string, p AssignParams, noRowsErr error) (Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Lead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, query, p.LeadID, p.GestorID, p.Stage)
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, noRowsErr
		}
		return Lead{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO lead_activities (lead_id, type, description, user_id)
		VALUES ($1, $2, $3, $4)`,
		p.LeadID, ActivityAssignment, p.Description, p.ActorID)
	if err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// UnassignAllFromGestor clears the owner of every non-terminal lead held by
// the gestor, appending one UNASSIGNMENT activity per lead, all in one
// transaction. Returns the number of leads released.
func (r *Repository) UnassignAllFromGestor(ctx context.Context, gestorID, actorID uuid.UUID) (int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, unassignByGestorQuery, gestorID)
	if err != nil {
		return 0, err
	}

	type released struct {
		id          uuid.UUID
		companyName string
	}
	var releasedLeads []released
	for rows.Next() {
		var item released
		if err := rows.Scan(&item.id, &item.companyName); err != nil {
			rows.Close()
			return 0, err
		}
		releasedLeads = append(releasedLeads, item)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, item := range releasedLeads {
		_, err = tx.Exec(ctx, `INSERT INTO lead_activities (lead_id, type, description, user_id)
			VALUES ($1, $2, $3, $4)`,
			item.id, ActivityUnassignment, "Lead alliberat per redistribució: "+item.companyName, actorID)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(releasedLeads), nil
}

func (r *Repository) queryLeads(ctx context.Context, query string, args ...any) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) countQuery(ctx context.Context, query string, args ...any) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, query, args...).Scan(&count)
	return count, err
}

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.CompanyName, &lead.ContactName, &lead.EstimatedRevenue,
		&lead.CompanySize, &lead.Sector, &lead.Priority, &lead.Status, &lead.Stage,
		&lead.AssignedToID, &lead.AssignedAt, &lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}
