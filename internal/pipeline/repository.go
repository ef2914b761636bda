package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when the board item does not exist.
var ErrNotFound = errors.New("not found")

// ActivityStageChange is the audit type recorded on board moves.
const ActivityStageChange = "STAGE_CHANGE"

// BoardLead is a lead card on the Kanban board.
type BoardLead struct {
	ID               uuid.UUID
	CompanyName      string
	ContactName      string
	EstimatedRevenue *float64
	Priority         string
	Status           string
	Stage            string
	AssignedToID     uuid.UUID
	UpdatedAt        time.Time
}

// BoardCompany is a client-company card on the Kanban board. Stage is empty
// for a company that has never been placed on the board.
type BoardCompany struct {
	ID        uuid.UUID
	Name      string
	Sector    string
	Stage     string
	GestorID  *uuid.UUID
	UpdatedAt time.Time
}

// Repository is the pgx-backed data access layer for the pipeline board.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const boardLeadColumns = `id, company_name, contact_name, estimated_revenue,
	priority, status, stage, assigned_to_id, updated_at`

// Only assigned leads occupy a board column: stage is set on first
// assignment and never before.
const listBoardLeadsQuery = `SELECT ` + boardLeadColumns + `
	FROM leads
	WHERE assigned_to_id = $1 AND stage IS NOT NULL AND status NOT IN ('WON', 'LOST')
	ORDER BY updated_at DESC`

const boardCompanyColumns = `id, name, sector, COALESCE(stage, ''), gestor_id, updated_at`

const listBoardCompaniesQuery = `SELECT ` + boardCompanyColumns + `
	FROM companies
	WHERE gestor_id = $1 AND stage IS NOT NULL
	ORDER BY updated_at DESC`

const getLeadForMoveQuery = `SELECT ` + boardLeadColumns + `
	FROM leads WHERE id = $1 FOR UPDATE`

const moveLeadQuery = `UPDATE leads
	SET stage = $2, status = COALESCE($3, status), updated_at = now()
	WHERE id = $1`

const getCompanyForMoveQuery = `SELECT ` + boardCompanyColumns + `
	FROM companies WHERE id = $1 FOR UPDATE`

const moveCompanyQuery = `UPDATE companies
	SET stage = $2, updated_at = now()
	WHERE id = $1`

// MoveLeadParams carries one board move for a lead. Status is optional; nil
// leaves the funnel status untouched.
type MoveLeadParams struct {
	LeadID      uuid.UUID
	Stage       string
	Status      *string
	ActorID     uuid.UUID
	Description string
}

// ListBoardLeads returns the gestor's active leads that occupy a column.
func (r *Repository) ListBoardLeads(ctx context.Context, gestorID uuid.UUID) ([]BoardLead, error) {
	rows, err := r.pool.Query(ctx, listBoardLeadsQuery, gestorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]BoardLead, 0)
	for rows.Next() {
		lead, err := scanBoardLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// ListBoardCompanies returns the gestor's client companies.
func (r *Repository) ListBoardCompanies(ctx context.Context, gestorID uuid.UUID) ([]BoardCompany, error) {
	rows, err := r.pool.Query(ctx, listBoardCompaniesQuery, gestorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := make([]BoardCompany, 0)
	for rows.Next() {
		company, err := scanBoardCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, company)
	}
	return companies, rows.Err()
}

// MoveLead overwrites the lead's stage (and optionally status) and appends
// the STAGE_CHANGE activity in the same transaction. Returns the lead as it
// was before the move so the caller can report the transition.
func (r *Repository) MoveLead(ctx context.Context, p MoveLeadParams) (BoardLead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return BoardLead{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := scanBoardLead(tx.QueryRow(ctx, getLeadForMoveQuery, p.LeadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BoardLead{}, ErrNotFound
		}
		return BoardLead{}, err
	}

	if _, err := tx.Exec(ctx, moveLeadQuery, p.LeadID, p.Stage, p.Status); err != nil {
		return BoardLead{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO lead_activities (lead_id, type, description, user_id)
		VALUES ($1, $2, $3, $4)`,
		p.LeadID, ActivityStageChange, p.Description, p.ActorID)
	if err != nil {
		return BoardLead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return BoardLead{}, err
	}
	return before, nil
}

// MoveCompany overwrites the company's stage. Returns the prior state.
func (r *Repository) MoveCompany(ctx context.Context, companyID uuid.UUID, stage string) (BoardCompany, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return BoardCompany{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	before, err := scanBoardCompany(tx.QueryRow(ctx, getCompanyForMoveQuery, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BoardCompany{}, ErrNotFound
		}
		return BoardCompany{}, err
	}

	if _, err := tx.Exec(ctx, moveCompanyQuery, companyID, stage); err != nil {
		return BoardCompany{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return BoardCompany{}, err
	}
	return before, nil
}

func scanBoardLead(row pgx.Row) (BoardLead, error) {
	var lead BoardLead
	err := row.Scan(
		&lead.ID, &lead.CompanyName, &lead.ContactName, &lead.EstimatedRevenue,
		&lead.Priority, &lead.Status, &lead.Stage, &lead.AssignedToID, &lead.UpdatedAt,
	)
	return lead, err
}

func scanBoardCompany(row pgx.Row) (BoardCompany, error) {
	var company BoardCompany
	err := row.Scan(
		&company.ID, &company.Name, &company.Sector, &company.Stage,
		&company.GestorID, &company.UpdatedAt,
	)
	return company, err
}
