package pipeline

import (
	"context"
	"errors"
	"time"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/internal/events"
	"lapublica_backend/platform/apperr"

	"github.com/google/uuid"
)

// BoardRepository is the data surface the board service needs.
type BoardRepository interface {
	ListBoardLeads(ctx context.Context, gestorID uuid.UUID) ([]BoardLead, error)
	ListBoardCompanies(ctx context.Context, gestorID uuid.UUID) ([]BoardCompany, error)
	MoveLead(ctx context.Context, p MoveLeadParams) (BoardLead, error)
	MoveCompany(ctx context.Context, companyID uuid.UUID, stage string) (BoardCompany, error)
}

// LeadCard is the board view of a lead.
type LeadCard struct {
	ID               uuid.UUID `json:"id"`
	CompanyName      string    `json:"companyName"`
	ContactName      string    `json:"contactName"`
	EstimatedRevenue *float64  `json:"estimatedRevenue,omitempty"`
	Priority         string    `json:"priority"`
	Status           string    `json:"status"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CompanyCard is the board view of a client company.
type CompanyCard struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeadColumn is one lead board column.
type LeadColumn struct {
	Stage string     `json:"stage"`
	Leads []LeadCard `json:"leads"`
}

// CompanyColumn is one company board column.
type CompanyColumn struct {
	Stage     string        `json:"stage"`
	Companies []CompanyCard `json:"companies"`
}

// Board is a gestor's full Kanban view.
type Board struct {
	LeadColumns    []LeadColumn    `json:"leadColumns"`
	CompanyColumns []CompanyColumn `json:"companyColumns"`
}

// MoveRequest moves one board item into another column. Status only applies
// to leads and is optional.
type MoveRequest struct {
	ItemType string    `json:"itemType" validate:"required,oneof=lead company"`
	ItemID   uuid.UUID `json:"itemId" validate:"required"`
	Stage    string    `json:"stage" validate:"required"`
	Status   *string   `json:"status,omitempty"`
}

// MoveResult reports a completed move. FunnelSkip flags a status change the
// funnel graph does not list; the move still applies.
type MoveResult struct {
	ItemType   string    `json:"itemType"`
	ItemID     uuid.UUID `json:"itemId"`
	OldStage   string    `json:"oldStage"`
	NewStage   string    `json:"newStage"`
	FunnelSkip bool      `json:"funnelSkip,omitempty"`
}

// Service carries the pipeline board use cases.
type Service struct {
	repo BoardRepository
	bus  events.Bus
}

// NewService creates the board service.
func NewService(repo BoardRepository, bus events.Bus) *Service {
	return &Service{repo: repo, bus: bus}
}

// GetBoard returns the caller's leads and companies grouped into the board
// columns. Every valid column is present, empty or not, in canonical order.
func (s *Service) GetBoard(ctx context.Context, caller domain.CallerContext) (Board, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return Board{}, err
	}

	leads, err := s.repo.ListBoardLeads(ctx, caller.UserID)
	if err != nil {
		return Board{}, apperr.Wrap(apperr.KindInternal, "failed to load board leads", err)
	}
	companies, err := s.repo.ListBoardCompanies(ctx, caller.UserID)
	if err != nil {
		return Board{}, apperr.Wrap(apperr.KindInternal, "failed to load board companies", err)
	}

	board := Board{
		LeadColumns:    make([]LeadColumn, 0, len(leadStages)),
		CompanyColumns: make([]CompanyColumn, 0, len(companyStages)),
	}
	for _, stage := range leadStages {
		column := LeadColumn{Stage: stage, Leads: make([]LeadCard, 0)}
		for _, lead := range leads {
			if lead.Stage != stage {
				continue
			}
			column.Leads = append(column.Leads, LeadCard{
				ID:               lead.ID,
				CompanyName:      lead.CompanyName,
				ContactName:      lead.ContactName,
				EstimatedRevenue: lead.EstimatedRevenue,
				Priority:         lead.Priority,
				Status:           lead.Status,
				UpdatedAt:        lead.UpdatedAt,
			})
		}
		board.LeadColumns = append(board.LeadColumns, column)
	}
	for _, stage := range companyStages {
		column := CompanyColumn{Stage: stage, Companies: make([]CompanyCard, 0)}
		for _, company := range companies {
			if company.Stage != stage {
				continue
			}
			column.Companies = append(column.Companies, CompanyCard{
				ID:        company.ID,
				Name:      company.Name,
				Sector:    company.Sector,
				UpdatedAt: company.UpdatedAt,
			})
		}
		board.CompanyColumns = append(board.CompanyColumns, column)
	}
	return board, nil
}

// Move drags a board item into another column. The target stage must belong
// to the item type's column set; a lead move may also overwrite the funnel
// status. Status transitions outside the funnel graph are flagged, not
// rejected.
func (s *Service) Move(ctx context.Context, caller domain.CallerContext, req MoveRequest) (MoveResult, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return MoveResult{}, err
	}
	if !IsValidStage(req.ItemType, req.Stage) {
		return MoveResult{}, apperr.Validation("etapa desconeguda per a aquest tipus d'element")
	}

	switch req.ItemType {
	case ItemTypeLead:
		return s.moveLead(ctx, caller, req)
	case ItemTypeCompany:
		return s.moveCompany(ctx, caller, req)
	default:
		return MoveResult{}, apperr.Validation("tipus d'element desconegut")
	}
}

func (s *Service) moveLead(ctx context.Context, caller domain.CallerContext, req MoveRequest) (MoveResult, error) {
	if req.Status != nil && !IsKnownStatus(*req.Status) {
		return MoveResult{}, apperr.Validation("estat desconegut")
	}

	before, err := s.repo.MoveLead(ctx, MoveLeadParams{
		LeadID:      req.ItemID,
		Stage:       req.Stage,
		Status:      req.Status,
		ActorID:     caller.UserID,
		Description: "Etapa canviada a " + req.Stage,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MoveResult{}, apperr.NotFound("lead no trobat")
		}
		return MoveResult{}, apperr.Wrap(apperr.KindInternal, "failed to move lead", err)
	}

	funnelSkip := false
	if req.Status != nil && *req.Status != before.Status {
		funnelSkip = !CanTransition(before.Status, *req.Status)
	}

	s.bus.Publish(ctx, events.StageMoved{
		BaseEvent: events.NewBaseEvent(),
		ItemType:  ItemTypeLead,
		ItemID:    req.ItemID,
		OldStage:  before.Stage,
		NewStage:  req.Stage,
		ActorID:   caller.UserID,
	})

	return MoveResult{
		ItemType:   ItemTypeLead,
		ItemID:     req.ItemID,
		OldStage:   before.Stage,
		NewStage:   req.Stage,
		FunnelSkip: funnelSkip,
	}, nil
}

func (s *Service) moveCompany(ctx context.Context, caller domain.CallerContext, req MoveRequest) (MoveResult, error) {
	before, err := s.repo.MoveCompany(ctx, req.ItemID, req.Stage)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MoveResult{}, apperr.NotFound("empresa no trobada")
		}
		return MoveResult{}, apperr.Wrap(apperr.KindInternal, "failed to move company", err)
	}

	s.bus.Publish(ctx, events.StageMoved{
		BaseEvent: events.NewBaseEvent(),
		ItemType:  ItemTypeCompany,
		ItemID:    req.ItemID,
		OldStage:  before.Stage,
		NewStage:  req.Stage,
		ActorID:   caller.UserID,
	})

	return MoveResult{
		ItemType: ItemTypeCompany,
		ItemID:   req.ItemID,
		OldStage: before.Stage,
		NewStage: req.Stage,
	}, nil
}
