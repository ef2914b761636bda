// Package service implements the lead assignment business logic: workload
// views, manual and bulk assignment, tier-based automatic assignment,
// portfolio redistribution and team statistics.
package service

import (
	"context"
	"errors"
	"math"
	"time"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/internal/assignment/repository"
	"lapublica_backend/internal/assignment/transport"
	"lapublica_backend/internal/events"
	"lapublica_backend/internal/pipeline"
	"lapublica_backend/platform/apperr"
	"lapublica_backend/platform/logger"

	"github.com/google/uuid"
)

// MaxLeadsPerGestor is the per-gestor capacity used by the load figures.
// Load percentages are derived from it and clamped to [0, 100].
const MaxLeadsPerGestor = 10

// Repository is the full data surface the service needs, composed from the
// segregated repository interfaces.
type Repository interface {
	repository.LeadReader
	repository.LeadAssigner
	repository.GestorReader
	repository.ActivityReader
}

// Service carries the assignment use cases.
type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates the assignment service.
func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// GetGestorsWithWorkload returns one gestor per role slot, annotated with
// active lead and company counts.
func (s *Service) GetGestorsWithWorkload(ctx context.Context, caller domain.CallerContext) ([]transport.GestorWorkload, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return nil, err
	}

	gestors, err := s.repo.ListActiveAssignable(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list gestors", err)
	}
	leadCounts, err := s.repo.CountActiveLeadsByGestor(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count leads", err)
	}
	companyCounts, err := s.repo.CountCompaniesByGestor(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to count companies", err)
	}

	slots := domain.NewRoleSlots(gestors)
	workloads := make([]transport.GestorWorkload, 0, slots.Len())
	for _, gestor := range slots.Gestors() {
		workloads = append(workloads, transport.GestorWorkload{
			ID:              gestor.ID,
			Name:            gestor.Name,
			Email:           gestor.Email,
			Role:            gestor.Role,
			ActiveLeads:     leadCounts[gestor.ID],
			ActiveCompanies: companyCounts[gestor.ID],
		})
	}
	return workloads, nil
}

// GetUnassignedLeads returns all unowned non-terminal leads, highest
// priority first.
func (s *Service) GetUnassignedLeads(ctx context.Context, caller domain.CallerContext) ([]transport.LeadResponse, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return nil, err
	}

	leads, err := s.repo.ListUnassigned(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list unassigned leads", err)
	}

	responses := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, transport.ToLeadResponse(lead))
	}
	return responses, nil
}

// AssignLeadToGestor assigns one lead to one gestor. The target must be an
// active user holding an assignable role; the lead's stage is derived from
// that role. The update and its audit record commit together.
func (s *Service) AssignLeadToGestor(ctx context.Context, caller domain.CallerContext, leadID, gestorID uuid.UUID) (transport.LeadResponse, error) {
	if err := domain.RequireRole(caller, domain.AssignRoles...); err != nil {
		return transport.LeadResponse{}, err
	}

	gestor, err := s.loadAssignableGestor(ctx, gestorID)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.assignOne(ctx, caller, leadID, gestor, false)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return transport.ToLeadResponseWithGestor(lead, gestor), nil
}

// BulkReassignLeads assigns a batch of leads to one gestor, sequentially.
// The batch is not atomic: each lead succeeds or fails on its own and the
// response reports both sets.
func (s *Service) BulkReassignLeads(ctx context.Context, caller domain.CallerContext, req transport.BulkReassignRequest) (transport.BulkReassignResponse, error) {
	if err := domain.RequireRole(caller, domain.AssignRoles...); err != nil {
		return transport.BulkReassignResponse{}, err
	}

	gestor, err := s.loadAssignableGestor(ctx, req.GestorID)
	if err != nil {
		return transport.BulkReassignResponse{}, err
	}

	result := transport.BulkReassignResponse{
		Updated: make([]transport.LeadResponse, 0, len(req.LeadIDs)),
		Failed:  make([]transport.BulkFailure, 0),
	}
	for _, leadID := range req.LeadIDs {
		lead, err := s.assignOne(ctx, caller, leadID, gestor, false)
		if err != nil {
			result.Failed = append(result.Failed, transport.BulkFailure{
				LeadID: leadID,
				Error:  err.Error(),
			})
			continue
		}
		result.Updated = append(result.Updated, transport.ToLeadResponseWithGestor(lead, gestor))
	}
	return result, nil
}

// AutoAssignLeads distributes every unassigned NEW lead across the active
// gestors: each lead is classified into a tier, matched to the eligible
// roles for that tier, and handed to the least loaded candidate.
func (s *Service) AutoAssignLeads(ctx context.Context, caller domain.CallerContext) (transport.AutoAssignResult, error) {
	if err := domain.RequireRole(caller, domain.AutoAssignRoles...); err != nil {
		return transport.AutoAssignResult{}, err
	}
	return s.autoAssign(ctx, caller)
}

// RedistributeFromGestor releases every non-terminal lead owned by the
// gestor and pushes the freed leads through automatic assignment. Leads the
// run cannot place stay unassigned.
func (s *Service) RedistributeFromGestor(ctx context.Context, caller domain.CallerContext, gestorID uuid.UUID) (transport.RedistributeResult, error) {
	if err := domain.RequireRole(caller, domain.AutoAssignRoles...); err != nil {
		return transport.RedistributeResult{}, err
	}

	if _, err := s.repo.GetGestorByID(ctx, gestorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.RedistributeResult{}, apperr.NotFound("gestor no trobat")
		}
		return transport.RedistributeResult{}, apperr.Wrap(apperr.KindInternal, "failed to load gestor", err)
	}

	released, err := s.repo.UnassignAllFromGestor(ctx, gestorID, caller.UserID)
	if err != nil {
		return transport.RedistributeResult{}, apperr.Wrap(apperr.KindInternal, "failed to release leads", err)
	}

	auto, err := s.autoAssign(ctx, caller)
	if err != nil {
		return transport.RedistributeResult{Redistributed: released}, err
	}

	s.bus.Publish(ctx, events.LeadsRedistributed{
		BaseEvent:     events.NewBaseEvent(),
		FromGestorID:  gestorID,
		Redistributed: released,
		Reassigned:    auto.Assigned,
		ActorID:       caller.UserID,
	})

	return transport.RedistributeResult{
		Redistributed: released,
		Assigned:      auto.Assigned,
		Total:         auto.Total,
	}, nil
}

// GetAssignmentStats returns the team dashboard figures. Team load is the
// assigned share of total capacity (active role slots times the per-gestor
// maximum), clamped to [0, 100].
func (s *Service) GetAssignmentStats(ctx context.Context, caller domain.CallerContext) (transport.AssignmentStats, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return transport.AssignmentStats{}, err
	}

	totalActive, err := s.repo.CountActive(ctx)
	if err != nil {
		return transport.AssignmentStats{}, apperr.Wrap(apperr.KindInternal, "failed to count leads", err)
	}
	unassigned, err := s.repo.CountUnassigned(ctx)
	if err != nil {
		return transport.AssignmentStats{}, apperr.Wrap(apperr.KindInternal, "failed to count leads", err)
	}
	assigned, err := s.repo.CountAssigned(ctx)
	if err != nil {
		return transport.AssignmentStats{}, apperr.Wrap(apperr.KindInternal, "failed to count leads", err)
	}
	gestors, err := s.repo.ListActiveAssignable(ctx)
	if err != nil {
		return transport.AssignmentStats{}, apperr.Wrap(apperr.KindInternal, "failed to list gestors", err)
	}

	activeGestors := domain.NewRoleSlots(gestors).Len()

	avg := 0.0
	if activeGestors > 0 {
		avg = math.Round(float64(assigned)/float64(activeGestors)*10) / 10
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	today, err := s.repo.CountAssignmentsSince(ctx, midnight)
	if err != nil {
		return transport.AssignmentStats{}, apperr.Wrap(apperr.KindInternal, "failed to count today's assignments", err)
	}

	return transport.AssignmentStats{
		TotalActiveLeads:  totalActive,
		UnassignedLeads:   unassigned,
		AssignedLeads:     assigned,
		ActiveGestors:     activeGestors,
		TeamLoadPercent:   loadPercent(assigned, activeGestors*MaxLeadsPerGestor),
		AvgLeadsPerGestor: avg,
		AssignmentsToday:  today,
	}, nil
}

// GetGestorsWithStats returns one gestor per role slot with their lead
// portfolio, won count, open pipeline revenue and individual load.
func (s *Service) GetGestorsWithStats(ctx context.Context, caller domain.CallerContext) ([]transport.GestorStats, error) {
	if err := domain.RequireCaller(caller); err != nil {
		return nil, err
	}

	gestors, err := s.repo.ListActiveAssignable(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list gestors", err)
	}

	slots := domain.NewRoleSlots(gestors)
	stats := make([]transport.GestorStats, 0, slots.Len())
	for _, gestor := range slots.Gestors() {
		leads, err := s.repo.ListByGestor(ctx, gestor.ID)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "failed to list gestor leads", err)
		}

		var active, won int
		var pipelineRevenue float64
		responses := make([]transport.LeadResponse, 0, len(leads))
		for _, lead := range leads {
			responses = append(responses, transport.ToLeadResponse(lead))
			if lead.Status == pipeline.StatusWon {
				won++
				continue
			}
			active++
			if lead.EstimatedRevenue != nil {
				pipelineRevenue += *lead.EstimatedRevenue
			}
		}

		stats = append(stats, transport.GestorStats{
			ID:              gestor.ID,
			Name:            gestor.Name,
			Email:           gestor.Email,
			Role:            gestor.Role,
			ActiveLeads:     active,
			WonLeads:        won,
			PipelineRevenue: pipelineRevenue,
			LoadPercent:     loadPercent(active, MaxLeadsPerGestor),
			Leads:           responses,
		})
	}
	return stats, nil
}

// autoAssign runs one distribution pass over the unassigned NEW leads. Each
// write is conditional on the lead still being unowned, so a concurrent run
// (or a manual assignment) racing this one simply wins that lead.
func (s *Service) autoAssign(ctx context.Context, caller domain.CallerContext) (transport.AutoAssignResult, error) {
	leads, err := s.repo.ListUnassignedNew(ctx)
	if err != nil {
		return transport.AutoAssignResult{}, apperr.Wrap(apperr.KindInternal, "failed to list candidate leads", err)
	}
	gestors, err := s.repo.ListActiveAssignable(ctx)
	if err != nil {
		return transport.AutoAssignResult{}, apperr.Wrap(apperr.KindInternal, "failed to list gestors", err)
	}
	counts, err := s.repo.CountActiveLeadsByGestor(ctx)
	if err != nil {
		return transport.AutoAssignResult{}, apperr.Wrap(apperr.KindInternal, "failed to count leads", err)
	}

	tally := domain.NewTally(counts)
	assigned := 0
	for _, lead := range leads {
		companySize := ""
		if lead.CompanySize != nil {
			companySize = *lead.CompanySize
		}
		tier := domain.ClassifyLead(companySize, lead.EstimatedRevenue)

		candidates := make([]domain.Gestor, 0, len(gestors))
		for _, gestor := range gestors {
			if domain.EligibleForTier(tier, gestor.Role) {
				candidates = append(candidates, gestor)
			}
		}

		target, ok := tally.LeastLoaded(candidates)
		if !ok {
			continue
		}

		_, err := s.repo.AssignIfUnassigned(ctx, repository.AssignParams{
			LeadID:      lead.ID,
			GestorID:    target.ID,
			Stage:       pipeline.DeriveStage(target.Role),
			ActorID:     caller.UserID,
			Description: "Assignació automàtica a " + target.Name,
		})
		if err != nil {
			if !errors.Is(err, repository.ErrAlreadyAssigned) {
				s.log.AssignmentEvent("auto_assign", lead.ID.String(), target.ID.String(), false, err.Error())
			}
			continue
		}

		tally.Increment(target.ID)
		assigned++
		s.publishAssigned(ctx, caller, lead.ID, lead.CompanyName, target)
	}

	return transport.AutoAssignResult{Assigned: assigned, Total: len(leads)}, nil
}

// assignOne performs a single assignment write plus the event publish.
// conditional selects the race-safe variant used by automatic assignment.
func (s *Service) assignOne(ctx context.Context, caller domain.CallerContext, leadID uuid.UUID, gestor domain.Gestor, conditional bool) (repository.Lead, error) {
	params := repository.AssignParams{
		LeadID:      leadID,
		GestorID:    gestor.ID,
		Stage:       pipeline.DeriveStage(gestor.Role),
		ActorID:     caller.UserID,
		Description: "Lead assignat a " + gestor.Name,
	}

	var lead repository.Lead
	var err error
	if conditional {
		lead, err = s.repo.AssignIfUnassigned(ctx, params)
	} else {
		lead, err = s.repo.Assign(ctx, params)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return repository.Lead{}, apperr.NotFound("lead no trobat")
		case errors.Is(err, repository.ErrAlreadyAssigned):
			return repository.Lead{}, apperr.Conflict("lead ja assignat")
		}
		s.log.AssignmentEvent("assign", leadID.String(), gestor.ID.String(), false, err.Error())
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to assign lead", err)
	}

	s.log.AssignmentEvent("assign", leadID.String(), gestor.ID.String(), true, "")
	s.publishAssigned(ctx, caller, lead.ID, lead.CompanyName, gestor)
	return lead, nil
}

func (s *Service) publishAssigned(ctx context.Context, caller domain.CallerContext, leadID uuid.UUID, companyName string, gestor domain.Gestor) {
	s.bus.Publish(ctx, events.LeadAssigned{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		CompanyName:  companyName,
		GestorID:     gestor.ID,
		GestorName:   gestor.Name,
		GestorEmail:  gestor.Email,
		AssignedByID: caller.UserID,
		Stage:        pipeline.DeriveStage(gestor.Role),
	})
}

func (s *Service) loadAssignableGestor(ctx context.Context, gestorID uuid.UUID) (domain.Gestor, error) {
	gestor, err := s.repo.GetGestorByID(ctx, gestorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Gestor{}, apperr.NotFound("gestor no trobat")
		}
		return domain.Gestor{}, apperr.Wrap(apperr.KindInternal, "failed to load gestor", err)
	}
	if !gestor.IsActive {
		return domain.Gestor{}, apperr.Validation("el gestor no està actiu")
	}
	if !domain.IsAssignableRole(gestor.Role) {
		return domain.Gestor{}, apperr.Validation("el rol del gestor no admet assignacions")
	}
	return gestor, nil
}

// loadPercent returns n as a percentage of capacity, rounded and clamped
// to [0, 100]. Zero capacity reads as zero load.
func loadPercent(n, capacity int) int {
	if capacity <= 0 {
		return 0
	}
	percent := int(math.Round(float64(n) / float64(capacity) * 100))
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
