// Package transport defines the request/response shapes of the assignment API.
package transport

import (
	"time"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/internal/assignment/repository"

	"github.com/google/uuid"
)

// LeadResponse is the API view of a lead.
type LeadResponse struct {
	ID               uuid.UUID  `json:"id"`
	CompanyName      string     `json:"companyName"`
	ContactName      string     `json:"contactName"`
	EstimatedRevenue *float64   `json:"estimatedRevenue,omitempty"`
	CompanySize      *string    `json:"companySize,omitempty"`
	Sector           string     `json:"sector"`
	Priority         string     `json:"priority"`
	Status           string     `json:"status"`
	Stage            *string    `json:"stage,omitempty"`
	AssignedToID     *uuid.UUID `json:"assignedToId,omitempty"`
	AssignedToName   *string    `json:"assignedToName,omitempty"`
	AssignedToEmail  *string    `json:"assignedToEmail,omitempty"`
	AssignedAt       *time.Time `json:"assignedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// GestorWorkload annotates a gestor with derived workload counts.
type GestorWorkload struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	ActiveLeads     int       `json:"activeLeads"`
	ActiveCompanies int       `json:"activeCompanies"`
}

// AssignLeadRequest assigns one lead to one gestor.
type AssignLeadRequest struct {
	GestorID uuid.UUID `json:"gestorId" validate:"required"`
}

// BulkReassignRequest reassigns a batch of leads to one gestor.
type BulkReassignRequest struct {
	LeadIDs  []uuid.UUID `json:"leadIds" validate:"required,min=1"`
	GestorID uuid.UUID   `json:"gestorId" validate:"required"`
}

// BulkFailure reports one failed item of a bulk operation.
type BulkFailure struct {
	LeadID uuid.UUID `json:"leadId"`
	Error  string    `json:"error"`
}

// BulkReassignResponse reports per-lead outcomes. The batch is sequential
// and not atomic: updated and failed can both be non-empty.
type BulkReassignResponse struct {
	Updated []LeadResponse `json:"updated"`
	Failed  []BulkFailure  `json:"failed"`
}

// AutoAssignResult counts the outcome of one auto-assignment run.
type AutoAssignResult struct {
	Assigned int `json:"assigned"`
	Total    int `json:"total"`
}

// RedistributeResult reports a portfolio redistribution.
type RedistributeResult struct {
	Redistributed int `json:"redistributed"`
	Assigned      int `json:"assigned"`
	Total         int `json:"total"`
}

// AssignmentStats is the team-level dashboard view.
type AssignmentStats struct {
	TotalActiveLeads  int     `json:"totalActiveLeads"`
	UnassignedLeads   int     `json:"unassignedLeads"`
	AssignedLeads     int     `json:"assignedLeads"`
	ActiveGestors     int     `json:"activeGestors"`
	TeamLoadPercent   int     `json:"teamLoadPercent"`
	AvgLeadsPerGestor float64 `json:"avgLeadsPerGestor"`
	AssignmentsToday  int     `json:"assignmentsToday"`
}

// GestorStats is the per-gestor detail view.
type GestorStats struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	Role            string         `json:"role"`
	ActiveLeads     int            `json:"activeLeads"`
	WonLeads        int            `json:"wonLeads"`
	PipelineRevenue float64        `json:"pipelineRevenue"`
	LoadPercent     int            `json:"loadPercent"`
	Leads           []LeadResponse `json:"leads"`
}

// ToLeadResponse maps a stored lead to its API shape.
func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:               lead.ID,
		CompanyName:      lead.CompanyName,
		ContactName:      lead.ContactName,
		EstimatedRevenue: lead.EstimatedRevenue,
		CompanySize:      lead.CompanySize,
		Sector:           lead.Sector,
		Priority:         lead.Priority,
		Status:           lead.Status,
		Stage:            lead.Stage,
		AssignedToID:     lead.AssignedToID,
		AssignedAt:       lead.AssignedAt,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

// ToLeadResponseWithGestor maps a lead and fills in the owner's name/email.
func ToLeadResponseWithGestor(lead repository.Lead, gestor domain.Gestor) LeadResponse {
	resp := ToLeadResponse(lead)
	resp.AssignedToName = &gestor.Name
	resp.AssignedToEmail = &gestor.Email
	return resp
}
