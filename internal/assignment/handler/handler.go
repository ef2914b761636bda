// Package handler exposes the assignment module over HTTP.
package handler

import (
	"context"
	"net/http"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/internal/assignment/transport"
	"lapublica_backend/platform/httpkit"
	"lapublica_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Service is the assignment surface the handlers call. Declared on the
// consumer side so the handler depends on behavior, not on the concrete
// service type.
type Service interface {
	GetGestorsWithWorkload(ctx context.Context, caller domain.CallerContext) ([]transport.GestorWorkload, error)
	GetUnassignedLeads(ctx context.Context, caller domain.CallerContext) ([]transport.LeadResponse, error)
	AssignLeadToGestor(ctx context.Context, caller domain.CallerContext, leadID, gestorID uuid.UUID) (transport.LeadResponse, error)
	BulkReassignLeads(ctx context.Context, caller domain.CallerContext, req transport.BulkReassignRequest) (transport.BulkReassignResponse, error)
	AutoAssignLeads(ctx context.Context, caller domain.CallerContext) (transport.AutoAssignResult, error)
	RedistributeFromGestor(ctx context.Context, caller domain.CallerContext, gestorID uuid.UUID) (transport.RedistributeResult, error)
	GetAssignmentStats(ctx context.Context, caller domain.CallerContext) (transport.AssignmentStats, error)
	GetGestorsWithStats(ctx context.Context, caller domain.CallerContext) ([]transport.GestorStats, error)
}

// Handler holds the HTTP handlers for lead assignment.
type Handler struct {
	service  Service
	validate *validator.Validator
}

// New creates the handler.
func New(service Service, validate *validator.Validator) *Handler {
	return &Handler{service: service, validate: validate}
}

// ListGestors handles GET /assignment/gestors.
func (h *Handler) ListGestors(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	workloads, err := h.service.GetGestorsWithWorkload(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"gestors": workloads})
}

// ListUnassignedLeads handles GET /assignment/leads/unassigned.
func (h *Handler) ListUnassignedLeads(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	leads, err := h.service.GetUnassignedLeads(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"leads": leads})
}

// AssignLead handles POST /assignment/leads/:id/assign.
func (h *Handler) AssignLead(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "identificador de lead invàlid", nil)
		return
	}

	var req transport.AssignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "cos de la petició invàlid", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validació fallida", err.Error())
		return
	}

	lead, err := h.service.AssignLeadToGestor(c.Request.Context(), caller, leadID, req.GestorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// BulkReassign handles POST /assignment/leads/bulk-reassign.
func (h *Handler) BulkReassign(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	var req transport.BulkReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "cos de la petició invàlid", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validació fallida", err.Error())
		return
	}

	result, err := h.service.BulkReassignLeads(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AutoAssign handles POST /admin/assignment/auto-assign.
func (h *Handler) AutoAssign(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	result, err := h.service.AutoAssignLeads(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Redistribute handles POST /admin/assignment/gestors/:id/redistribute.
func (h *Handler) Redistribute(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	gestorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "identificador de gestor invàlid", nil)
		return
	}

	result, err := h.service.RedistributeFromGestor(c.Request.Context(), caller, gestorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Stats handles GET /assignment/stats.
func (h *Handler) Stats(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	stats, err := h.service.GetAssignmentStats(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

// GestorStats handles GET /assignment/gestors/stats.
func (h *Handler) GestorStats(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}

	stats, err := h.service.GetGestorsWithStats(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"gestors": stats})
}

func callerFrom(c *gin.Context) (domain.CallerContext, bool) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return domain.CallerContext{}, false
	}
	return domain.CallerContext{UserID: id.UserID(), Role: id.Role()}, true
}
