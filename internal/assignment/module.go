// Package assignment wires the lead assignment bounded context: repository,
// service and HTTP handlers.
package assignment

import (
	"lapublica_backend/internal/assignment/handler"
	"lapublica_backend/internal/assignment/repository"
	"lapublica_backend/internal/assignment/service"
	"lapublica_backend/internal/events"
	apphttp "lapublica_backend/internal/http"
	"lapublica_backend/platform/logger"
	"lapublica_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignment bounded context.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule builds the assignment module with its full dependency chain.
func NewModule(pool *pgxpool.Pool, bus events.Bus, log *logger.Logger, validate *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	return &Module{
		handler: handler.New(svc, validate),
		service: svc,
	}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "assignment" }

// Service exposes the assignment service for cross-module use.
func (m *Module) Service() *service.Service { return m.service }

// RegisterRoutes mounts the assignment endpoints. Read views and manual
// assignment live under the authenticated group; the allowlist for mutations
// is enforced in the service. Auto-assignment and redistribution are
// admin-only at the routing layer as well.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	assignment := ctx.Protected.Group("/assignment")
	{
		assignment.GET("/gestors", m.handler.ListGestors)
		assignment.GET("/gestors/stats", m.handler.GestorStats)
		assignment.GET("/leads/unassigned", m.handler.ListUnassignedLeads)
		assignment.GET("/stats", m.handler.Stats)
		assignment.POST("/leads/:id/assign", m.handler.AssignLead)
		assignment.POST("/leads/bulk-reassign", m.handler.BulkReassign)
	}

	admin := ctx.Admin.Group("/assignment")
	{
		admin.POST("/auto-assign", m.handler.AutoAssign)
		admin.POST("/gestors/:id/redistribute", m.handler.Redistribute)
	}
}
