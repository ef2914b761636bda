package pipeline

import (
	"lapublica_backend/internal/events"
	apphttp "lapublica_backend/internal/http"
	"lapublica_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipeline bounded context: the Kanban board over leads and
// client companies.
type Module struct {
	handler *Handler
}

// NewModule builds the pipeline module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, validate *validator.Validator) *Module {
	repo := NewRepository(pool)
	svc := NewService(repo, bus)
	return &Module{handler: NewHandler(svc, validate)}
}

// Name identifies the module in logs.
func (m *Module) Name() string { return "pipeline" }

// RegisterRoutes mounts the board endpoints under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	board := ctx.Protected.Group("/pipeline")
	{
		board.GET("/board", m.handler.Board)
		board.POST("/move", m.handler.Move)
	}
}
