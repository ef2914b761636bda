package pipeline

import (
	"net/http"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/platform/httpkit"
	"lapublica_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler holds the HTTP handlers for the pipeline board.
type Handler struct {
	service  *Service
	validate *validator.Validator
}

// NewHandler creates the handler.
func NewHandler(service *Service, validate *validator.Validator) *Handler {
	return &Handler{service: service, validate: validate}
}

// Board handles GET /pipeline/board.
func (h *Handler) Board(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	caller := domain.CallerContext{UserID: id.UserID(), Role: id.Role()}

	board, err := h.service.GetBoard(c.Request.Context(), caller)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, board)
}

// Move handles POST /pipeline/move.
func (h *Handler) Move(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	caller := domain.CallerContext{UserID: id.UserID(), Role: id.Role()}

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "cos de la petició invàlid", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validació fallida", err.Error())
		return
	}

	result, err := h.service.Move(c.Request.Context(), caller, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
