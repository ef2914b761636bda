package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/internal/assignment/transport"
	"lapublica_backend/platform/httpkit"
	"lapublica_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// stubService returns canned values and records the caller it saw.
type stubService struct {
	caller     domain.CallerContext
	assignArgs []uuid.UUID
}

func (s *stubService) GetGestorsWithWorkload(_ context.Context, caller domain.CallerContext) ([]transport.GestorWorkload, error) {
	s.caller = caller
	return []transport.GestorWorkload{}, nil
}

func (s *stubService) GetUnassignedLeads(_ context.Context, caller domain.CallerContext) ([]transport.LeadResponse, error) {
	s.caller = caller
	return []transport.LeadResponse{}, nil
}

func (s *stubService) AssignLeadToGestor(_ context.Context, caller domain.CallerContext, leadID, gestorID uuid.UUID) (transport.LeadResponse, error) {
	s.caller = caller
	s.assignArgs = []uuid.UUID{leadID, gestorID}
	return transport.LeadResponse{ID: leadID}, nil
}

func (s *stubService) BulkReassignLeads(_ context.Context, caller domain.CallerContext, _ transport.BulkReassignRequest) (transport.BulkReassignResponse, error) {
	s.caller = caller
	return transport.BulkReassignResponse{}, nil
}

func (s *stubService) AutoAssignLeads(_ context.Context, caller domain.CallerContext) (transport.AutoAssignResult, error) {
	s.caller = caller
	return transport.AutoAssignResult{}, nil
}

func (s *stubService) RedistributeFromGestor(_ context.Context, caller domain.CallerContext, _ uuid.UUID) (transport.RedistributeResult, error) {
	s.caller = caller
	return transport.RedistributeResult{}, nil
}

func (s *stubService) GetAssignmentStats(_ context.Context, caller domain.CallerContext) (transport.AssignmentStats, error) {
	s.caller = caller
	return transport.AssignmentStats{}, nil
}

func (s *stubService) GetGestorsWithStats(_ context.Context, caller domain.CallerContext) ([]transport.GestorStats, error) {
	s.caller = caller
	return []transport.GestorStats{}, nil
}

func setupRouter(svc Service, userID uuid.UUID, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()

	if userID != uuid.Nil {
		engine.Use(func(c *gin.Context) {
			c.Set(httpkit.ContextUserIDKey, userID)
			c.Set(httpkit.ContextRoleKey, role)
			c.Next()
		})
	}

	h := New(svc, validator.New())
	engine.POST("/assignment/leads/:id/assign", h.AssignLead)
	engine.POST("/assignment/leads/bulk-reassign", h.BulkReassign)
	return engine
}

func TestAssignLeadHandler(t *testing.T) {
	svc := &stubService{}
	userID := uuid.New()
	engine := setupRouter(svc, userID, domain.RoleAdmin)

	leadID := uuid.New()
	gestorID := uuid.New()
	body := `{"gestorId":"` + gestorID.String() + `"}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignment/leads/"+leadID.String()+"/assign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.caller.UserID != userID || svc.caller.Role != domain.RoleAdmin {
		t.Fatalf("handler must pass the authenticated caller, got %+v", svc.caller)
	}
	if len(svc.assignArgs) != 2 || svc.assignArgs[0] != leadID || svc.assignArgs[1] != gestorID {
		t.Fatalf("unexpected service args: %v", svc.assignArgs)
	}
}

func TestAssignLeadHandlerInvalidLeadID(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc, uuid.New(), domain.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignment/leads/not-a-uuid/assign", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(svc.assignArgs) != 0 {
		t.Fatal("service must not be called for an invalid lead id")
	}
}

func TestAssignLeadHandlerMissingGestorID(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc, uuid.New(), domain.RoleAdmin)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignment/leads/"+uuid.NewString()+"/assign", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty gestorId, got %d", rec.Code)
	}
}

func TestAssignLeadHandlerUnauthenticated(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc, uuid.Nil, "")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignment/leads/"+uuid.NewString()+"/assign", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestBulkReassignHandlerRejectsEmptyBatch(t *testing.T) {
	svc := &stubService{}
	engine := setupRouter(svc, uuid.New(), domain.RoleAdmin)

	body := `{"leadIds":[],"gestorId":"` + uuid.NewString() + `"}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/assignment/leads/bulk-reassign", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an empty batch, got %d", rec.Code)
	}
}
