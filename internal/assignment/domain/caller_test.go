package domain

import (
	"testing"

	"lapublica_backend/platform/apperr"

	"github.com/google/uuid"
)

func TestRequireRole(t *testing.T) {
	admin := CallerContext{UserID: uuid.New(), Role: RoleAdmin}
	if err := RequireRole(admin, AssignRoles...); err != nil {
		t.Fatalf("admin should pass: %v", err)
	}

	gestor := CallerContext{UserID: uuid.New(), Role: RoleGestorEstandard}
	err := RequireRole(gestor, AssignRoles...)
	if err == nil {
		t.Fatal("standard gestor must not pass the assign check")
	}
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRequireRoleUnresolvedCaller(t *testing.T) {
	err := RequireRole(CallerContext{}, AssignRoles...)
	if err == nil {
		t.Fatal("unresolved caller must be rejected")
	}
	if !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
