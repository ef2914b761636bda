package domain

import (
	"lapublica_backend/platform/apperr"

	"github.com/google/uuid"
)

// CallerContext identifies the authenticated user performing an operation.
// Session resolution happens outside this core (JWT middleware); services
// receive the caller explicitly instead of reaching into ambient state.
type CallerContext struct {
	UserID uuid.UUID
	Role   string
}

// Resolved reports whether the caller carries a usable identity.
func (c CallerContext) Resolved() bool {
	return c.UserID != uuid.Nil
}

// RequireCaller fails with Unauthorized when no caller identity is present.
func RequireCaller(caller CallerContext) error {
	if !caller.Resolved() {
		return apperr.Unauthorized("no authenticated caller")
	}
	return nil
}

// RequireRole is the single capability check shared by all mutating
// operations: the caller must be resolved and hold one of the allowed roles.
func RequireRole(caller CallerContext, allowed ...string) error {
	if err := RequireCaller(caller); err != nil {
		return err
	}
	if !containsRole(allowed, caller.Role) {
		return apperr.Forbidden("role not allowed for this operation")
	}
	return nil
}
