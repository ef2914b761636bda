// Package domain holds the pure business rules of lead assignment: roles,
// capability checks, tier classification, workload tallies and role slots.
// Nothing in this package touches the database or the HTTP layer.
package domain

// User roles. Gestors work leads and manage client companies; the admin
// roles supervise and may assign on behalf of anyone.
const (
	RoleSuperAdmin       = "SUPER_ADMIN"
	RoleAdmin            = "ADMIN"
	RoleAdminGestio      = "ADMIN_GESTIO"
	RoleCRMComercial     = "CRM_COMERCIAL"
	RoleGestorEstandard  = "GESTOR_ESTANDARD"
	RoleGestorEstrategic = "GESTOR_ESTRATEGIC"
	RoleGestorEnterprise = "GESTOR_ENTERPRISE"
)

// AssignableRoles are the roles that can own leads, i.e. valid assignment
// targets and the population of the workload views.
var AssignableRoles = []string{
	RoleGestorEstandard,
	RoleGestorEstrategic,
	RoleGestorEnterprise,
	RoleCRMComercial,
	RoleAdminGestio,
	RoleAdmin,
	RoleSuperAdmin,
}

// AssignRoles may perform single and bulk lead assignment.
var AssignRoles = []string{RoleAdmin, RoleAdminGestio, RoleSuperAdmin, RoleCRMComercial}

// AutoAssignRoles may trigger automatic assignment and redistribution.
var AutoAssignRoles = []string{RoleAdmin, RoleAdminGestio, RoleSuperAdmin}

// IsAssignableRole reports whether the role can be the target of an assignment.
func IsAssignableRole(role string) bool {
	return containsRole(AssignableRoles, role)
}

func containsRole(roles []string, role string) bool {
	for _, item := range roles {
		if item == role {
			return true
		}
	}
	return false
}
