package domain

// RoleSlots treats each role as a singleton slot holding at most one active
// gestor. The workload and stats views expose one gestor per role; when
// several active gestors share a role, the first in name order wins. This
// makes the one-gestor-per-role policy an explicit, testable invariant
// instead of an artifact of filtering order.
type RoleSlots struct {
	order  []string
	byRole map[string]Gestor
}

// NewRoleSlots builds the slot map from gestors already sorted by name.
// Inactive gestors never occupy a slot.
func NewRoleSlots(gestors []Gestor) RoleSlots {
	slots := RoleSlots{byRole: make(map[string]Gestor, len(gestors))}
	for _, gestor := range gestors {
		if !gestor.IsActive {
			continue
		}
		if _, taken := slots.byRole[gestor.Role]; taken {
			continue
		}
		slots.byRole[gestor.Role] = gestor
		slots.order = append(slots.order, gestor.Role)
	}
	return slots
}

// ForRole returns the gestor occupying the role slot, if any.
func (s RoleSlots) ForRole(role string) (Gestor, bool) {
	gestor, ok := s.byRole[role]
	return gestor, ok
}

// Gestors returns the slot holders in first-seen order.
func (s RoleSlots) Gestors() []Gestor {
	out := make([]Gestor, 0, len(s.order))
	for _, role := range s.order {
		out = append(out, s.byRole[role])
	}
	return out
}

// Len returns the number of occupied slots.
func (s RoleSlots) Len() int {
	return len(s.order)
}
