// Package pipeline implements the pipeline stage engine: the mapping from
// gestor roles to board columns, the valid stage sets per item type, and the
// lead status funnel.
package pipeline

import (
	"strings"

	"lapublica_backend/internal/assignment/domain"
)

// Board columns for leads.
const (
	StageAssignat     = "ASSIGNAT"
	StagePerVerificar = "PER_VERIFICAR"
	StagePreContracte = "PRE_CONTRACTE"
)

// Board columns for client companies.
const (
	StageProspecte   = "PROSPECTE"
	StageClientActiu = "CLIENT_ACTIU"
	StageRenovacio   = "RENOVACIO"
)

// Item types the board can hold.
const (
	ItemTypeLead    = "lead"
	ItemTypeCompany = "company"
)

var leadStages = []string{StageAssignat, StagePerVerificar, StagePreContracte}

var companyStages = []string{StageProspecte, StageClientActiu, StageRenovacio}

// DeriveStage maps the role of the gestor a lead is assigned to onto the
// board column the lead lands in. It is a pure, total function: any role
// string yields exactly one stage. It is evaluated once per assignment, at
// the moment assigned_to_id is set, and never re-derived afterwards.
func DeriveStage(role string) string {
	if strings.Contains(role, "CRM") {
		return StagePerVerificar
	}

	switch role {
	case domain.RoleAdminGestio, domain.RoleAdmin, domain.RoleSuperAdmin:
		return StagePreContracte
	}

	return StageAssignat
}

// ValidStages returns the closed set of board columns for the given item type.
func ValidStages(itemType string) []string {
	switch itemType {
	case ItemTypeLead:
		return append([]string(nil), leadStages...)
	case ItemTypeCompany:
		return append([]string(nil), companyStages...)
	default:
		return nil
	}
}

// IsValidStage reports whether stage is a known column for the item type.
func IsValidStage(itemType, stage string) bool {
	for _, known := range ValidStages(itemType) {
		if known == stage {
			return true
		}
	}
	return false
}
