package domain

// Tier classifies a lead by size and value during automatic assignment so
// it can be matched to gestor seniority.
type Tier string

const (
	TierEmployee       Tier = "EMPLOYEE"
	TierAccountManager Tier = "ACCOUNT_MANAGER"
	TierAdmin          Tier = "ADMIN"
)

// Classification thresholds.
const (
	CompanySizeLarge  = "200+"
	CompanySizeMedium = "50-200"

	revenueThresholdAdmin          = 100_000
	revenueThresholdAccountManager = 50_000
)

// ClassifyLead buckets a lead into a tier from its company-size band and
// estimated revenue. Either signal alone is enough to promote the lead;
// a nil revenue counts as zero.
func ClassifyLead(companySize string, estimatedRevenue *float64) Tier {
	revenue := 0.0
	if estimatedRevenue != nil {
		revenue = *estimatedRevenue
	}

	switch {
	case companySize == CompanySizeLarge || revenue > revenueThresholdAdmin:
		return TierAdmin
	case companySize == CompanySizeMedium || revenue > revenueThresholdAccountManager:
		return TierAccountManager
	default:
		return TierEmployee
	}
}

// tierRoles maps each tier to the gestor roles that may take its leads.
// The administrative roles act as a catch-all on every tier.
var tierRoles = map[Tier][]string{
	TierAdmin:          {RoleGestorEnterprise, RoleAdminGestio, RoleAdmin, RoleSuperAdmin},
	TierAccountManager: {RoleGestorEstrategic, RoleAdminGestio, RoleAdmin, RoleSuperAdmin},
	TierEmployee:       {RoleGestorEstandard, RoleAdminGestio, RoleAdmin, RoleSuperAdmin},
}

// EligibleForTier reports whether a gestor role qualifies for leads of the
// given tier.
func EligibleForTier(tier Tier, role string) bool {
	return containsRole(tierRoles[tier], role)
}
