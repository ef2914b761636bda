package pipeline

// Lead sales-funnel statuses. Status is the funnel phase; stage is the board
// column. The assignment core only reads status to filter queries.
const (
	StatusNew          = "NEW"
	StatusContacted    = "CONTACTED"
	StatusQualified    = "QUALIFIED"
	StatusNegotiation  = "NEGOTIATION"
	StatusProposalSent = "PROPOSAL_SENT"
	StatusPendingCRM   = "PENDING_CRM"
	StatusCRMApproved  = "CRM_APPROVED"
	StatusCRMRejected  = "CRM_REJECTED"
	StatusWon          = "WON"
	StatusLost         = "LOST"
)

var knownStatuses = map[string]struct{}{
	StatusNew:          {},
	StatusContacted:    {},
	StatusQualified:    {},
	StatusNegotiation:  {},
	StatusProposalSent: {},
	StatusPendingCRM:   {},
	StatusCRMApproved:  {},
	StatusCRMRejected:  {},
	StatusWon:          {},
	StatusLost:         {},
}

// statusTransitions is the advisory funnel graph. Transition legality is not
// enforced by the assignment core; only the board move endpoint consults it.
var statusTransitions = map[string][]string{
	StatusNew:          {StatusContacted},
	StatusContacted:    {StatusNegotiation, StatusQualified},
	StatusQualified:    {StatusProposalSent, StatusLost},
	StatusNegotiation:  {StatusProposalSent, StatusLost},
	StatusProposalSent: {StatusPendingCRM, StatusLost},
	StatusPendingCRM:   {StatusCRMApproved, StatusCRMRejected},
	StatusCRMApproved:  {StatusWon},
	StatusCRMRejected:  {StatusLost},
}

// IsKnownStatus reports whether status is part of the funnel.
func IsKnownStatus(status string) bool {
	_, ok := knownStatuses[status]
	return ok
}

// IsTerminal reports whether a lead in this status is finished. Terminal
// leads are excluded from active workload counts and the unassigned queue.
func IsTerminal(status string) bool {
	return status == StatusWon || status == StatusLost
}

// CanTransition reports whether the funnel graph allows moving from one
// status to another. Terminal statuses have no outgoing edges.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
