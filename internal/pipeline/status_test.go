package pipeline

import "testing"

func TestIsTerminal(t *testing.T) {
	for _, status := range []string{StatusWon, StatusLost} {
		if !IsTerminal(status) {
			t.Errorf("expected %s to be terminal", status)
		}
	}

	for _, status := range []string{
		StatusNew, StatusContacted, StatusQualified, StatusNegotiation,
		StatusProposalSent, StatusPendingCRM, StatusCRMApproved, StatusCRMRejected,
	} {
		if IsTerminal(status) {
			t.Errorf("expected %s not to be terminal", status)
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusNew, StatusContacted},
		{StatusContacted, StatusQualified},
		{StatusContacted, StatusNegotiation},
		{StatusQualified, StatusProposalSent},
		{StatusNegotiation, StatusLost},
		{StatusProposalSent, StatusPendingCRM},
		{StatusPendingCRM, StatusCRMApproved},
		{StatusPendingCRM, StatusCRMRejected},
		{StatusCRMApproved, StatusWon},
		{StatusCRMRejected, StatusLost},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected transition %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to string }{
		{StatusNew, StatusWon},
		{StatusContacted, StatusProposalSent},
		{StatusPendingCRM, StatusLost},
		{StatusWon, StatusLost},
		{StatusLost, StatusNew},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected transition %s -> %s to be denied", tc.from, tc.to)
		}
	}
}

// Terminal statuses must have no outgoing edges in the funnel graph.
func TestTerminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for status := range knownStatuses {
		if !IsTerminal(status) {
			continue
		}
		if targets := statusTransitions[status]; len(targets) != 0 {
			t.Errorf("terminal status %s has outgoing transitions %v", status, targets)
		}
	}
}

func TestIsKnownStatus(t *testing.T) {
	if !IsKnownStatus(StatusPendingCRM) {
		t.Error("PENDING_CRM should be known")
	}
	if IsKnownStatus("ARCHIVED") {
		t.Error("ARCHIVED should not be known")
	}
}
