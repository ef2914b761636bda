package repository

import (
	"strings"
	"testing"
)

func TestUnassignedQueriesExcludeTerminalLeads(t *testing.T) {
	for name, query := range map[string]string{
		"listUnassigned":  listUnassignedQuery,
		"countActive":     countActiveLeadsQuery,
		"countUnassigned": countUnassignedLeadsQuery,
		"countAssigned":   countAssignedLeadsQuery,
	} {
		if !strings.Contains(query, "NOT IN ('WON', 'LOST')") {
			t.Errorf("%s query must exclude terminal leads", name)
		}
	}
}

func TestUnassignedQueriesRequireNoOwner(t *testing.T) {
	for name, query := range map[string]string{
		"listUnassigned":    listUnassignedQuery,
		"listUnassignedNew": listUnassignedNewQuery,
		"countUnassigned":   countUnassignedLeadsQuery,
	} {
		if !strings.Contains(query, "assigned_to_id IS NULL") {
			t.Errorf("%s query must filter on missing owner", name)
		}
	}
}

func TestListUnassignedNewOnlyTakesNewLeads(t *testing.T) {
	if !strings.Contains(listUnassignedNewQuery, "status = 'NEW'") {
		t.Fatal("auto-assignment candidates must be restricted to status NEW")
	}
}

// The priority CASE must rank URGENT above HIGH above MEDIUM, with creation
// time as the tie-break inside a band.
func TestPriorityOrderClause(t *testing.T) {
	clause := priorityOrderClause

	urgent := strings.Index(clause, "'URGENT' THEN 4")
	high := strings.Index(clause, "'HIGH' THEN 3")
	medium := strings.Index(clause, "'MEDIUM' THEN 2")
	if urgent < 0 || high < 0 || medium < 0 {
		t.Fatal("priority bands missing from order clause")
	}
	if !strings.Contains(clause, "created_at ASC") {
		t.Fatal("oldest-first tie-break missing from order clause")
	}
}

// The conditional assignment update must only apply while the lead is still
// unowned; this is the race guard for concurrent auto-assign runs.
func TestAssignIfUnassignedQueryIsConditional(t *testing.T) {
	if !strings.Contains(assignIfUnassignedQuery, "AND assigned_to_id IS NULL") {
		t.Fatal("conditional assignment query must guard on assigned_to_id IS NULL")
	}
	if strings.Contains(assignQuery, "assigned_to_id IS NULL") {
		t.Fatal("direct assignment query must not carry the race guard")
	}
}

func TestUnassignByGestorExcludesTerminalLeads(t *testing.T) {
	if !strings.Contains(unassignByGestorQuery, "status NOT IN ('WON', 'LOST')") {
		t.Fatal("redistribution must never release WON or LOST leads")
	}
}
