package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lapublica_backend/internal/assignment/domain"
	"lapublica_backend/internal/assignment/repository"
	"lapublica_backend/internal/assignment/transport"
	"lapublica_backend/internal/events"
	"lapublica_backend/internal/pipeline"
	"lapublica_backend/platform/apperr"
	"lapublica_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository that records every assignment write.
type fakeRepo struct {
	leads            map[uuid.UUID]*repository.Lead
	leadOrder        []uuid.UUID
	gestors          []domain.Gestor
	leadCounts       map[uuid.UUID]int
	companyCounts    map[uuid.UUID]int
	assignmentsToday int

	assignCalls   []repository.AssignParams
	unassignCalls int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:         make(map[uuid.UUID]*repository.Lead),
		leadCounts:    make(map[uuid.UUID]int),
		companyCounts: make(map[uuid.UUID]int),
	}
}

func (f *fakeRepo) addLead(lead repository.Lead) {
	stored := lead
	f.leads[lead.ID] = &stored
	f.leadOrder = append(f.leadOrder, lead.ID)
}

func (f *fakeRepo) GetLeadByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *lead, nil
}

func (f *fakeRepo) ListUnassigned(_ context.Context) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, id := range f.leadOrder {
		lead := f.leads[id]
		if lead.AssignedToID == nil && !pipeline.IsTerminal(lead.Status) {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListUnassignedNew(_ context.Context) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, id := range f.leadOrder {
		lead := f.leads[id]
		if lead.AssignedToID == nil && lead.Status == pipeline.StatusNew {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByGestor(_ context.Context, gestorID uuid.UUID) ([]repository.Lead, error) {
	var out []repository.Lead
	for _, id := range f.leadOrder {
		lead := f.leads[id]
		if lead.AssignedToID != nil && *lead.AssignedToID == gestorID && lead.Status != pipeline.StatusLost {
			out = append(out, *lead)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountActive(_ context.Context) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if !pipeline.IsTerminal(lead.Status) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CountUnassigned(_ context.Context) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if lead.AssignedToID == nil && !pipeline.IsTerminal(lead.Status) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) CountAssigned(_ context.Context) (int, error) {
	count := 0
	for _, lead := range f.leads {
		if lead.AssignedToID != nil && !pipeline.IsTerminal(lead.Status) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) Assign(_ context.Context, p repository.AssignParams) (repository.Lead, error) {
	lead, ok := f.leads[p.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return f.applyAssign(lead, p), nil
}

func (f *fakeRepo) AssignIfUnassigned(_ context.Context, p repository.AssignParams) (repository.Lead, error) {
	lead, ok := f.leads[p.LeadID]
	if !ok || lead.AssignedToID != nil {
		return repository.Lead{}, repository.ErrAlreadyAssigned
	}
	return f.applyAssign(lead, p), nil
}

func (f *fakeRepo) applyAssign(lead *repository.Lead, p repository.AssignParams) repository.Lead {
	now := time.Now()
	gestorID := p.GestorID
	stage := p.Stage
	lead.AssignedToID = &gestorID
	lead.AssignedAt = &now
	lead.Stage = &stage
	f.assignCalls = append(f.assignCalls, p)
	return *lead
}

func (f *fakeRepo) UnassignAllFromGestor(_ context.Context, gestorID, _ uuid.UUID) (int, error) {
	f.unassignCalls++
	count := 0
	for _, lead := range f.leads {
		if lead.AssignedToID != nil && *lead.AssignedToID == gestorID && !pipeline.IsTerminal(lead.Status) {
			lead.AssignedToID = nil
			lead.AssignedAt = nil
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) GetGestorByID(_ context.Context, id uuid.UUID) (domain.Gestor, error) {
	for _, gestor := range f.gestors {
		if gestor.ID == id {
			return gestor, nil
		}
	}
	return domain.Gestor{}, repository.ErrNotFound
}

func (f *fakeRepo) ListActiveAssignable(_ context.Context) ([]domain.Gestor, error) {
	var out []domain.Gestor
	for _, gestor := range f.gestors {
		if gestor.IsActive {
			out = append(out, gestor)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountActiveLeadsByGestor(_ context.Context) (map[uuid.UUID]int, error) {
	out := make(map[uuid.UUID]int, len(f.leadCounts))
	for id, n := range f.leadCounts {
		out[id] = n
	}
	return out, nil
}

func (f *fakeRepo) CountCompaniesByGestor(_ context.Context) (map[uuid.UUID]int, error) {
	return f.companyCounts, nil
}

func (f *fakeRepo) CountAssignmentsSince(_ context.Context, _ time.Time) (int, error) {
	return f.assignmentsToday, nil
}

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.Publish(context.Background(), event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) published() []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]events.Event(nil), b.events...)
}

func newTestService(repo *fakeRepo) (*Service, *recordingBus) {
	bus := &recordingBus{}
	return New(repo, bus, logger.New("test")), bus
}

func adminCaller() domain.CallerContext {
	return domain.CallerContext{UserID: uuid.New(), Role: domain.RoleAdmin}
}

func newLead(name string, size string, revenue float64) repository.Lead {
	lead := repository.Lead{
		ID:          uuid.New(),
		CompanyName: name,
		ContactName: "Contacte",
		Priority:    "MEDIUM",
		Status:      pipeline.StatusNew,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if size != "" {
		lead.CompanySize = &size
	}
	if revenue > 0 {
		lead.EstimatedRevenue = &revenue
	}
	return lead
}

func TestAssignLeadToGestor(t *testing.T) {
	repo := newFakeRepo()
	gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Email: "anna@lapublica.cat", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{gestor}
	lead := newLead("Fusteria Vila", "", 0)
	repo.addLead(lead)

	svc, bus := newTestService(repo)

	got, err := svc.AssignLeadToGestor(context.Background(), adminCaller(), lead.ID, gestor.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.AssignedToID == nil || *got.AssignedToID != gestor.ID {
		t.Fatal("lead should be assigned to the gestor")
	}
	if got.Stage == nil || *got.Stage != pipeline.StageAssignat {
		t.Fatalf("standard gestor assignment should land in ASSIGNAT, got %v", got.Stage)
	}
	if got.AssignedToName == nil || *got.AssignedToName != gestor.Name {
		t.Fatal("response should carry the gestor name")
	}

	if len(repo.assignCalls) != 1 {
		t.Fatalf("expected exactly one assignment write, got %d", len(repo.assignCalls))
	}

	published := bus.published()
	if len(published) != 1 {
		t.Fatalf("expected one event, got %d", len(published))
	}
	event, ok := published[0].(events.LeadAssigned)
	if !ok {
		t.Fatalf("expected LeadAssigned, got %T", published[0])
	}
	if event.GestorID != gestor.ID || event.LeadID != lead.ID {
		t.Fatal("event should reference the lead and gestor")
	}
}

func TestAssignLeadToGestorDerivesStageFromRole(t *testing.T) {
	cases := []struct {
		role string
		want string
	}{
		{domain.RoleGestorEstandard, pipeline.StageAssignat},
		{domain.RoleCRMComercial, pipeline.StagePerVerificar},
		{domain.RoleAdminGestio, pipeline.StagePreContracte},
	}

	for _, tc := range cases {
		repo := newFakeRepo()
		gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: tc.role, IsActive: true}
		repo.gestors = []domain.Gestor{gestor}
		lead := newLead("Empresa", "", 0)
		repo.addLead(lead)

		svc, _ := newTestService(repo)
		got, err := svc.AssignLeadToGestor(context.Background(), adminCaller(), lead.ID, gestor.ID)
		if err != nil {
			t.Fatalf("role %s: unexpected error: %v", tc.role, err)
		}
		if got.Stage == nil || *got.Stage != tc.want {
			t.Errorf("role %s: expected stage %s, got %v", tc.role, tc.want, got.Stage)
		}
	}
}

func TestAssignLeadToGestorForbiddenRole(t *testing.T) {
	repo := newFakeRepo()
	gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{gestor}
	lead := newLead("Empresa", "", 0)
	repo.addLead(lead)

	svc, bus := newTestService(repo)

	caller := domain.CallerContext{UserID: uuid.New(), Role: domain.RoleGestorEstandard}
	_, err := svc.AssignLeadToGestor(context.Background(), caller, lead.ID, gestor.ID)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if len(repo.assignCalls) != 0 {
		t.Fatal("forbidden caller must cause no writes")
	}
	if len(bus.published()) != 0 {
		t.Fatal("forbidden caller must cause no events")
	}
}

func TestAssignLeadToGestorTargetValidation(t *testing.T) {
	repo := newFakeRepo()
	inactive := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: false}
	repo.gestors = []domain.Gestor{inactive}
	lead := newLead("Empresa", "", 0)
	repo.addLead(lead)

	svc, _ := newTestService(repo)
	caller := adminCaller()

	if _, err := svc.AssignLeadToGestor(context.Background(), caller, lead.ID, inactive.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("inactive gestor: expected validation error, got %v", err)
	}

	if _, err := svc.AssignLeadToGestor(context.Background(), caller, lead.ID, uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("unknown gestor: expected not found, got %v", err)
	}
}

func TestAssignLeadToGestorLeadNotFound(t *testing.T) {
	repo := newFakeRepo()
	gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{gestor}

	svc, _ := newTestService(repo)

	_, err := svc.AssignLeadToGestor(context.Background(), adminCaller(), uuid.New(), gestor.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBulkReassignLeadsReportsPerLeadOutcomes(t *testing.T) {
	repo := newFakeRepo()
	gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{gestor}

	lead1 := newLead("Empresa U", "", 0)
	lead2 := newLead("Empresa Dos", "", 0)
	repo.addLead(lead1)
	repo.addLead(lead2)
	missing := uuid.New()

	svc, _ := newTestService(repo)

	result, err := svc.BulkReassignLeads(context.Background(), adminCaller(), transport.BulkReassignRequest{
		LeadIDs:  []uuid.UUID{lead1.ID, missing, lead2.ID},
		GestorID: gestor.ID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Updated) != 2 {
		t.Fatalf("expected 2 updated leads, got %d", len(result.Updated))
	}
	if len(result.Failed) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failed))
	}
	if result.Failed[0].LeadID != missing {
		t.Fatal("failure should reference the missing lead")
	}
	if len(repo.assignCalls) != 2 {
		t.Fatalf("expected 2 assignment writes, got %d", len(repo.assignCalls))
	}
}

func TestAutoAssignLeadsRoutesByTier(t *testing.T) {
	repo := newFakeRepo()
	standard := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	enterprise := domain.Gestor{ID: uuid.New(), Name: "Bernat", Role: domain.RoleGestorEnterprise, IsActive: true}
	repo.gestors = []domain.Gestor{standard, enterprise}

	small := newLead("Petita SL", "1-10", 10_000)
	large := newLead("Gran SA", "200+", 0)
	repo.addLead(small)
	repo.addLead(large)

	svc, _ := newTestService(repo)

	result, err := svc.AutoAssignLeads(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Assigned != 2 || result.Total != 2 {
		t.Fatalf("expected {assigned:2 total:2}, got %+v", result)
	}

	if got := *repo.leads[small.ID].AssignedToID; got != standard.ID {
		t.Fatal("employee-tier lead should go to the standard gestor")
	}
	if got := *repo.leads[large.ID].AssignedToID; got != enterprise.ID {
		t.Fatal("admin-tier lead should go to the enterprise gestor")
	}
	if got := *repo.leads[large.ID].Stage; got != pipeline.StageAssignat {
		t.Fatalf("enterprise gestor assignment should land in ASSIGNAT, got %s", got)
	}
}

func TestAutoAssignLeadsBalancesWithinRun(t *testing.T) {
	repo := newFakeRepo()
	anna := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	admin := domain.Gestor{ID: uuid.New(), Name: "Bernat", Role: domain.RoleAdminGestio, IsActive: true}
	repo.gestors = []domain.Gestor{anna, admin}

	for i := 0; i < 4; i++ {
		repo.addLead(newLead("Empresa", "1-10", 0))
	}

	svc, _ := newTestService(repo)

	result, err := svc.AutoAssignLeads(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Assigned != 4 {
		t.Fatalf("expected 4 assigned, got %d", result.Assigned)
	}

	perGestor := make(map[uuid.UUID]int)
	for _, call := range repo.assignCalls {
		perGestor[call.GestorID]++
	}
	if perGestor[anna.ID] != 2 || perGestor[admin.ID] != 2 {
		t.Fatalf("expected an even split, got %v", perGestor)
	}
}

func TestAutoAssignLeadsNoEligibleGestor(t *testing.T) {
	repo := newFakeRepo()
	standard := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{standard}

	large := newLead("Gran SA", "200+", 0)
	repo.addLead(large)

	svc, _ := newTestService(repo)

	result, err := svc.AutoAssignLeads(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Assigned != 0 || result.Total != 1 {
		t.Fatalf("expected {assigned:0 total:1}, got %+v", result)
	}
	if repo.leads[large.ID].AssignedToID != nil {
		t.Fatal("lead without an eligible gestor must stay unassigned")
	}
}

func TestAutoAssignLeadsForbiddenForCRM(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	caller := domain.CallerContext{UserID: uuid.New(), Role: domain.RoleCRMComercial}
	if _, err := svc.AutoAssignLeads(context.Background(), caller); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("CRM comercial must not trigger auto-assignment, got %v", err)
	}
}

func TestRedistributeFromGestor(t *testing.T) {
	repo := newFakeRepo()
	leaving := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	remaining := domain.Gestor{ID: uuid.New(), Name: "Bernat", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{leaving, remaining}

	owned := newLead("Empresa", "1-10", 0)
	leavingID := leaving.ID
	owned.AssignedToID = &leavingID
	repo.addLead(owned)

	won := newLead("Guanyada", "1-10", 0)
	won.Status = pipeline.StatusWon
	won.AssignedToID = &leavingID
	repo.addLead(won)

	svc, bus := newTestService(repo)

	result, err := svc.RedistributeFromGestor(context.Background(), adminCaller(), leaving.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Redistributed != 1 {
		t.Fatalf("expected 1 released lead, got %d", result.Redistributed)
	}
	if result.Assigned != 1 {
		t.Fatalf("expected 1 reassigned lead, got %d", result.Assigned)
	}
	if repo.leads[won.ID].AssignedToID == nil {
		t.Fatal("terminal lead must keep its owner")
	}

	var redistributed bool
	for _, event := range bus.published() {
		if e, ok := event.(events.LeadsRedistributed); ok {
			redistributed = true
			if e.FromGestorID != leaving.ID || e.Redistributed != 1 {
				t.Fatalf("unexpected event payload: %+v", e)
			}
		}
	}
	if !redistributed {
		t.Fatal("expected a LeadsRedistributed event")
	}
}

func TestRedistributeFromGestorUnknownGestor(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	_, err := svc.RedistributeFromGestor(context.Background(), adminCaller(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if repo.unassignCalls != 0 {
		t.Fatal("unknown gestor must cause no release")
	}
}

func TestGetAssignmentStatsClampsTeamLoad(t *testing.T) {
	repo := newFakeRepo()
	gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{gestor}
	gestorID := gestor.ID

	// 15 assigned leads against a capacity of 10 (one slot).
	for i := 0; i < 15; i++ {
		lead := newLead("Empresa", "", 0)
		lead.AssignedToID = &gestorID
		repo.addLead(lead)
	}
	repo.assignmentsToday = 3

	svc, _ := newTestService(repo)

	stats, err := svc.GetAssignmentStats(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TeamLoadPercent != 100 {
		t.Fatalf("load above capacity must clamp to 100, got %d", stats.TeamLoadPercent)
	}
	if stats.AssignedLeads != 15 || stats.ActiveGestors != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AvgLeadsPerGestor != 15.0 {
		t.Fatalf("expected avg 15.0, got %v", stats.AvgLeadsPerGestor)
	}
	if stats.AssignmentsToday != 3 {
		t.Fatalf("expected 3 assignments today, got %d", stats.AssignmentsToday)
	}
}

func TestGetAssignmentStatsNoGestors(t *testing.T) {
	repo := newFakeRepo()
	repo.addLead(newLead("Empresa", "", 0))

	svc, _ := newTestService(repo)

	stats, err := svc.GetAssignmentStats(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TeamLoadPercent != 0 || stats.AvgLeadsPerGestor != 0 {
		t.Fatalf("zero capacity must read as zero load: %+v", stats)
	}
}

func TestGetGestorsWithStats(t *testing.T) {
	repo := newFakeRepo()
	gestor := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{gestor}
	gestorID := gestor.ID

	open := newLead("Oberta", "", 40_000)
	open.Status = pipeline.StatusNegotiation
	open.AssignedToID = &gestorID
	repo.addLead(open)

	won := newLead("Guanyada", "", 90_000)
	won.Status = pipeline.StatusWon
	won.AssignedToID = &gestorID
	repo.addLead(won)

	svc, _ := newTestService(repo)

	stats, err := svc.GetGestorsWithStats(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 gestor, got %d", len(stats))
	}

	got := stats[0]
	if got.ActiveLeads != 1 || got.WonLeads != 1 {
		t.Fatalf("expected 1 active and 1 won, got %+v", got)
	}
	if got.PipelineRevenue != 40_000 {
		t.Fatalf("won leads must not count toward pipeline revenue, got %v", got.PipelineRevenue)
	}
	if got.LoadPercent != 10 {
		t.Fatalf("1 of 10 capacity should read 10%%, got %d", got.LoadPercent)
	}
}

func TestGetGestorsWithWorkloadOneSlotPerRole(t *testing.T) {
	repo := newFakeRepo()
	anna := domain.Gestor{ID: uuid.New(), Name: "Anna", Role: domain.RoleGestorEstandard, IsActive: true}
	bernat := domain.Gestor{ID: uuid.New(), Name: "Bernat", Role: domain.RoleGestorEstandard, IsActive: true}
	repo.gestors = []domain.Gestor{anna, bernat}
	repo.leadCounts[anna.ID] = 4
	repo.companyCounts[anna.ID] = 2

	svc, _ := newTestService(repo)

	workloads, err := svc.GetGestorsWithWorkload(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(workloads) != 1 {
		t.Fatalf("two gestors sharing a role must yield one slot, got %d", len(workloads))
	}
	if workloads[0].ID != anna.ID {
		t.Fatal("first in name order should hold the slot")
	}
	if workloads[0].ActiveLeads != 4 || workloads[0].ActiveCompanies != 2 {
		t.Fatalf("unexpected counts: %+v", workloads[0])
	}
}

func TestGetUnassignedLeadsRequiresCaller(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	if _, err := svc.GetUnassignedLeads(context.Background(), domain.CallerContext{}); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
