// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lapublica_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Assignment Domain Events
// =============================================================================

// LeadAssigned is published when a lead is assigned to a gestor.
// Notification delivery is a subscriber concern: a failed handler never
// affects the assignment outcome.
type LeadAssigned struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	CompanyName  string    `json:"companyName"`
	GestorID     uuid.UUID `json:"gestorId"`
	GestorName   string    `json:"gestorName"`
	GestorEmail  string    `json:"gestorEmail"`
	AssignedByID uuid.UUID `json:"assignedById"`
	Stage        string    `json:"stage"`
}

func (e LeadAssigned) EventName() string { return "assignment.lead.assigned" }

// LeadsRedistributed is published after a gestor's portfolio has been
// unassigned and pushed through auto-assignment.
type LeadsRedistributed struct {
	BaseEvent
	FromGestorID  uuid.UUID `json:"fromGestorId"`
	Redistributed int       `json:"redistributed"`
	Reassigned    int       `json:"reassigned"`
	ActorID       uuid.UUID `json:"actorId"`
}

func (e LeadsRedistributed) EventName() string { return "assignment.leads.redistributed" }

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// StageMoved is published when a board item is dragged to another column.
// The move itself is already persisted; subscribers only observe it.
type StageMoved struct {
	BaseEvent
	ItemType string    `json:"itemType"` // "lead" or "company"
	ItemID   uuid.UUID `json:"itemId"`
	OldStage string    `json:"oldStage"`
	NewStage string    `json:"newStage"`
	ActorID  uuid.UUID `json:"actorId"`
}

func (e StageMoved) EventName() string { return "pipeline.stage.moved" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler worker when an outbox
// record is due for delivery.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID uuid.UUID `json:"outboxId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
