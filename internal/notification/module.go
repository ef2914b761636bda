// Package notification reacts to assignment domain events: it persists
// in-app notifications and schedules email delivery through the outbox.
// Delivery is a subscriber concern; a failure here never changes the
// assignment outcome.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"lapublica_backend/internal/email"
	"lapublica_backend/internal/events"
	apphttp "lapublica_backend/internal/http"
	notifhandler "lapublica_backend/internal/notification/handler"
	"lapublica_backend/internal/notification/inapp"
	notificationoutbox "lapublica_backend/internal/notification/outbox"
	"lapublica_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	templateLeadAssigned   = "lead_assigned"
	templateRedistribution = "redistribution"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// leadAssignedOutboxPayload is the stored email job for a lead assignment.
type leadAssignedOutboxPayload struct {
	ToEmail     string `json:"toEmail"`
	GestorName  string `json:"gestorName"`
	CompanyName string `json:"companyName"`
	ContactName string `json:"contactName"`
	Stage       string `json:"stage"`
}

// redistributionOutboxPayload is the stored email job for a redistribution.
type redistributionOutboxPayload struct {
	ToEmail    string `json:"toEmail"`
	GestorName string `json:"gestorName"`
	Reassigned int    `json:"reassigned"`
}

// Module handles all notification-related event subscriptions.
type Module struct {
	pool         *pgxpool.Pool
	sender       email.Sender
	log          *logger.Logger
	outbox       *notificationoutbox.Repository
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
}

// New creates the notification module.
func New(pool *pgxpool.Pool, sender email.Sender, log *logger.Logger) *Module {
	inAppRepo := inapp.NewRepository(pool)
	inAppSvc := inapp.NewService(inAppRepo, log)

	return &Module{
		pool:         pool,
		sender:       sender,
		log:          log,
		outbox:       notificationoutbox.New(pool),
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers the in-app notification API routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	if m.inAppHandler == nil {
		return
	}

	notifications := ctx.Protected.Group("/notifications")
	m.inAppHandler.RegisterRoutes(notifications)
}

// InAppService exposes the in-app notification service for integration points.
func (m *Module) InAppService() *inapp.Service { return m.inAppService }

// Outbox exposes the outbox repository for the scheduler's dispatcher.
func (m *Module) Outbox() *notificationoutbox.Repository { return m.outbox }

// RegisterHandlers subscribes to the relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), m)
	bus.Subscribe(events.LeadsRedistributed{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadAssigned:
		return m.handleLeadAssigned(ctx, e)
	case events.LeadsRedistributed:
		return m.handleLeadsRedistributed(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleLeadAssigned(ctx context.Context, e events.LeadAssigned) error {
	leadID := e.LeadID
	resourceType := "lead"
	if err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:       e.GestorID,
		Title:        "Nou lead assignat",
		Content:      fmt.Sprintf("Se t'ha assignat el lead %s.", e.CompanyName),
		ResourceID:   &leadID,
		ResourceType: resourceType,
		Category:     "info",
	}); err != nil {
		m.log.Error("failed to create in-app notification", "leadId", e.LeadID, "gestorId", e.GestorID, "error", err)
	}

	if strings.TrimSpace(e.GestorEmail) == "" {
		return nil
	}

	outboxID, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Kind:     "email",
		Template: templateLeadAssigned,
		Payload: leadAssignedOutboxPayload{
			ToEmail:     e.GestorEmail,
			GestorName:  e.GestorName,
			CompanyName: e.CompanyName,
			Stage:       e.Stage,
		},
		RunAt: time.Now().UTC(),
	})
	if err != nil {
		m.log.Error("failed to enqueue assignment email", "leadId", e.LeadID, "gestorId", e.GestorID, "error", err)
		return err
	}

	m.log.Info("outbox message enqueued", "outboxId", outboxID.String(), "kind", "email", "template", templateLeadAssigned, "leadId", e.LeadID)
	return nil
}

func (m *Module) handleLeadsRedistributed(ctx context.Context, e events.LeadsRedistributed) error {
	name, toEmail := m.resolveGestorContact(ctx, e.FromGestorID)

	if err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:   e.FromGestorID,
		Title:    "Cartera redistribuïda",
		Content:  fmt.Sprintf("%d leads de la teva cartera s'han redistribuït.", e.Redistributed),
		Category: "warning",
	}); err != nil {
		m.log.Error("failed to create in-app notification", "gestorId", e.FromGestorID, "error", err)
	}

	if toEmail == "" {
		return nil
	}

	outboxID, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Kind:     "email",
		Template: templateRedistribution,
		Payload: redistributionOutboxPayload{
			ToEmail:    toEmail,
			GestorName: name,
			Reassigned: e.Reassigned,
		},
		RunAt: time.Now().UTC(),
	})
	if err != nil {
		m.log.Error("failed to enqueue redistribution email", "gestorId", e.FromGestorID, "error", err)
		return err
	}

	m.log.Info("outbox message enqueued", "outboxId", outboxID.String(), "kind", "email", "template", templateRedistribution, "gestorId", e.FromGestorID)
	return nil
}

// handleNotificationOutboxDue delivers one claimed outbox record. Transient
// failures go back to pending with exponential backoff; after
// maxOutboxRetryAttempts the record is marked failed for good.
func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		m.log.Error("failed to load outbox record", "outboxId", e.OutboxID, "error", err)
		return err
	}
	if rec.Status == notificationoutbox.StatusSucceeded || rec.Status == notificationoutbox.StatusFailed {
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}
	attempts := rec.Attempts + 1

	sendErr := m.deliver(ctx, rec)
	if sendErr == nil {
		return m.outbox.MarkSucceeded(ctx, rec.ID)
	}

	if strings.HasPrefix(sendErr.Error(), invalidOutboxPayloadPrefix) || attempts >= maxOutboxRetryAttempts {
		m.log.Error("outbox delivery failed permanently", "outboxId", rec.ID, "template", rec.Template, "attempts", attempts, "error", sendErr)
		return m.outbox.MarkFailed(ctx, rec.ID, sendErr.Error())
	}

	delay := nextRetryDelay(attempts)
	errText := sendErr.Error()
	m.log.Warn("outbox delivery failed; retrying", "outboxId", rec.ID, "template", rec.Template, "attempts", attempts, "retryIn", delay.String())
	return m.outbox.MarkPending(ctx, rec.ID, time.Now().UTC().Add(delay), &errText)
}

// nextRetryDelay doubles the wait per failed attempt, capped at one hour.
func nextRetryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := outboxRetryBaseDelay
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= outboxRetryMaxDelay {
			return outboxRetryMaxDelay
		}
	}
	return delay
}

func (m *Module) deliver(ctx context.Context, rec notificationoutbox.Record) error {
	switch rec.Template {
	case templateLeadAssigned:
		var p leadAssignedOutboxPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf(invalidOutboxPayloadPrefix+"%w", err)
		}
		return m.sender.SendLeadAssignedEmail(ctx, p.ToEmail, p.GestorName, p.CompanyName, p.ContactName, p.Stage)
	case templateRedistribution:
		var p redistributionOutboxPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf(invalidOutboxPayloadPrefix+"%w", err)
		}
		return m.sender.SendRedistributionEmail(ctx, p.ToEmail, p.GestorName, p.Reassigned)
	default:
		return fmt.Errorf(invalidOutboxPayloadPrefix+"unknown template %q", rec.Template)
	}
}

// resolveGestorContact looks up name and email for a user. Missing users
// resolve to empty strings so callers can skip the email channel.
func (m *Module) resolveGestorContact(ctx context.Context, userID uuid.UUID) (name, emailAddr string) {
	if m.pool == nil || userID == uuid.Nil {
		return "", ""
	}
	if err := m.pool.QueryRow(ctx, `SELECT name, email FROM users WHERE id = $1`, userID).Scan(&name, &emailAddr); err != nil {
		return "", ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(emailAddr)
}
