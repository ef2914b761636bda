// Package email delivers transactional email for assignment events.
package email

import "context"

// Sender delivers the assignment emails. Implementations render the shared
// HTML templates and differ only in transport.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail, gestorName, companyName, contactName, stage string) error
	SendRedistributionEmail(ctx context.Context, toEmail, gestorName string, reassigned int) error
}

// NoopSender drops every email. Used when EMAIL_ENABLED is off so the rest
// of the notification path still runs in development.
type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(ctx context.Context, toEmail, gestorName, companyName, contactName, stage string) error {
	return nil
}

func (NoopSender) SendRedistributionEmail(ctx context.Context, toEmail, gestorName string, reassigned int) error {
	return nil
}
