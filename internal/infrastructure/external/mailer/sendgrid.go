// Package mailer implements transactional email delivery via SendGrid.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/cohort-hub/cohort-engine/internal/domain/shared"
	"github.com/cohort-hub/cohort-engine/pkg/circuitbreaker"
	"github.com/cohort-hub/cohort-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// SENDGRID MAILER
// Email is a best-effort side effect: callers log failures and move on,
// so errors here must never surface as checkout or enrollment failures.
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the SendGrid mailer.
type Config struct {
	// APIKey is the SendGrid API key
	APIKey string

	// FromName is the sender display name
	FromName string

	// FromAddress is the sender email address
	FromAddress string

	// Logger for structured logging
	Logger *slog.Logger
}

// SendGridMailer sends transactional emails through SendGrid.
// Implements eventhandler.Mailer.
type SendGridMailer struct {
	client  *sendgrid.Client
	from    *mail.Email
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewSendGridMailer creates a new SendGrid-backed mailer.
func NewSendGridMailer(config Config) *SendGridMailer {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	logger := config.Logger

	return &SendGridMailer{
		client:  sendgrid.NewSendClient(config.APIKey),
		from:    mail.NewEmail(config.FromName, config.FromAddress),
		retrier: retry.MailerRetrier(),
		breaker: circuitbreaker.MailerBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		}),
		logger: logger,
	}
}

// SendEnrollmentConfirmation sends the enrollment confirmation email.
func (m *SendGridMailer) SendEnrollmentConfirmation(ctx context.Context, to string, vars map[string]string) error {
	subject := "You're in! Enrollment confirmed"
	body := buildEnrollmentBody(vars)

	message := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", to), body, "")

	err := m.breaker.Execute(ctx, func(ctx context.Context) error {
		return m.retrier.Do(ctx, func(ctx context.Context) error {
			resp, err := m.client.SendWithContext(ctx, message)
			if err != nil {
				return retry.Retryable(err)
			}
			if resp.StatusCode >= 500 || resp.StatusCode == 429 {
				return retry.Retryable(fmt.Errorf("sendgrid status %d", resp.StatusCode))
			}
			if resp.StatusCode >= 400 {
				return retry.Permanent(fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, resp.Body))
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMailerFailed, err)
	}

	m.logger.Debug("enrollment confirmation sent", "to", to)
	return nil
}

// buildEnrollmentBody renders the plain-text confirmation body.
func buildEnrollmentBody(vars map[string]string) string {
	var b strings.Builder
	b.WriteString("Your enrollment is confirmed.\n\n")
	if v := vars["cohort_id"]; v != "" {
		b.WriteString("Cohort: " + v + "\n")
	}
	if v := vars["course_id"]; v != "" {
		b.WriteString("Course: " + v + "\n")
	}
	if v := vars["enrollment_id"]; v != "" {
		b.WriteString("Reference: " + v + "\n")
	}
	b.WriteString("\nLessons unlock week by week at your cohort's release hour. See you in class!\n")
	return b.String()
}
