// Package email provides email sending functionality for the Artisia application.
//
// This package defines an EmailService interface with implementations for:
// - SMTP (for development with Mailhog and production with services like Postmark SMTP)
// - Future: Postmark API implementation for advanced features
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService defines the interface for sending transactional emails.
//
// Implementations:
// - SMTPEmailService: Uses SMTP protocol (Mailhog for dev, Postmark SMTP for prod)
//
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendVerificationEmail sends an email verification link to a new user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - token: Raw verification token to include in the link
	SendVerificationEmail(ctx context.Context, to, name, token string) error

	// SendPasswordResetEmail sends a password reset link to a user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - token: Raw reset token to include in the link
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error

	// SendQuoteCreatedEmail confirms to the craftsperson that a quote
	// was created.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - quote: Summary of the quote the email is about
	SendQuoteCreatedEmail(ctx context.Context, to, name string, quote QuoteSummary) error

	// SendQuoteAcceptedEmail notifies the craftsperson that a client
	// accepted a quote.
	SendQuoteAcceptedEmail(ctx context.Context, to, name string, quote QuoteSummary) error

	// SendWeeklyReportEmail sends the weekly activity summary.
	SendWeeklyReportEmail(ctx context.Context, to, name string, report WeeklyReport) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// QuoteSummary carries the quote fields shown in notification emails.
type QuoteSummary struct {
	Number     string // Quote number, e.g. DEV-2026-042
	ClientName string // Client the quote is addressed to
	Total      string // Formatted total incl. tax, e.g. "4 920,00 €"
	QuoteURL   string // Link to the quote in the application
}

// WeeklyReport carries the figures for the weekly summary email.
type WeeklyReport struct {
	QuotesCreated  int64  // Quotes created this week
	QuotesAccepted int64  // Quotes accepted this week
	TotalAccepted  string // Formatted sum of accepted totals
	DashboardURL   string // Link to the dashboard
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@artisia.fr"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Artisia"
)
