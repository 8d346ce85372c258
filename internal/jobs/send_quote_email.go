// Package jobs contains the background job handlers executed by the
// worker pool.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tbouquin/artisia/internal/email"
	"github.com/tbouquin/artisia/internal/report"
	"github.com/tbouquin/artisia/internal/repository"
	"github.com/tbouquin/artisia/internal/worker"
)

// SendQuoteEmailHandler processes quote notification jobs. It looks up
// the quote and its owner and sends the matching transactional email.
type SendQuoteEmailHandler struct {
	queries *repository.Queries
	emails  email.EmailService
	baseURL string
	logger  *slog.Logger
}

// NewSendQuoteEmailHandler creates a new handler for quote notification jobs.
func NewSendQuoteEmailHandler(
	queries *repository.Queries,
	emails email.EmailService,
	baseURL string,
	logger *slog.Logger,
) *SendQuoteEmailHandler {
	return &SendQuoteEmailHandler{
		queries: queries,
		emails:  emails,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *SendQuoteEmailHandler) Type() string {
	return worker.JobTypeSendQuoteEmail
}

// Handle executes the notification job.
func (h *SendQuoteEmailHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.SendQuoteEmailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	quote, err := h.queries.GetQuoteByIDAndUserID(ctx, repository.GetQuoteByIDAndUserIDParams{
		ID:     p.QuoteID,
		UserID: p.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The quote was deleted before the job ran. Nothing to send.
			h.logger.Info("quote gone, skipping notification", "quote_id", p.QuoteID)
			return nil
		}
		return fmt.Errorf("fetch quote: %w", err)
	}

	user, err := h.queries.GetUserByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("user not found: %w", err))
		}
		return fmt.Errorf("fetch user: %w", err)
	}

	summary := email.QuoteSummary{
		Number:     quote.Number,
		ClientName: quote.ClientName,
		Total:      report.FormatEUR(quote.Total),
		QuoteURL:   fmt.Sprintf("%s/quotes/%s", h.baseURL, quote.ID),
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}

	switch p.Kind {
	case worker.QuoteEmailCreated:
		err = h.emails.SendQuoteCreatedEmail(ctx, user.Email, name, summary)
	case worker.QuoteEmailAccepted:
		err = h.emails.SendQuoteAcceptedEmail(ctx, user.Email, name, summary)
	default:
		return worker.NewPermanentError(fmt.Errorf("unknown email kind: %s", p.Kind))
	}
	if err != nil {
		// SMTP errors are transient, let the worker retry
		return fmt.Errorf("send %s email: %w", p.Kind, err)
	}

	h.logger.Info("quote email sent",
		"quote_id", p.QuoteID,
		"user_id", p.UserID,
		"kind", p.Kind,
	)

	return nil
}
