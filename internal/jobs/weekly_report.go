package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/email"
	"github.com/tbouquin/artisia/internal/report"
	"github.com/tbouquin/artisia/internal/repository"
	"github.com/tbouquin/artisia/internal/worker"
)

// WeeklyReportHandler sends the weekly activity summary to users who
// opted in. One job per user, enqueued by the server's weekly ticker.
type WeeklyReportHandler struct {
	queries *repository.Queries
	emails  email.EmailService
	baseURL string
	logger  *slog.Logger
}

// NewWeeklyReportHandler creates a new handler for weekly summary jobs.
func NewWeeklyReportHandler(
	queries *repository.Queries,
	emails email.EmailService,
	baseURL string,
	logger *slog.Logger,
) *WeeklyReportHandler {
	return &WeeklyReportHandler{
		queries: queries,
		emails:  emails,
		baseURL: baseURL,
		logger:  logger,
	}
}

// Type returns the job type identifier.
func (h *WeeklyReportHandler) Type() string {
	return worker.JobTypeWeeklyReport
}

// Handle computes the past week's figures and sends the summary email.
func (h *WeeklyReportHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.WeeklyReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	user, err := h.queries.GetUserByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("user not found: %w", err))
		}
		return fmt.Errorf("fetch user: %w", err)
	}

	weekStart := time.Now().AddDate(0, 0, -7)

	created, err := h.queries.CountQuotesCreatedSince(ctx, repository.CountQuotesCreatedSinceParams{
		UserID: p.UserID,
		Since:  weekStart,
	})
	if err != nil {
		return fmt.Errorf("count created quotes: %w", err)
	}

	accepted, err := h.queries.CountQuotesByUserIDAndStatus(ctx, repository.CountQuotesByUserIDAndStatusParams{
		UserID: p.UserID,
		Status: domain.QuoteStatusAccepted.String(),
		Since:  weekStart,
	})
	if err != nil {
		return fmt.Errorf("count accepted quotes: %w", err)
	}

	acceptedTotal, err := h.queries.SumQuoteTotalsByUserIDAndStatus(ctx, repository.CountQuotesByUserIDAndStatusParams{
		UserID: p.UserID,
		Status: domain.QuoteStatusAccepted.String(),
		Since:  weekStart,
	})
	if err != nil {
		return fmt.Errorf("sum accepted totals: %w", err)
	}

	// A quiet week does not need an email
	if created == 0 && accepted == 0 {
		h.logger.Info("no activity this week, skipping summary", "user_id", p.UserID)
		return nil
	}

	summary := email.WeeklyReport{
		QuotesCreated:  created,
		QuotesAccepted: accepted,
		TotalAccepted:  report.FormatEUR(acceptedTotal),
		DashboardURL:   fmt.Sprintf("%s/dashboard", h.baseURL),
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}

	if err := h.emails.SendWeeklyReportEmail(ctx, user.Email, name, summary); err != nil {
		return fmt.Errorf("send weekly report email: %w", err)
	}

	h.logger.Info("weekly report sent", "user_id", p.UserID)

	return nil
}
