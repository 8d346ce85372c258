// Package service contains the business logic layer.
//
// This file implements the quote service: aggregate computation,
// settings-derived defaults, numbering, the status state machine and
// the ledger side effects of each save.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/metrics"
	"github.com/tbouquin/artisia/internal/repository"
	"github.com/tbouquin/artisia/internal/worker"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuoteService defines the interface for quote-related operations.
type QuoteService interface {
	// Create creates a new quote in draft status, applying the user's
	// settings as defaults for tax rate, validity window and numbering.
	// Returns domain.EQUOTA when the monthly plan limit is reached and
	// domain.EINVALID for validation errors.
	Create(ctx context.Context, params domain.CreateQuoteParams) (*domain.Quote, error)

	// GetByID retrieves a quote by ID and user ID (for authorization).
	// Returns domain.ENOTFOUND if the quote does not exist or belongs to
	// another user.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Quote, error)

	// List retrieves a paginated list of quotes, newest first.
	List(ctx context.Context, params domain.ListQuotesParams) (*domain.ListQuotesResult, error)

	// Update rewrites a quote's content. Totals are recomputed
	// server-side; persisted line totals are never trusted. The quote's
	// ledger contribution is superseded, not duplicated.
	Update(ctx context.Context, params domain.UpdateQuoteParams) (*domain.Quote, error)

	// UpdateStatus applies a lifecycle transition. Out-of-order writes
	// are rejected with domain.ECONFLICT.
	UpdateStatus(ctx context.Context, params domain.UpdateQuoteStatusParams) (*domain.Quote, error)

	// Delete removes a quote permanently and reverses its ledger
	// contribution.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type quoteService struct {
	queries  *repository.Queries
	clients  ClientService
	quota    QuotaService
	settings SettingsService
	logger   *slog.Logger
}

// NewQuoteService creates a new QuoteService.
//
// Settings are consumed through the injected SettingsService; the
// quote service never reads preferences from anywhere else.
func NewQuoteService(
	queries *repository.Queries,
	clients ClientService,
	quota QuotaService,
	settings SettingsService,
	logger *slog.Logger,
) QuoteService {
	return &quoteService{
		queries:  queries,
		clients:  clients,
		quota:    quota,
		settings: settings,
		logger:   logger,
	}
}

// =============================================================================
// Create
// =============================================================================

// Create creates a new quote in draft status.
func (s *quoteService) Create(ctx context.Context, params domain.CreateQuoteParams) (*domain.Quote, error) {
	const op = "quote.create"

	if strings.TrimSpace(params.ClientName) == "" {
		return nil, domain.Invalid(op, "client name is required")
	}

	user, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to get user")
	}
	tier := domain.SubscriptionTier(user.SubscriptionTier)
	if domain.SubscriptionStatus(user.SubscriptionStatus) != domain.SubscriptionStatusActive &&
		domain.SubscriptionStatus(user.SubscriptionStatus) != domain.SubscriptionStatusTrialing {
		tier = domain.SubscriptionTierFree
	}
	if err := s.quota.CheckQuoteQuota(ctx, params.UserID, tier); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	quote := &domain.Quote{
		UserID:        params.UserID,
		Number:        generateQuoteNumber(settings.QuotePrefix),
		ClientName:    strings.TrimSpace(params.ClientName),
		ClientEmail:   params.ClientEmail,
		ClientAddress: params.ClientAddress,
		Items:         itemsFromParams(params.Items),
		Status:        domain.QuoteStatusDraft,
		Notes:         params.Notes,
	}

	// Settings defaults apply only where the editor left fields unset
	if params.TaxRate != nil {
		quote.TaxRate = *params.TaxRate
	} else {
		quote.TaxRate = settings.DefaultTaxRate
	}
	if params.ValidUntil != nil {
		quote.ValidUntil = params.ValidUntil
	} else {
		validUntil := time.Now().AddDate(0, 0, settings.DefaultValidityDays)
		quote.ValidUntil = &validUntil
	}

	quote.Recompute()

	itemsJSON, err := marshalItems(quote.Items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode items")
	}

	row, err := s.queries.CreateQuote(ctx, repository.CreateQuoteParams{
		UserID:        quote.UserID,
		Number:        quote.Number,
		ClientName:    quote.ClientName,
		ClientEmail:   domain.ToNullString(quote.ClientEmail),
		ClientAddress: domain.ToNullString(quote.ClientAddress),
		Items:         itemsJSON,
		TaxRate:       quote.TaxRate,
		Subtotal:      quote.Subtotal,
		TaxAmount:     quote.TaxAmount,
		Total:         quote.Total,
		Status:        quote.Status.String(),
		ValidUntil:    toNullTime(quote.ValidUntil),
		Notes:         domain.ToNullString(quote.Notes),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create quote")
	}

	created, err := rowToQuote(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode quote")
	}

	s.applyLedger(ctx, created)
	s.notifyQuoteCreated(ctx, settings, created)
	metrics.QuotesCreated.Inc()

	s.logger.Info("quote created",
		"quote_id", created.ID,
		"user_id", params.UserID,
		"number", created.Number,
		"total", created.Total,
	)

	return created, nil
}

// generateQuoteNumber builds a human-readable number like DEV-2026-042.
func generateQuoteNumber(prefix string) string {
	return fmt.Sprintf("%s%d-%03d", prefix, time.Now().Year(), rand.IntN(1000))
}

// =============================================================================
// GetByID / List
// =============================================================================

// GetByID retrieves a quote by ID.
func (s *quoteService) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Quote, error) {
	const op = "quote.get"

	row, err := s.queries.GetQuoteByIDAndUserID(ctx, repository.GetQuoteByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "quote", id.String())
		}
		return nil, domain.Internal(err, op, "failed to get quote")
	}

	quote, err := rowToQuote(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode quote")
	}
	return quote, nil
}

// List retrieves a paginated list of quotes, newest first.
func (s *quoteService) List(ctx context.Context, params domain.ListQuotesParams) (*domain.ListQuotesResult, error) {
	const op = "quote.list"

	total, err := s.queries.CountQuotesByUserID(ctx, params.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count quotes")
	}

	rows, err := s.queries.ListQuotesByUserID(ctx, repository.ListQuotesByUserIDParams{
		UserID: params.UserID,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list quotes")
	}

	quotes := make([]domain.Quote, 0, len(rows))
	for _, row := range rows {
		quote, err := rowToQuote(row)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to decode quote")
		}
		quotes = append(quotes, *quote)
	}

	return &domain.ListQuotesResult{
		Quotes: quotes,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

// =============================================================================
// Update
// =============================================================================

// Update rewrites a quote's content and supersedes its ledger share.
func (s *quoteService) Update(ctx context.Context, params domain.UpdateQuoteParams) (*domain.Quote, error) {
	const op = "quote.update"

	if strings.TrimSpace(params.ClientName) == "" {
		return nil, domain.Invalid(op, "client name is required")
	}

	// Verify the quote exists and belongs to the user
	_, err := s.queries.GetQuoteByIDAndUserID(ctx, repository.GetQuoteByIDAndUserIDParams{
		ID:     params.ID,
		UserID: params.UserID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "quote", params.ID.String())
		}
		return nil, domain.Internal(err, op, "failed to get quote")
	}

	quote := &domain.Quote{
		ID:      params.ID,
		UserID:  params.UserID,
		Items:   itemsFromParams(params.Items),
		TaxRate: params.TaxRate,
	}
	quote.Recompute()

	itemsJSON, err := marshalItems(quote.Items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode items")
	}

	row, err := s.queries.UpdateQuoteByIDAndUserID(ctx, repository.UpdateQuoteByIDAndUserIDParams{
		ID:            params.ID,
		UserID:        params.UserID,
		ClientName:    strings.TrimSpace(params.ClientName),
		ClientEmail:   domain.ToNullString(params.ClientEmail),
		ClientAddress: domain.ToNullString(params.ClientAddress),
		Items:         itemsJSON,
		TaxRate:       quote.TaxRate,
		Subtotal:      quote.Subtotal,
		TaxAmount:     quote.TaxAmount,
		Total:         quote.Total,
		ValidUntil:    toNullTime(params.ValidUntil),
		Notes:         domain.ToNullString(params.Notes),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to update quote")
	}

	updated, err := rowToQuote(row)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode quote")
	}

	s.applyLedger(ctx, updated)

	s.logger.Info("quote updated",
		"quote_id", updated.ID,
		"user_id", params.UserID,
		"total", updated.Total,
	)

	return updated, nil
}

// =============================================================================
// UpdateStatus
// =============================================================================

// UpdateStatus applies a lifecycle transition.
func (s *quoteService) UpdateStatus(ctx context.Context, params domain.UpdateQuoteStatusParams) (*domain.Quote, error) {
	const op = "quote.update_status"

	quote, err := s.GetByID(ctx, params.ID, params.UserID)
	if err != nil {
		return nil, err
	}

	next, err := quote.Status.TransitionTo(params.Status)
	if err != nil {
		return nil, domain.Conflict(op, err.Error())
	}
	if next == quote.Status {
		return quote, nil
	}

	if err := s.queries.UpdateQuoteStatus(ctx, repository.UpdateQuoteStatusParams{
		ID:     params.ID,
		UserID: params.UserID,
		Status: next.String(),
	}); err != nil {
		return nil, domain.Internal(err, op, "failed to update status")
	}
	quote.Status = next
	metrics.QuoteStatusChanges.WithLabelValues(next.String()).Inc()

	if next == domain.QuoteStatusAccepted {
		settings, err := s.settings.Get(ctx, params.UserID)
		if err == nil && settings.Notifications.EmailOnQuoteAccepted {
			s.enqueueQuoteEmail(ctx, quote, worker.QuoteEmailAccepted)
		}
	}

	s.logger.Info("quote status changed",
		"quote_id", params.ID,
		"user_id", params.UserID,
		"status", next,
	)

	return quote, nil
}

// =============================================================================
// Delete
// =============================================================================

// Delete removes a quote and reverses its ledger contribution.
func (s *quoteService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	const op = "quote.delete"

	_, err := s.queries.GetQuoteByIDAndUserID(ctx, repository.GetQuoteByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFound(op, "quote", id.String())
		}
		return domain.Internal(err, op, "failed to get quote")
	}

	// Best-effort, same policy as application: a ledger failure never
	// blocks the primary path.
	if err := s.clients.ReverseQuote(ctx, id); err != nil {
		s.logger.Error("failed to reverse ledger contribution",
			"quote_id", id,
			"error", err,
		)
	}

	if err := s.queries.DeleteQuoteByIDAndUserID(ctx, repository.DeleteQuoteByIDAndUserIDParams{
		ID:     id,
		UserID: userID,
	}); err != nil {
		return domain.Internal(err, op, "failed to delete quote")
	}

	s.logger.Info("quote deleted",
		"quote_id", id,
		"user_id", userID,
	)

	return nil
}

// =============================================================================
// Side Effects
// =============================================================================

// applyLedger credits the quote to the client ledger. Failures are
// logged and swallowed so they never block the quote save.
func (s *quoteService) applyLedger(ctx context.Context, quote *domain.Quote) {
	if err := s.clients.ApplyQuote(ctx, quote.UserID, quote); err != nil {
		s.logger.Error("failed to apply ledger contribution",
			"quote_id", quote.ID,
			"user_id", quote.UserID,
			"error", err,
		)
	}
}

// notifyQuoteCreated enqueues the creation email when the user opted in.
func (s *quoteService) notifyQuoteCreated(ctx context.Context, settings *domain.Settings, quote *domain.Quote) {
	if !settings.Notifications.EmailOnQuoteCreated {
		return
	}
	s.enqueueQuoteEmail(ctx, quote, worker.QuoteEmailCreated)
}

func (s *quoteService) enqueueQuoteEmail(ctx context.Context, quote *domain.Quote, kind string) {
	if _, err := worker.EnqueueSendQuoteEmail(ctx, s.queries, quote.ID, quote.UserID, kind); err != nil {
		s.logger.Error("failed to enqueue quote email",
			"quote_id", quote.ID,
			"kind", kind,
			"error", err,
		)
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// itemsFromParams converts editor item params into recomputed line
// items, preserving existing identities where provided.
func itemsFromParams(params []domain.QuoteItemParams) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(params))
	for _, p := range params {
		item := domain.LineItem{
			Description: p.Description,
			Quantity:    p.Quantity,
			Unit:        p.Unit,
			UnitPrice:   p.UnitPrice,
		}
		if p.ID != nil {
			item.ID = *p.ID
		} else {
			item.ID = uuid.New()
		}
		item.Recompute()
		items = append(items, item)
	}
	return items
}

func marshalItems(items []domain.LineItem) (json.RawMessage, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(items)
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// rowToQuote converts a repository quote row to a domain Quote.
func rowToQuote(row repository.Quote) (*domain.Quote, error) {
	var items []domain.LineItem
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	}

	quote := &domain.Quote{
		ID:            row.ID,
		UserID:        row.UserID,
		Number:        row.Number,
		ClientName:    row.ClientName,
		ClientEmail:   domain.NullStringValue(row.ClientEmail),
		ClientAddress: domain.NullStringValue(row.ClientAddress),
		Items:         items,
		TaxRate:       row.TaxRate,
		Subtotal:      row.Subtotal,
		TaxAmount:     row.TaxAmount,
		Total:         row.Total,
		Status:        domain.QuoteStatus(row.Status),
		ValidUntil:    domain.NullTimeValue(row.ValidUntil),
		Notes:         domain.NullStringValue(row.Notes),
	}
	if t := domain.NullTimeValue(row.CreatedAt); t != nil {
		quote.CreatedAt = *t
	}
	if t := domain.NullTimeValue(row.UpdatedAt); t != nil {
		quote.UpdatedAt = *t
	}
	return quote, nil
}
