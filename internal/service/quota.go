// Package service contains the business logic layer.
//
// This file implements the quota service enforcing the free plan's
// monthly limits on quote creation and AI drafting calls.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService defines operations for checking plan limits.
type QuotaService interface {
	// GetUsage returns the current quota usage for a user.
	GetUsage(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.QuotaUsage, error)

	// CheckQuoteQuota checks if the user may create another quote this
	// month. Returns nil if quota is available, or a domain.EQUOTA error
	// if not.
	CheckQuoteQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error

	// CheckAIQuota checks if the user may make another AI drafting call
	// this month. Returns nil if quota is available, or a domain.EQUOTA
	// error if not.
	CheckAIQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error

	// RecordAICall counts one completed AI drafting call against the
	// user's monthly quota.
	RecordAICall(ctx context.Context, userID uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewQuotaService creates a new QuotaService.
func NewQuotaService(queries *repository.Queries, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries: queries,
		logger:  logger,
	}
}

// GetUsage returns the current quota usage for a user.
func (s *quotaService) GetUsage(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) (*domain.QuotaUsage, error) {
	const op = "quota.get_usage"

	quota := domain.GetTierQuota(tier)

	if quota.UnlimitedQuotes {
		return &domain.QuotaUsage{
			IsUnlimited: true,
		}, nil
	}

	startOfMonth := currentMonthStart()

	quoteCount, err := s.queries.CountQuotesCreatedSince(ctx, repository.CountQuotesCreatedSinceParams{
		UserID: userID,
		Since:  startOfMonth,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count quotes")
	}

	aiCount, err := s.queries.CountAICallsSince(ctx, repository.CountAICallsSinceParams{
		UserID: userID,
		Since:  startOfMonth,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to count ai calls")
	}

	return &domain.QuotaUsage{
		QuotesUsed:   quoteCount,
		QuotesLimit:  int64(quota.QuotesPerMonth),
		AICallsUsed:  aiCount,
		AICallsLimit: int64(quota.AICallsPerMonth),
		IsUnlimited:  false,
	}, nil
}

// CheckQuoteQuota checks if the user has quota remaining for quotes.
func (s *quotaService) CheckQuoteQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error {
	const op = "quota.check_quotes"

	quota := domain.GetTierQuota(tier)

	// Unlimited tier - always allow
	if quota.UnlimitedQuotes {
		return nil
	}

	startOfMonth := currentMonthStart()

	count, err := s.queries.CountQuotesCreatedSince(ctx, repository.CountQuotesCreatedSinceParams{
		UserID: userID,
		Since:  startOfMonth,
	})
	if err != nil {
		return domain.Internal(err, op, "failed to count quotes")
	}

	limit := int64(quota.QuotesPerMonth)
	if count >= limit {
		s.logger.Info("Quote quota exceeded",
			"user_id", userID,
			"tier", tier,
			"used", count,
			"limit", limit,
		)
		return domain.QuotaExceeded(op, domain.QuotaTypeQuotes, count, limit)
	}

	return nil
}

// CheckAIQuota checks if the user has quota remaining for AI calls.
func (s *quotaService) CheckAIQuota(ctx context.Context, userID uuid.UUID, tier domain.SubscriptionTier) error {
	const op = "quota.check_ai"

	quota := domain.GetTierQuota(tier)

	if quota.UnlimitedAI {
		return nil
	}

	startOfMonth := currentMonthStart()

	count, err := s.queries.CountAICallsSince(ctx, repository.CountAICallsSinceParams{
		UserID: userID,
		Since:  startOfMonth,
	})
	if err != nil {
		return domain.Internal(err, op, "failed to count ai calls")
	}

	limit := int64(quota.AICallsPerMonth)
	if count >= limit {
		s.logger.Info("AI quota exceeded",
			"user_id", userID,
			"tier", tier,
			"used", count,
			"limit", limit,
		)
		return domain.QuotaExceeded(op, domain.QuotaTypeAI, count, limit)
	}

	return nil
}

// RecordAICall counts one completed AI call against the monthly quota.
func (s *quotaService) RecordAICall(ctx context.Context, userID uuid.UUID) error {
	const op = "quota.record_ai_call"

	if err := s.queries.InsertAICall(ctx, userID); err != nil {
		return domain.Internal(err, op, "failed to record ai call")
	}
	return nil
}

// currentMonthStart returns the start of the current month in UTC.
func currentMonthStart() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
