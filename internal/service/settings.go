// Package service contains the business logic layer.
//
// This file implements the settings service. Settings are loaded here
// and handed explicitly to the quote service and the document renderer;
// no component reads them from ambient state.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// SettingsService defines the interface for user settings operations.
type SettingsService interface {
	// Get retrieves a user's settings, falling back to the documented
	// defaults when the user never saved any.
	Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error)

	// Update validates and persists a user's settings.
	// Returns domain.EINVALID for validation errors.
	Update(ctx context.Context, params domain.UpdateSettingsParams) (*domain.Settings, error)
}

// =============================================================================
// Implementation
// =============================================================================

type settingsService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(queries *repository.Queries, logger *slog.Logger) SettingsService {
	return &settingsService{
		queries: queries,
		logger:  logger,
	}
}

// Get retrieves a user's settings or the defaults.
func (s *settingsService) Get(ctx context.Context, userID uuid.UUID) (*domain.Settings, error) {
	const op = "settings.get"

	row, err := s.queries.GetSettingsByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := domain.DefaultSettings(userID)
			return &defaults, nil
		}
		return nil, domain.Internal(err, op, "failed to get settings")
	}

	return rowToSettings(row), nil
}

// Update validates and persists settings.
func (s *settingsService) Update(ctx context.Context, params domain.UpdateSettingsParams) (*domain.Settings, error) {
	const op = "settings.update"

	if err := s.validateParams(params); err != nil {
		return nil, err
	}

	row, err := s.queries.UpsertSettings(ctx, repository.UpsertSettingsParams{
		UserID:               params.UserID,
		DefaultTaxRate:       params.DefaultTaxRate,
		DefaultValidityDays:  int32(params.DefaultValidityDays),
		QuotePrefix:          params.QuotePrefix,
		DefaultLegalMentions: params.DefaultLegalMentions,
		Theme:                string(params.Theme),
		Language:             string(params.Language),
		EmailOnQuoteCreated:  params.Notifications.EmailOnQuoteCreated,
		EmailOnQuoteAccepted: params.Notifications.EmailOnQuoteAccepted,
		WeeklyReport:         params.Notifications.WeeklyReport,
		ProductUpdates:       params.Notifications.ProductUpdates,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to save settings")
	}

	s.logger.Info("settings updated", "user_id", params.UserID)

	return rowToSettings(row), nil
}

// validateParams validates settings update parameters.
func (s *settingsService) validateParams(params domain.UpdateSettingsParams) error {
	const op = "settings.validate"

	if params.DefaultTaxRate < 0 || params.DefaultTaxRate > 100 {
		return domain.Invalid(op, "default tax rate must be between 0 and 100")
	}
	if params.DefaultValidityDays < 1 || params.DefaultValidityDays > 365 {
		return domain.Invalid(op, "default validity must be between 1 and 365 days")
	}
	if strings.TrimSpace(params.QuotePrefix) == "" {
		return domain.Invalid(op, "quote prefix is required")
	}
	if len(params.QuotePrefix) > 10 {
		return domain.Invalid(op, "quote prefix must be 10 characters or less")
	}
	if !params.Theme.IsValid() {
		return domain.Invalid(op, "unknown theme")
	}
	if !params.Language.IsValid() {
		return domain.Invalid(op, "unknown language")
	}

	return nil
}

// rowToSettings converts a repository settings row to the domain type.
func rowToSettings(row repository.Setting) *domain.Settings {
	updatedAt := domain.NullTimeValue(row.UpdatedAt)

	settings := &domain.Settings{
		UserID:               row.UserID,
		DefaultTaxRate:       row.DefaultTaxRate,
		DefaultValidityDays:  int(row.DefaultValidityDays),
		QuotePrefix:          row.QuotePrefix,
		DefaultLegalMentions: row.DefaultLegalMentions,
		Theme:                domain.Theme(row.Theme),
		Language:             domain.Language(row.Language),
		Notifications: domain.NotificationSettings{
			EmailOnQuoteCreated:  row.EmailOnQuoteCreated,
			EmailOnQuoteAccepted: row.EmailOnQuoteAccepted,
			WeeklyReport:         row.WeeklyReport,
			ProductUpdates:       row.ProductUpdates,
		},
	}
	if updatedAt != nil {
		settings.UpdatedAt = *updatedAt
	}
	return settings
}
