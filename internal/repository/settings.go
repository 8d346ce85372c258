package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const settingColumns = `user_id, default_tax_rate, default_validity_days, quote_prefix,
	default_legal_mentions, theme, language, email_on_quote_created,
	email_on_quote_accepted, weekly_report, product_updates, updated_at`

func scanSetting(row *sql.Row) (Setting, error) {
	var s Setting
	err := row.Scan(
		&s.UserID, &s.DefaultTaxRate, &s.DefaultValidityDays, &s.QuotePrefix,
		&s.DefaultLegalMentions, &s.Theme, &s.Language, &s.EmailOnQuoteCreated,
		&s.EmailOnQuoteAccepted, &s.WeeklyReport, &s.ProductUpdates, &s.UpdatedAt,
	)
	return s, err
}

// GetSettingsByUserID fetches a user's stored settings.
func (q *Queries) GetSettingsByUserID(ctx context.Context, userID uuid.UUID) (Setting, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+settingColumns+` FROM settings WHERE user_id = $1`, userID)
	return scanSetting(row)
}

// UpsertSettingsParams contains the writable settings fields.
type UpsertSettingsParams struct {
	UserID               uuid.UUID
	DefaultTaxRate       float64
	DefaultValidityDays  int32
	QuotePrefix          string
	DefaultLegalMentions string
	Theme                string
	Language             string
	EmailOnQuoteCreated  bool
	EmailOnQuoteAccepted bool
	WeeklyReport         bool
	ProductUpdates       bool
}

// UpsertSettings creates or replaces a user's settings row.
func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) (Setting, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO settings (user_id, default_tax_rate, default_validity_days, quote_prefix,
			default_legal_mentions, theme, language, email_on_quote_created,
			email_on_quote_accepted, weekly_report, product_updates)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE
		SET default_tax_rate = EXCLUDED.default_tax_rate,
			default_validity_days = EXCLUDED.default_validity_days,
			quote_prefix = EXCLUDED.quote_prefix,
			default_legal_mentions = EXCLUDED.default_legal_mentions,
			theme = EXCLUDED.theme,
			language = EXCLUDED.language,
			email_on_quote_created = EXCLUDED.email_on_quote_created,
			email_on_quote_accepted = EXCLUDED.email_on_quote_accepted,
			weekly_report = EXCLUDED.weekly_report,
			product_updates = EXCLUDED.product_updates,
			updated_at = now()
		RETURNING `+settingColumns,
		arg.UserID, arg.DefaultTaxRate, arg.DefaultValidityDays, arg.QuotePrefix,
		arg.DefaultLegalMentions, arg.Theme, arg.Language, arg.EmailOnQuoteCreated,
		arg.EmailOnQuoteAccepted, arg.WeeklyReport, arg.ProductUpdates,
	)
	return scanSetting(row)
}
