// Package domain contains core business types and interfaces.
//
// This file defines per-user settings. Settings are passed explicitly
// into the services and the renderer that consume them; nothing reads
// them from ambient state.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Theme and Language
// =============================================================================

// Theme is the dashboard color scheme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// IsValid returns true if the theme is a recognized value.
func (t Theme) IsValid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// Language is the dashboard display language.
type Language string

const (
	LanguageFrench  Language = "fr"
	LanguageEnglish Language = "en"
)

// IsValid returns true if the language is a recognized value.
func (l Language) IsValid() bool {
	return l == LanguageFrench || l == LanguageEnglish
}

// =============================================================================
// Settings Domain Type
// =============================================================================

// NotificationSettings holds the per-user email notification toggles.
type NotificationSettings struct {
	EmailOnQuoteCreated  bool
	EmailOnQuoteAccepted bool
	WeeklyReport         bool
	ProductUpdates       bool
}

// Settings holds per-user defaults applied when a new quote is
// initialized, plus display preferences.
type Settings struct {
	UserID               uuid.UUID
	DefaultTaxRate       float64 // VAT percentage applied to new quotes
	DefaultValidityDays  int     // Offer validity window for new quotes
	QuotePrefix          string  // Prefix of generated quote numbers
	DefaultLegalMentions string  // Legal footer text for documents
	Theme                Theme
	Language             Language
	Notifications        NotificationSettings
	UpdatedAt            time.Time
}

// DefaultSettings returns the settings applied to a user who has never
// saved any.
func DefaultSettings(userID uuid.UUID) Settings {
	return Settings{
		UserID:               userID,
		DefaultTaxRate:       20,
		DefaultValidityDays:  30,
		QuotePrefix:          "DEV-",
		DefaultLegalMentions: "Devis valable 30 jours. Acompte de 30% à la commande.",
		Theme:                ThemeSystem,
		Language:             LanguageFrench,
		Notifications: NotificationSettings{
			EmailOnQuoteCreated:  true,
			EmailOnQuoteAccepted: true,
			WeeklyReport:         false,
			ProductUpdates:       true,
		},
	}
}

// =============================================================================
// Settings Service Parameters
// =============================================================================

// UpdateSettingsParams contains validated parameters for saving settings.
type UpdateSettingsParams struct {
	UserID               uuid.UUID
	DefaultTaxRate       float64 // 0..100
	DefaultValidityDays  int     // 1..365
	QuotePrefix          string
	DefaultLegalMentions string
	Theme                Theme
	Language             Language
	Notifications        NotificationSettings
}
