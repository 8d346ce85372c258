// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements settings handlers for the user profile, password
// and quote default preferences.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/csrf"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/service"
)

// SettingsHandler handles settings-related HTTP requests.
//
// Routes handled:
// - GET  /settings               -> ShowProfile
// - POST /settings/profile       -> UpdateProfile
// - GET  /settings/password      -> ShowPassword
// - POST /settings/password      -> ChangePassword
// - GET  /settings/quotes        -> ShowQuoteDefaults
// - POST /settings/quotes        -> UpdateQuoteDefaults
// - POST /settings/notifications -> UpdateNotifications
type SettingsHandler struct {
	userService     service.UserService
	settingsService service.SettingsService
	renderer        TemplateRenderer
	logger          *slog.Logger
	isSecure        bool
}

// NewSettingsHandler creates a new SettingsHandler with the required dependencies.
func NewSettingsHandler(
	userService service.UserService,
	settingsService service.SettingsService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *SettingsHandler {
	return &SettingsHandler{
		userService:     userService,
		settingsService: settingsService,
		renderer:        renderer,
		logger:          logger,
		isSecure:        isSecure,
	}
}

// SettingsPageData contains data for settings pages.
type SettingsPageData struct {
	CurrentPath string
	User        *domain.User
	Settings    *domain.Settings
	CSRFToken   string
	Form        map[string]string
	Errors      map[string]string
	Flash       *Flash
	ActiveTab   string // "profile", "password" or "quotes"
}

// =============================================================================
// GET /settings - Show Profile Form
// =============================================================================

// ShowProfile renders the profile settings form.
func (h *SettingsHandler) ShowProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	var flash *Flash
	if r.URL.Query().Get("updated") == "1" {
		flash = &Flash{
			Type:    "success",
			Message: "Profil mis à jour.",
		}
	}

	data := SettingsPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form: map[string]string{
			"Name":  user.Name,
			"Phone": user.Phone,
		},
		Errors:    make(map[string]string),
		Flash:     flash,
		ActiveTab: "profile",
	}

	h.renderer.RenderHTTP(w, "settings/profile", data)
}

// =============================================================================
// POST /settings/profile - Update Profile
// =============================================================================

// UpdateProfile processes the profile update form submission.
func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderProfileError(w, r, user, nil, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	if !csrf.ValidateRequest(r) {
		h.renderProfileError(w, r, user, nil, nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	phone := strings.TrimSpace(r.FormValue("phone"))

	formValues := map[string]string{
		"Name":  name,
		"Phone": phone,
	}

	errors := make(map[string]string)

	if name == "" {
		errors["name"] = "Le nom est requis"
	} else if len(name) > 255 {
		errors["name"] = "Le nom doit faire 255 caractères au maximum"
	}

	if len(phone) > 50 {
		errors["phone"] = "Le téléphone doit faire 50 caractères au maximum"
	}

	if len(errors) > 0 {
		h.renderProfileError(w, r, user, formValues, errors, nil)
		return
	}

	err := h.userService.UpdateProfile(r.Context(), domain.ProfileUpdateParams{
		UserID: user.ID,
		Name:   name,
		Phone:  phone,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.renderProfileError(w, r, user, formValues, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		default:
			h.logger.Error("profile update failed", "error", err, "user_id", user.ID)
			h.renderProfileError(w, r, user, formValues, nil, &Flash{
				Type:    "error",
				Message: "La mise à jour a échoué. Veuillez réessayer plus tard.",
			})
		}
		return
	}

	h.logger.Info("user profile updated", "user_id", user.ID)

	http.Redirect(w, r, "/settings?updated=1", http.StatusSeeOther)
}

// renderProfileError re-renders the profile form with errors.
func (h *SettingsHandler) renderProfileError(
	w http.ResponseWriter,
	r *http.Request,
	user *domain.User,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = map[string]string{
			"Name":  user.Name,
			"Phone": user.Phone,
		}
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := SettingsPageData{
		CurrentPath: "/settings",
		User:        user,
		CSRFToken:   csrf.RefreshToken(w, h.isSecure),
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
		ActiveTab:   "profile",
	}

	h.renderer.RenderHTTP(w, "settings/profile", data)
}

// =============================================================================
// GET /settings/password - Show Password Form
// =============================================================================

// ShowPassword renders the password change form.
func (h *SettingsHandler) ShowPassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := SettingsPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        make(map[string]string),
		Errors:      make(map[string]string),
		ActiveTab:   "password",
	}

	h.renderer.RenderHTTP(w, "settings/password", data)
}

// =============================================================================
// POST /settings/password - Change Password
// =============================================================================

// ChangePassword processes the password change form submission.
// A successful change invalidates every session, so the user is sent
// back to the login page.
func (h *SettingsHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderPasswordError(w, r, user, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	if !csrf.ValidateRequest(r) {
		h.renderPasswordError(w, r, user, nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	confirmPassword := r.FormValue("confirm_password")

	errors := make(map[string]string)

	if currentPassword == "" {
		errors["current_password"] = "Le mot de passe actuel est requis"
	}

	if newPassword == "" {
		errors["new_password"] = "Le nouveau mot de passe est requis"
	} else if len(newPassword) < 8 {
		errors["new_password"] = "Le mot de passe doit contenir au moins 8 caractères"
	}

	if confirmPassword == "" {
		errors["confirm_password"] = "Veuillez confirmer votre nouveau mot de passe"
	} else if newPassword != confirmPassword {
		errors["confirm_password"] = "Les mots de passe ne correspondent pas"
	}

	if len(errors) > 0 {
		h.renderPasswordError(w, r, user, errors, nil)
		return
	}

	err := h.userService.ChangePassword(r.Context(), domain.PasswordChangeParams{
		UserID:          user.ID,
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EUNAUTHORIZED:
			errors["current_password"] = "Le mot de passe actuel est incorrect"
			h.renderPasswordError(w, r, user, errors, nil)
		case domain.EINVALID:
			h.renderPasswordError(w, r, user, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		default:
			h.logger.Error("password change failed", "error", err, "user_id", user.ID)
			h.renderPasswordError(w, r, user, nil, &Flash{
				Type:    "error",
				Message: "Le changement de mot de passe a échoué. Veuillez réessayer plus tard.",
			})
		}
		return
	}

	h.logger.Info("user password changed", "user_id", user.ID)

	// Password change invalidates all sessions, so redirect to login
	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}

// renderPasswordError re-renders the password form with errors.
func (h *SettingsHandler) renderPasswordError(
	w http.ResponseWriter,
	r *http.Request,
	user *domain.User,
	errors map[string]string,
	flash *Flash,
) {
	if errors == nil {
		errors = make(map[string]string)
	}

	data := SettingsPageData{
		CurrentPath: "/settings/password",
		User:        user,
		CSRFToken:   csrf.RefreshToken(w, h.isSecure),
		Form:        make(map[string]string), // Never re-populate password fields
		Errors:      errors,
		Flash:       flash,
		ActiveTab:   "password",
	}

	h.renderer.RenderHTTP(w, "settings/password", data)
}

// =============================================================================
// GET /settings/quotes - Show Quote Defaults
// =============================================================================

// ShowQuoteDefaults renders the quote defaults form with the user's
// current settings (or the documented defaults).
func (h *SettingsHandler) ShowQuoteDefaults(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	settings, err := h.settingsService.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load settings", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var flash *Flash
	if r.URL.Query().Get("updated") == "1" {
		flash = &Flash{
			Type:    "success",
			Message: "Préférences enregistrées.",
		}
	}

	data := SettingsPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Settings:    settings,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
		Form:        quoteDefaultsForm(settings),
		Errors:      make(map[string]string),
		Flash:       flash,
		ActiveTab:   "quotes",
	}

	h.renderer.RenderHTTP(w, "settings/quotes", data)
}

// quoteDefaultsForm seeds the form values from saved settings.
func quoteDefaultsForm(settings *domain.Settings) map[string]string {
	return map[string]string{
		"DefaultTaxRate":       strconv.FormatFloat(settings.DefaultTaxRate, 'f', -1, 64),
		"DefaultValidityDays":  strconv.Itoa(settings.DefaultValidityDays),
		"QuotePrefix":          settings.QuotePrefix,
		"DefaultLegalMentions": settings.DefaultLegalMentions,
		"Theme":                string(settings.Theme),
		"Language":             string(settings.Language),
	}
}

// =============================================================================
// POST /settings/quotes - Update Quote Defaults
// =============================================================================

// UpdateQuoteDefaults processes the quote defaults form submission.
func (h *SettingsHandler) UpdateQuoteDefaults(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	current, err := h.settingsService.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load settings", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderQuoteDefaultsError(w, r, user, current, nil, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	if !csrf.ValidateRequest(r) {
		h.renderQuoteDefaultsError(w, r, user, current, nil, nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	taxRateStr := strings.TrimSpace(r.FormValue("default_tax_rate"))
	validityStr := strings.TrimSpace(r.FormValue("default_validity_days"))
	prefix := strings.TrimSpace(r.FormValue("quote_prefix"))
	legalMentions := strings.TrimSpace(r.FormValue("default_legal_mentions"))
	theme := domain.Theme(r.FormValue("theme"))
	lang := domain.Language(r.FormValue("language"))

	formValues := map[string]string{
		"DefaultTaxRate":       taxRateStr,
		"DefaultValidityDays":  validityStr,
		"QuotePrefix":          prefix,
		"DefaultLegalMentions": legalMentions,
		"Theme":                string(theme),
		"Language":             string(lang),
	}

	errors := make(map[string]string)

	taxRate, err := strconv.ParseFloat(taxRateStr, 64)
	if err != nil || taxRate < 0 || taxRate > 100 {
		errors["default_tax_rate"] = "Le taux de TVA doit être compris entre 0 et 100"
	}

	validityDays, err := strconv.Atoi(validityStr)
	if err != nil || validityDays < 1 || validityDays > 365 {
		errors["default_validity_days"] = "La durée de validité doit être comprise entre 1 et 365 jours"
	}

	if !theme.IsValid() {
		theme = current.Theme
	}
	if !lang.IsValid() {
		lang = current.Language
	}

	if len(errors) > 0 {
		h.renderQuoteDefaultsError(w, r, user, current, formValues, errors, nil)
		return
	}

	_, err = h.settingsService.Update(r.Context(), domain.UpdateSettingsParams{
		UserID:               user.ID,
		DefaultTaxRate:       taxRate,
		DefaultValidityDays:  validityDays,
		QuotePrefix:          prefix,
		DefaultLegalMentions: legalMentions,
		Theme:                theme,
		Language:             lang,
		Notifications:        current.Notifications,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.renderQuoteDefaultsError(w, r, user, current, formValues, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		default:
			h.logger.Error("settings update failed", "error", err, "user_id", user.ID)
			h.renderQuoteDefaultsError(w, r, user, current, formValues, nil, &Flash{
				Type:    "error",
				Message: "L'enregistrement a échoué. Veuillez réessayer plus tard.",
			})
		}
		return
	}

	h.logger.Info("quote defaults updated", "user_id", user.ID)

	http.Redirect(w, r, "/settings/quotes?updated=1", http.StatusSeeOther)
}

// renderQuoteDefaultsError re-renders the quote defaults form with errors.
func (h *SettingsHandler) renderQuoteDefaultsError(
	w http.ResponseWriter,
	r *http.Request,
	user *domain.User,
	settings *domain.Settings,
	formValues map[string]string,
	errors map[string]string,
	flash *Flash,
) {
	if formValues == nil {
		formValues = quoteDefaultsForm(settings)
	}
	if errors == nil {
		errors = make(map[string]string)
	}

	data := SettingsPageData{
		CurrentPath: "/settings/quotes",
		User:        user,
		Settings:    settings,
		CSRFToken:   csrf.RefreshToken(w, h.isSecure),
		Form:        formValues,
		Errors:      errors,
		Flash:       flash,
		ActiveTab:   "quotes",
	}

	h.renderer.RenderHTTP(w, "settings/quotes", data)
}

// =============================================================================
// POST /settings/notifications - Update Notification Toggles
// =============================================================================

// UpdateNotifications processes the notification toggles. Unchecked
// boxes are absent from the form payload, so every toggle is read
// explicitly.
func (h *SettingsHandler) UpdateNotifications(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	current, err := h.settingsService.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load settings", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		http.Redirect(w, r, "/settings/quotes", http.StatusSeeOther)
		return
	}

	if !csrf.ValidateRequest(r) {
		http.Redirect(w, r, "/settings/quotes", http.StatusSeeOther)
		return
	}

	notifications := domain.NotificationSettings{
		EmailOnQuoteCreated:  r.FormValue("email_on_quote_created") == "on",
		EmailOnQuoteAccepted: r.FormValue("email_on_quote_accepted") == "on",
		WeeklyReport:         r.FormValue("weekly_report") == "on",
		ProductUpdates:       r.FormValue("product_updates") == "on",
	}

	_, err = h.settingsService.Update(r.Context(), domain.UpdateSettingsParams{
		UserID:               user.ID,
		DefaultTaxRate:       current.DefaultTaxRate,
		DefaultValidityDays:  current.DefaultValidityDays,
		QuotePrefix:          current.QuotePrefix,
		DefaultLegalMentions: current.DefaultLegalMentions,
		Theme:                current.Theme,
		Language:             current.Language,
		Notifications:        notifications,
	})
	if err != nil {
		h.logger.Error("notification settings update failed", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("notification settings updated", "user_id", user.ID)

	http.Redirect(w, r, "/settings/quotes?updated=1", http.StatusSeeOther)
}

// =============================================================================
// Route Registration Helper
// =============================================================================

// RegisterRoutes registers all settings routes on the provided ServeMux.
func (h *SettingsHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /settings", requireUser(http.HandlerFunc(h.ShowProfile)))
	mux.Handle("POST /settings/profile", requireUser(http.HandlerFunc(h.UpdateProfile)))
	mux.Handle("GET /settings/password", requireUser(http.HandlerFunc(h.ShowPassword)))
	mux.Handle("POST /settings/password", requireUser(http.HandlerFunc(h.ChangePassword)))
	mux.Handle("GET /settings/quotes", requireUser(http.HandlerFunc(h.ShowQuoteDefaults)))
	mux.Handle("POST /settings/quotes", requireUser(http.HandlerFunc(h.UpdateQuoteDefaults)))
	mux.Handle("POST /settings/notifications", requireUser(http.HandlerFunc(h.UpdateNotifications)))
}
