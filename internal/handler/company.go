// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements the company profile page, including logo upload
// and removal.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/csrf"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/service"
)

// =============================================================================
// Template Data Types
// =============================================================================

// CompanyPageData contains data for the company profile page.
type CompanyPageData struct {
	CurrentPath string            // Current URL path
	User        *domain.User      // Authenticated user
	Company     *domain.Company   // Saved profile (nil before first save)
	LogoURL     string            // Time-limited logo URL, empty when none
	Form        map[string]string // Form field values
	Errors      map[string]string // Field-level validation errors
	Flash       *Flash            // Flash message (if any)
	CSRFToken   string            // CSRF token for form protection
}

// =============================================================================
// Handler Configuration
// =============================================================================

// CompanyHandler handles company profile HTTP requests.
type CompanyHandler struct {
	companyService service.CompanyService
	renderer       TemplateRenderer
	logger         *slog.Logger
	isSecure       bool
}

// NewCompanyHandler creates a new CompanyHandler.
func NewCompanyHandler(
	companyService service.CompanyService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		renderer:       renderer,
		logger:         logger,
		isSecure:       isSecure,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all company profile routes with the provided mux.
//
// All routes require authentication via the requireUser middleware.
//
// - GET    /company      -> Show
// - POST   /company      -> Save
// - POST   /company/logo -> UploadLogo
// - DELETE /company/logo -> RemoveLogo
func (h *CompanyHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /company", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("POST /company", requireUser(http.HandlerFunc(h.Save)))
	mux.Handle("POST /company/logo", requireUser(http.HandlerFunc(h.UploadLogo)))
	mux.Handle("DELETE /company/logo", requireUser(http.HandlerFunc(h.RemoveLogo)))
}

// =============================================================================
// GET /company - Company Profile
// =============================================================================

// Show displays the company profile form, seeded from the saved profile
// when one exists.
func (h *CompanyHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("show handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	company, err := h.companyService.Get(r.Context(), user.ID)
	if err != nil && domain.ErrorCode(err) != domain.ENOTFOUND {
		h.logger.Error("failed to load company profile", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var flash *Flash
	switch {
	case r.URL.Query().Get("saved") == "1":
		flash = &Flash{Type: "success", Message: "Profil enregistré."}
	case r.URL.Query().Get("logo") == "1":
		flash = &Flash{Type: "success", Message: "Logo mis à jour."}
	case r.URL.Query().Get("logo") == "0":
		flash = &Flash{Type: "success", Message: "Logo supprimé."}
	}

	h.render(w, r, user, company, companyForm(company), nil, flash)
}

// =============================================================================
// POST /company - Save Profile
// =============================================================================

// Save creates or replaces the company profile.
func (h *CompanyHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("save handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.render(w, r, user, nil, nil, nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	company, _ := h.currentCompany(r)

	if !csrf.ValidateRequest(r) {
		h.logger.Warn("csrf validation failed on company save", "user_id", user.ID)
		csrf.RefreshToken(w, h.isSecure)
		h.render(w, r, user, company, companyForm(company), nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	form := map[string]string{
		"name":          strings.TrimSpace(r.FormValue("name")),
		"siret":         strings.TrimSpace(r.FormValue("siret")),
		"legal_form":    strings.TrimSpace(r.FormValue("legal_form")),
		"tva_number":    strings.TrimSpace(r.FormValue("tva_number")),
		"address":       strings.TrimSpace(r.FormValue("address")),
		"phone":         strings.TrimSpace(r.FormValue("phone")),
		"email":         strings.TrimSpace(r.FormValue("email")),
		"website":       strings.TrimSpace(r.FormValue("website")),
		"primary_color": strings.TrimSpace(r.FormValue("primary_color")),
	}

	fieldErrors := make(map[string]string)
	if form["name"] == "" {
		fieldErrors["name"] = "Le nom de l'entreprise est requis"
	}
	if !domain.ValidSiret(strings.ReplaceAll(form["siret"], " ", "")) {
		fieldErrors["siret"] = "Le SIRET doit comporter 14 chiffres"
	}
	if form["address"] == "" {
		fieldErrors["address"] = "L'adresse est requise"
	}
	if form["email"] != "" && !isValidEmail(form["email"]) {
		fieldErrors["email"] = "Adresse email invalide"
	}
	if len(fieldErrors) > 0 {
		h.render(w, r, user, company, form, fieldErrors, nil)
		return
	}

	_, err := h.companyService.Upsert(r.Context(), domain.UpsertCompanyParams{
		UserID:       user.ID,
		Name:         form["name"],
		Siret:        form["siret"],
		LegalForm:    form["legal_form"],
		TVANumber:    form["tva_number"],
		Address:      form["address"],
		Phone:        form["phone"],
		Email:        form["email"],
		Website:      form["website"],
		PrimaryColor: form["primary_color"],
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.render(w, r, user, company, form, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		default:
			h.logger.Error("failed to save company profile", "error", err, "user_id", user.ID)
			h.render(w, r, user, company, form, nil, &Flash{
				Type:    "error",
				Message: "Impossible d'enregistrer le profil. Veuillez réessayer.",
			})
		}
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/company?saved=1")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/company?saved=1", http.StatusSeeOther)
}

// =============================================================================
// POST /company/logo - Upload Logo
// =============================================================================

// UploadLogo stores a new logo for the company profile.
func (h *CompanyHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("upload logo handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseMultipartForm(domain.LogoMaxUploadBytes); err != nil {
		h.logger.Warn("failed to parse logo upload", "error", err, "user_id", user.ID)
		h.redirectWithLogoError(w, r, user, "Fichier trop volumineux ou formulaire invalide.")
		return
	}

	if !csrf.ValidateRequest(r) {
		h.logger.Warn("csrf validation failed on logo upload", "user_id", user.ID)
		csrf.RefreshToken(w, h.isSecure)
		h.redirectWithLogoError(w, r, user, "Jeton de sécurité invalide. Veuillez réessayer.")
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		h.redirectWithLogoError(w, r, user, "Aucun fichier sélectionné.")
		return
	}
	defer file.Close()

	if _, err := h.companyService.UploadLogo(r.Context(), user.ID, header.Filename, file); err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			h.redirectWithLogoError(w, r, user, "Enregistrez d'abord votre profil d'entreprise.")
		case domain.EINVALID:
			h.redirectWithLogoError(w, r, user, "Le fichier n'est pas une image valide.")
		default:
			h.logger.Error("failed to upload logo", "error", err, "user_id", user.ID)
			h.redirectWithLogoError(w, r, user, "Impossible d'enregistrer le logo. Veuillez réessayer.")
		}
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/company?logo=1")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/company?logo=1", http.StatusSeeOther)
}

// =============================================================================
// DELETE /company/logo - Remove Logo
// =============================================================================

// RemoveLogo deletes the stored logo. Removing an absent logo is a no-op.
func (h *CompanyHandler) RemoveLogo(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("remove logo handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := h.companyService.RemoveLogo(r.Context(), user.ID); err != nil {
		if domain.ErrorCode(err) != domain.ENOTFOUND {
			h.logger.Error("failed to remove logo", "error", err, "user_id", user.ID)
		}
		h.redirectWithLogoError(w, r, user, "Impossible de supprimer le logo. Veuillez réessayer.")
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/company?logo=0")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/company?logo=0", http.StatusSeeOther)
}

// =============================================================================
// Helper Functions
// =============================================================================

func (h *CompanyHandler) render(
	w http.ResponseWriter,
	r *http.Request,
	user *domain.User,
	company *domain.Company,
	form map[string]string,
	fieldErrors map[string]string,
	flash *Flash,
) {
	token := csrf.EnsureToken(w, r, h.isSecure)
	if form == nil {
		form = make(map[string]string)
	}
	if fieldErrors == nil {
		fieldErrors = make(map[string]string)
	}

	logoURL := ""
	if company != nil && company.HasLogo() {
		var err error
		logoURL, err = h.companyService.LogoURL(r.Context(), user.ID)
		if err != nil {
			h.logger.Warn("failed to build logo url", "error", err, "user_id", user.ID)
		}
	}

	data := CompanyPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Company:     company,
		LogoURL:     logoURL,
		Form:        form,
		Errors:      fieldErrors,
		Flash:       flash,
		CSRFToken:   token,
	}
	h.renderer.RenderHTTP(w, "company/show", data)
}

// currentCompany fetches the saved profile, tolerating its absence.
func (h *CompanyHandler) currentCompany(r *http.Request) (*domain.Company, error) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		return nil, nil
	}
	company, err := h.companyService.Get(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	return company, nil
}

func (h *CompanyHandler) redirectWithLogoError(w http.ResponseWriter, r *http.Request, user *domain.User, message string) {
	company, _ := h.currentCompany(r)
	h.render(w, r, user, company, companyForm(company), nil, &Flash{
		Type:    "error",
		Message: message,
	})
}

// companyForm seeds the profile form from a saved company.
func companyForm(company *domain.Company) map[string]string {
	if company == nil {
		return map[string]string{}
	}
	return map[string]string{
		"name":          company.Name,
		"siret":         company.Siret,
		"legal_form":    company.LegalForm,
		"tva_number":    company.TVANumber,
		"address":       company.Address,
		"phone":         company.Phone,
		"email":         company.Email,
		"website":       company.Website,
		"primary_color": company.PrimaryColor,
	}
}
