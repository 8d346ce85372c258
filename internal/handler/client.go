// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements client handlers. Clients are mostly created and
// updated automatically by the quote ledger, but users can edit contact
// details and remove clients from the directory.
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/csrf"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/service"
)

// =============================================================================
// Template Data Types
// =============================================================================

// ClientListPageData contains data for the client directory page.
type ClientListPageData struct {
	CurrentPath string          // Current URL path
	User        *domain.User    // Authenticated user
	Clients     []domain.Client // Clients with ledger totals
	Pagination  PaginationData  // Pagination information
	Flash       *Flash          // Flash message (if any)
	CSRFToken   string          // CSRF token for form protection
}

// ClientShowPageData contains data for the client detail page.
type ClientShowPageData struct {
	CurrentPath string            // Current URL path
	User        *domain.User      // Authenticated user
	Client      *domain.Client    // Client with ledger totals
	Form        map[string]string // Contact form field values
	Errors      map[string]string // Field-level validation errors
	Flash       *Flash            // Flash message (if any)
	CSRFToken   string            // CSRF token for form protection
}

// =============================================================================
// Handler Configuration
// =============================================================================

// ClientHandler handles client directory HTTP requests.
type ClientHandler struct {
	clientService service.ClientService
	renderer      TemplateRenderer
	logger        *slog.Logger
	isSecure      bool
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(
	clientService service.ClientService,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		renderer:      renderer,
		logger:        logger,
		isSecure:      isSecure,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all client routes with the provided mux.
//
// All routes require authentication via the requireUser middleware.
//
// - GET    /clients      -> Index (directory with ledger totals)
// - POST   /clients      -> Create
// - GET    /clients/{id} -> Show
// - PUT    /clients/{id} -> Update (contact details)
// - DELETE /clients/{id} -> Delete
func (h *ClientHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /clients", requireUser(http.HandlerFunc(h.Index)))
	mux.Handle("POST /clients", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /clients/{id}", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("PUT /clients/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /clients/{id}", requireUser(http.HandlerFunc(h.Delete)))
}

// =============================================================================
// GET /clients - Client Directory
// =============================================================================

// Index displays the client directory with ledger totals, most recent first.
func (h *ClientHandler) Index(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("index handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	perPage := int32(20)
	offset := int32((page - 1) * int(perPage))

	result, err := h.clientService.List(r.Context(), domain.ListClientsParams{
		UserID: user.ID,
		Limit:  perPage,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("failed to list clients", "error", err, "user_id", user.ID)
		h.renderIndex(w, r, user, &domain.ListClientsResult{Limit: perPage}, &Flash{
			Type:    "error",
			Message: "Impossible de charger vos clients. Veuillez réessayer.",
		})
		return
	}

	var flash *Flash
	if r.URL.Query().Get("deleted") == "1" {
		flash = &Flash{Type: "success", Message: "Client supprimé."}
	}

	h.renderIndex(w, r, user, result, flash)
}

func (h *ClientHandler) renderIndex(w http.ResponseWriter, r *http.Request, user *domain.User, result *domain.ListClientsResult, flash *Flash) {
	token := csrf.EnsureToken(w, r, h.isSecure)

	data := ClientListPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Clients:     result.Clients,
		Pagination:  buildClientPaginationData(result),
		Flash:       flash,
		CSRFToken:   token,
	}
	h.renderer.RenderHTTP(w, "clients/index", data)
}

// =============================================================================
// GET /clients/{id} - Client Detail
// =============================================================================

// Show displays a single client with its ledger totals and contact form.
func (h *ClientHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("show handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	client, ok := h.loadClient(w, r, user.ID)
	if !ok {
		return
	}

	var flash *Flash
	if r.URL.Query().Get("updated") == "1" {
		flash = &Flash{Type: "success", Message: "Coordonnées mises à jour."}
	}

	h.renderShow(w, r, user, client, contactForm(client), nil, flash)
}

func (h *ClientHandler) renderShow(
	w http.ResponseWriter,
	r *http.Request,
	user *domain.User,
	client *domain.Client,
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

	data := ClientShowPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Client:      client,
		Form:        form,
		Errors:      fieldErrors,
		Flash:       flash,
		CSRFToken:   token,
	}
	h.renderer.RenderHTTP(w, "clients/show", data)
}

// =============================================================================
// POST /clients - Create Client
// =============================================================================

// Create adds a client to the directory manually, without a quote.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("create handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.redirectIndexFlash(w, r, "/clients")
		return
	}

	if !csrf.ValidateRequest(r) {
		h.logger.Warn("csrf validation failed on client create")
		h.redirectIndexFlash(w, r, "/clients")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	address := strings.TrimSpace(r.FormValue("address"))

	if name == "" {
		h.redirectIndexFlash(w, r, "/clients")
		return
	}
	if email != "" && !isValidEmail(email) {
		h.redirectIndexFlash(w, r, "/clients")
		return
	}

	client, err := h.clientService.Create(r.Context(), domain.CreateClientParams{
		UserID:  user.ID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Address: address,
	})
	if err != nil {
		code := domain.ErrorCode(err)
		if code != domain.EINVALID && code != domain.ECONFLICT {
			h.logger.Error("failed to create client", "error", err, "user_id", user.ID)
		}
		h.redirectIndexFlash(w, r, "/clients")
		return
	}

	h.redirectIndexFlash(w, r, fmt.Sprintf("/clients/%s", client.ID))
}

// =============================================================================
// PUT /clients/{id} - Update Contact Details
// =============================================================================

// Update changes a client's contact details. Ledger totals are read-only
// here; they only move through quote transitions.
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("update handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	client, ok := h.loadClient(w, r, user.ID)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Error("failed to parse form", "error", err)
		h.renderShow(w, r, user, client, contactForm(client), nil, &Flash{
			Type:    "error",
			Message: "Formulaire invalide. Veuillez réessayer.",
		})
		return
	}

	if !csrf.ValidateRequest(r) {
		h.logger.Warn("csrf validation failed on client update", "client_id", client.ID)
		csrf.RefreshToken(w, h.isSecure)
		h.renderShow(w, r, user, client, contactForm(client), nil, &Flash{
			Type:    "error",
			Message: "Jeton de sécurité invalide. Veuillez réessayer.",
		})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.TrimSpace(r.FormValue("email"))
	phone := strings.TrimSpace(r.FormValue("phone"))
	address := strings.TrimSpace(r.FormValue("address"))

	form := map[string]string{
		"name":    name,
		"email":   email,
		"phone":   phone,
		"address": address,
	}

	fieldErrors := make(map[string]string)
	if name == "" {
		fieldErrors["name"] = "Le nom est requis"
	}
	if email != "" && !isValidEmail(email) {
		fieldErrors["email"] = "Adresse email invalide"
	}
	if len(fieldErrors) > 0 {
		h.renderShow(w, r, user, client, form, fieldErrors, nil)
		return
	}

	err := h.clientService.Update(r.Context(), domain.UpdateClientParams{
		ID:      client.ID,
		UserID:  user.ID,
		Name:    name,
		Email:   email,
		Phone:   phone,
		Address: address,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.EINVALID:
			h.renderShow(w, r, user, client, form, nil, &Flash{
				Type:    "error",
				Message: domain.ErrorMessage(err),
			})
		case domain.ECONFLICT:
			h.renderShow(w, r, user, client, form, map[string]string{
				"name": "Un client porte déjà ce nom",
			}, nil)
		case domain.ENOTFOUND:
			NotFoundResponse(w, r, h.logger)
		default:
			h.logger.Error("failed to update client", "error", err, "client_id", client.ID)
			h.renderShow(w, r, user, client, form, nil, &Flash{
				Type:    "error",
				Message: "Impossible de mettre à jour le client. Veuillez réessayer.",
			})
		}
		return
	}

	target := fmt.Sprintf("/clients/%s?updated=1", client.ID)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// =============================================================================
// DELETE /clients/{id} - Delete Client
// =============================================================================

// Delete removes a client and its ledger contributions. Quotes referencing
// the client keep their own copy of the contact details.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("delete handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	client, ok := h.loadClient(w, r, user.ID)
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), client.ID, user.ID); err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			NotFoundResponse(w, r, h.logger)
		default:
			h.logger.Error("failed to delete client", "error", err, "client_id", client.ID)
			h.renderShow(w, r, user, client, contactForm(client), nil, &Flash{
				Type:    "error",
				Message: "Impossible de supprimer le client. Veuillez réessayer.",
			})
		}
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/clients?deleted=1")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/clients?deleted=1", http.StatusSeeOther)
}

// =============================================================================
// Helper Functions
// =============================================================================

// loadClient parses the id path value and fetches the client scoped to the
// owner. Writes a 404 and returns false if either step fails.
func (h *ClientHandler) loadClient(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*domain.Client, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return nil, false
	}

	client, err := h.clientService.GetByID(r.Context(), id, userID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
		} else {
			h.logger.Error("failed to load client", "error", err, "client_id", id)
			ErrorResponse(w, r, h.logger, err)
		}
		return nil, false
	}
	return client, true
}

// contactForm seeds the contact form from a client's current details.
func contactForm(client *domain.Client) map[string]string {
	return map[string]string{
		"name":    client.Name,
		"email":   client.Email,
		"phone":   client.Phone,
		"address": client.Address,
	}
}

// redirectIndexFlash redirects after a create attempt, htmx-aware.
func (h *ClientHandler) redirectIndexFlash(w http.ResponseWriter, r *http.Request, target string) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// buildClientPaginationData builds pagination data from a client list result.
func buildClientPaginationData(result *domain.ListClientsResult) PaginationData {
	currentPage := result.CurrentPage()
	totalPages := result.TotalPages()

	return PaginationData{
		CurrentPage: currentPage,
		TotalPages:  totalPages,
		PerPage:     result.Limit,
		Total:       result.Total,
		HasPrevious: result.HasPrevious(),
		HasNext:     result.HasMore(),
		PrevPage:    currentPage - 1,
		NextPage:    currentPage + 1,
	}
}
