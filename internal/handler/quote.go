// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements quote CRUD handlers: the HTML pages, the JSON
// save API used by the interactive editor, status transitions and the
// PDF download.
package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/csrf"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/metrics"
	"github.com/tbouquin/artisia/internal/report"
	"github.com/tbouquin/artisia/internal/service"
)

// =============================================================================
// Template Data Types
// =============================================================================

// QuoteListPageData contains data for the quote list page.
type QuoteListPageData struct {
	CurrentPath string         // Current URL path
	User        interface{}    // Authenticated user
	Quotes      []domain.Quote // List of quotes
	Pagination  PaginationData // Pagination information
	Flash       *Flash         // Flash message (if any)
	CSRFToken   string         // CSRF token for form protection
}

// QuoteEditorPageData contains data for the quote editor (create/edit).
type QuoteEditorPageData struct {
	CurrentPath string           // Current URL path
	User        interface{}      // Authenticated user
	Quote       *domain.Quote    // Quote being edited (nil for create)
	Settings    *domain.Settings // User defaults seeding the editor
	Flash       *Flash           // Flash message (if any)
	IsEdit      bool             // true for edit, false for create
	CSRFToken   string           // CSRF token for form protection
}

// QuoteShowPageData contains data for the quote detail page.
type QuoteShowPageData struct {
	CurrentPath string        // Current URL path
	User        interface{}   // Authenticated user
	Quote       *domain.Quote // Quote details
	Flash       *Flash        // Flash message (if any)
	CSRFToken   string        // CSRF token for form protection
}

// PaginationData contains pagination information.
type PaginationData struct {
	CurrentPage int   // Current page number (1-indexed)
	TotalPages  int   // Total number of pages
	PerPage     int32 // Results per page
	Total       int64 // Total number of results
	HasPrevious bool  // True if previous page exists
	HasNext     bool  // True if next page exists
	PrevPage    int   // Previous page number
	NextPage    int   // Next page number
}

// =============================================================================
// JSON API Types
// =============================================================================

// quoteItemRequest is one line item in the editor's save payload.
type quoteItemRequest struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
}

// quoteRequest is the editor's save payload. Derived totals are never
// accepted from the client; the service recomputes everything.
type quoteRequest struct {
	ClientName    string             `json:"clientName"`
	ClientEmail   string             `json:"clientEmail,omitempty"`
	ClientAddress string             `json:"clientAddress,omitempty"`
	Items         []quoteItemRequest `json:"items"`
	TaxRate       *float64           `json:"taxRate,omitempty"`
	ValidUntil    string             `json:"validUntil,omitempty"` // "2006-01-02"
	Notes         string             `json:"notes,omitempty"`
}

// quoteItemResponse mirrors a line item with its derived total.
type quoteItemResponse struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	Quantity    float64   `json:"quantity"`
	Unit        string    `json:"unit"`
	UnitPrice   float64   `json:"unitPrice"`
	Total       float64   `json:"total"`
}

// quoteResponse is the JSON rendering of a saved quote.
type quoteResponse struct {
	ID            uuid.UUID           `json:"id"`
	Number        string              `json:"number"`
	ClientName    string              `json:"clientName"`
	ClientEmail   string              `json:"clientEmail,omitempty"`
	ClientAddress string              `json:"clientAddress,omitempty"`
	Items         []quoteItemResponse `json:"items"`
	TaxRate       float64             `json:"taxRate"`
	Subtotal      float64             `json:"subtotal"`
	TaxAmount     float64             `json:"taxAmount"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	ValidUntil    string              `json:"validUntil,omitempty"`
	Notes         string              `json:"notes,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// toQuoteResponse converts a domain quote to its JSON shape.
func toQuoteResponse(q *domain.Quote) quoteResponse {
	items := make([]quoteItemResponse, 0, len(q.Items))
	for _, item := range q.Items {
		items = append(items, quoteItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}

	resp := quoteResponse{
		ID:            q.ID,
		Number:        q.Number,
		ClientName:    q.ClientName,
		ClientEmail:   q.ClientEmail,
		ClientAddress: q.ClientAddress,
		Items:         items,
		TaxRate:       q.TaxRate,
		Subtotal:      q.Subtotal,
		TaxAmount:     q.TaxAmount,
		Total:         q.Total,
		Status:        q.Status.String(),
		Notes:         q.Notes,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
	if q.ValidUntil != nil {
		resp.ValidUntil = q.ValidUntil.Format("2006-01-02")
	}
	return resp
}

// =============================================================================
// Handler Configuration
// =============================================================================

// QuoteHandler handles quote-related HTTP requests.
type QuoteHandler struct {
	quoteService    service.QuoteService
	settingsService service.SettingsService
	documentService service.DocumentService
	generator       report.Generator
	renderer        TemplateRenderer
	logger          *slog.Logger
	isSecure        bool
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(
	quoteService service.QuoteService,
	settingsService service.SettingsService,
	documentService service.DocumentService,
	generator report.Generator,
	renderer TemplateRenderer,
	logger *slog.Logger,
	isSecure bool,
) *QuoteHandler {
	return &QuoteHandler{
		quoteService:    quoteService,
		settingsService: settingsService,
		documentService: documentService,
		generator:       generator,
		renderer:        renderer,
		logger:          logger,
		isSecure:        isSecure,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all quote routes with the provided mux.
//
// All routes require authentication via the requireUser middleware.
//
// Pages:
// - GET  /quotes             -> Index (list)
// - GET  /quotes/new         -> New (editor)
// - GET  /quotes/{id}        -> Show
// - GET  /quotes/{id}/edit   -> Edit (editor)
// - GET  /quotes/{id}/pdf    -> DownloadPDF
// - POST /quotes/{id}/status -> UpdateStatus
// - DELETE /quotes/{id}      -> Delete
//
// JSON API (used by the editor's save button):
// - POST /api/quotes      -> CreateAPI
// - PUT  /api/quotes/{id} -> UpdateAPI
func (h *QuoteHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /quotes", requireUser(http.HandlerFunc(h.Index)))
	mux.Handle("GET /quotes/new", requireUser(http.HandlerFunc(h.New)))
	mux.Handle("GET /quotes/{id}", requireUser(http.HandlerFunc(h.Show)))
	mux.Handle("GET /quotes/{id}/edit", requireUser(http.HandlerFunc(h.Edit)))
	mux.Handle("GET /quotes/{id}/pdf", requireUser(http.HandlerFunc(h.DownloadPDF)))
	mux.Handle("POST /quotes/{id}/status", requireUser(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("DELETE /quotes/{id}", requireUser(http.HandlerFunc(h.Delete)))

	mux.Handle("POST /api/quotes", requireUser(http.HandlerFunc(h.CreateAPI)))
	mux.Handle("PUT /api/quotes/{id}", requireUser(http.HandlerFunc(h.UpdateAPI)))
}

// =============================================================================
// GET /quotes - List Quotes
// =============================================================================

// Index displays a paginated list of quotes, newest first.
func (h *QuoteHandler) Index(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.quoteService.List(r.Context(), domain.ListQuotesParams{
		UserID: user.ID,
		Limit:  perPage,
		Offset: offset,
	})
	if err != nil {
		h.logger.Error("failed to list quotes", "error", err, "user_id", user.ID)
		h.renderListError(w, r, "Impossible de charger vos devis. Veuillez réessayer.")
		return
	}

	var flash *Flash
	if r.URL.Query().Get("deleted") == "1" {
		flash = &Flash{Type: "success", Message: "Devis supprimé."}
	}

	data := QuoteListPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Quotes:      result.Quotes,
		Pagination:  buildPaginationData(result),
		Flash:       flash,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "quotes/index", data)
}

// =============================================================================
// GET /quotes/new - Show Editor (Create)
// =============================================================================

// New displays the quote editor seeded with the user's defaults.
func (h *QuoteHandler) New(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("new handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	settings, err := h.settingsService.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load settings", "error", err, "user_id", user.ID)
		h.renderListError(w, r, "Impossible de charger vos préférences. Veuillez réessayer.")
		return
	}

	data := QuoteEditorPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Quote:       nil,
		Settings:    settings,
		IsEdit:      false,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "quotes/edit", data)
}

// =============================================================================
// GET /quotes/{id} - Show Quote
// =============================================================================

// Show displays the quote detail page.
func (h *QuoteHandler) Show(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("show handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	quote, ok := h.loadQuote(w, r, user.ID)
	if !ok {
		return
	}

	var flash *Flash
	if r.URL.Query().Get("sent") == "1" {
		flash = &Flash{Type: "success", Message: "Le devis a été finalisé et envoyé."}
	}

	data := QuoteShowPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Quote:       quote,
		Flash:       flash,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "quotes/show", data)
}

// =============================================================================
// GET /quotes/{id}/edit - Show Editor (Edit)
// =============================================================================

// Edit displays the quote editor for an existing draft. Quotes past
// draft are read-only and redirect to the detail page.
func (h *QuoteHandler) Edit(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		h.logger.Error("edit handler called without authenticated user")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	quote, ok := h.loadQuote(w, r, user.ID)
	if !ok {
		return
	}

	if !quote.IsEditable() {
		http.Redirect(w, r, fmt.Sprintf("/quotes/%s", quote.ID), http.StatusSeeOther)
		return
	}

	settings, err := h.settingsService.Get(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to load settings", "error", err, "user_id", user.ID)
		h.renderListError(w, r, "Impossible de charger vos préférences. Veuillez réessayer.")
		return
	}

	data := QuoteEditorPageData{
		CurrentPath: r.URL.Path,
		User:        user,
		Quote:       quote,
		Settings:    settings,
		IsEdit:      true,
		CSRFToken:   csrf.EnsureToken(w, r, h.isSecure),
	}

	h.renderer.RenderHTTP(w, "quotes/edit", data)
}

// =============================================================================
// POST /api/quotes - Create Quote (JSON)
// =============================================================================

// CreateAPI creates a quote from the editor's JSON payload.
func (h *QuoteHandler) CreateAPI(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, domain.EUNAUTHORIZED, "Authentification requise")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, "Corps de requête invalide")
		return
	}

	params := domain.CreateQuoteParams{
		UserID:        user.ID,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientAddress: req.ClientAddress,
		Items:         itemParamsFromRequest(req.Items),
		TaxRate:       req.TaxRate,
		Notes:         req.Notes,
	}

	validUntil, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, "Date de validité invalide (format attendu : AAAA-MM-JJ)")
		return
	}
	params.ValidUntil = validUntil

	quote, err := h.quoteService.Create(r.Context(), params)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(toQuoteResponse(quote)); err != nil {
		h.logger.Error("failed to encode quote response", "error", err)
	}
}

// =============================================================================
// PUT /api/quotes/{id} - Update Quote (JSON)
// =============================================================================

// UpdateAPI rewrites a quote's content from the editor's JSON payload.
func (h *QuoteHandler) UpdateAPI(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, domain.EUNAUTHORIZED, "Authentification requise")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSONError(w, http.StatusNotFound, domain.ENOTFOUND, "Devis introuvable")
		return
	}

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, "Corps de requête invalide")
		return
	}

	// Content changes only apply to drafts
	current, err := h.quoteService.GetByID(r.Context(), id, user.ID)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}
	if !current.IsEditable() {
		writeJSONError(w, http.StatusConflict, domain.ECONFLICT, "Ce devis n'est plus modifiable")
		return
	}

	taxRate := current.TaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}

	params := domain.UpdateQuoteParams{
		ID:            id,
		UserID:        user.ID,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
		ClientAddress: req.ClientAddress,
		Items:         itemParamsFromRequest(req.Items),
		TaxRate:       taxRate,
		Notes:         req.Notes,
	}

	validUntil, err := parseValidUntil(req.ValidUntil)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, "Date de validité invalide (format attendu : AAAA-MM-JJ)")
		return
	}
	if validUntil == nil {
		validUntil = current.ValidUntil
	}
	params.ValidUntil = validUntil

	quote, err := h.quoteService.Update(r.Context(), params)
	if err != nil {
		h.writeQuoteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toQuoteResponse(quote)); err != nil {
		h.logger.Error("failed to encode quote response", "error", err)
	}
}

// =============================================================================
// GET /quotes/{id}/pdf - Download PDF
// =============================================================================

// DownloadPDF renders the quote as a PDF document. A successful render
// of a draft finalizes it to "sent".
func (h *QuoteHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	doc, err := h.documentService.PrepareQuoteDocument(r.Context(), id, user.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
			return
		}
		h.logger.Error("failed to prepare quote document", "error", err, "quote_id", id)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// Render to a buffer so a mid-render failure never leaks a partial
	// document to the client.
	var buf bytes.Buffer
	start := time.Now()
	if _, err := h.generator.Generate(r.Context(), doc, &buf); err != nil {
		h.logger.Error("failed to render quote PDF", "error", err, "quote_id", id)
		ErrorResponse(w, r, h.logger, err)
		return
	}
	metrics.PDFRenderDuration.Observe(time.Since(start).Seconds())
	metrics.PDFsGenerated.Inc()

	// Finalize drafts: a generated document is considered sent. A
	// transition failure is logged but the download still succeeds.
	if doc.Quote.Status == domain.QuoteStatusDraft {
		if _, err := h.quoteService.UpdateStatus(r.Context(), domain.UpdateQuoteStatusParams{
			ID:     id,
			UserID: user.ID,
			Status: domain.QuoteStatusSent,
		}); err != nil {
			h.logger.Error("failed to finalize quote after PDF render",
				"error", err,
				"quote_id", id,
			)
		}
	}

	w.Header().Set("Content-Type", h.generator.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write PDF response", "error", err, "quote_id", id)
	}

	h.logger.Info("quote PDF generated",
		"quote_id", id,
		"user_id", user.ID,
		"bytes", buf.Len(),
	)
}

// =============================================================================
// POST /quotes/{id}/status - Transition Status
// =============================================================================

// UpdateStatus applies a lifecycle transition from the detail page.
func (h *QuoteHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, fmt.Sprintf("/quotes/%s", id), http.StatusSeeOther)
		return
	}

	if !csrf.ValidateRequest(r) {
		http.Redirect(w, r, fmt.Sprintf("/quotes/%s", id), http.StatusSeeOther)
		return
	}

	status := domain.QuoteStatus(r.FormValue("status"))
	if !status.IsValid() {
		http.Redirect(w, r, fmt.Sprintf("/quotes/%s", id), http.StatusSeeOther)
		return
	}

	_, err = h.quoteService.UpdateStatus(r.Context(), domain.UpdateQuoteStatusParams{
		ID:     id,
		UserID: user.ID,
		Status: status,
	})
	if err != nil {
		switch domain.ErrorCode(err) {
		case domain.ENOTFOUND:
			NotFoundResponse(w, r, h.logger)
			return
		case domain.ECONFLICT:
			// Out-of-order transition: reload the page, the current
			// status is shown there
		default:
			h.logger.Error("failed to update quote status", "error", err, "quote_id", id)
		}
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", fmt.Sprintf("/quotes/%s", id))
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/quotes/%s", id), http.StatusSeeOther)
}

// =============================================================================
// DELETE /quotes/{id} - Delete Quote
// =============================================================================

// Delete deletes a quote and reverses its ledger contribution.
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return
	}

	err = h.quoteService.Delete(r.Context(), id, user.ID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
		} else {
			h.logger.Error("failed to delete quote", "error", err, "quote_id", id)
			h.renderListError(w, r, "La suppression a échoué. Veuillez réessayer.")
		}
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/quotes?deleted=1")
		w.WriteHeader(http.StatusOK)
		return
	}

	http.Redirect(w, r, "/quotes?deleted=1", http.StatusSeeOther)
}

// =============================================================================
// Helper Functions
// =============================================================================

// loadQuote parses the id path value and fetches the quote, writing the
// error response itself when something is wrong.
func (h *QuoteHandler) loadQuote(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*domain.Quote, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		NotFoundResponse(w, r, h.logger)
		return nil, false
	}

	quote, err := h.quoteService.GetByID(r.Context(), id, userID)
	if err != nil {
		if domain.ErrorCode(err) == domain.ENOTFOUND {
			NotFoundResponse(w, r, h.logger)
		} else {
			h.logger.Error("failed to get quote", "error", err, "quote_id", id)
			h.renderListError(w, r, "Impossible de charger ce devis. Veuillez réessayer.")
		}
		return nil, false
	}

	return quote, true
}

// itemParamsFromRequest converts JSON line items into service params.
func itemParamsFromRequest(items []quoteItemRequest) []domain.QuoteItemParams {
	params := make([]domain.QuoteItemParams, 0, len(items))
	for _, item := range items {
		p := domain.QuoteItemParams{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
		}
		if item.ID != "" {
			if id, err := uuid.Parse(item.ID); err == nil {
				p.ID = &id
			}
		}
		params = append(params, p)
	}
	return params
}

// parseValidUntil parses an optional "2006-01-02" date string.
func parseValidUntil(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// writeQuoteError maps a service error onto a JSON error response.
func (h *QuoteHandler) writeQuoteError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	switch code {
	case domain.EINVALID:
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, domain.ErrorMessage(err))
	case domain.ENOTFOUND:
		writeJSONError(w, http.StatusNotFound, domain.ENOTFOUND, "Devis introuvable")
	case domain.ECONFLICT:
		writeJSONError(w, http.StatusConflict, domain.ECONFLICT, domain.ErrorMessage(err))
	case domain.EQUOTA:
		writeJSONError(w, http.StatusPaymentRequired, domain.EQUOTA, domain.ErrorMessage(err))
	default:
		h.logger.Error("quote operation failed", "error", err, "path", r.URL.Path)
		writeJSONError(w, http.StatusInternalServerError, domain.EINTERNAL, "Une erreur interne est survenue")
	}
}

// buildPaginationData builds pagination data from a list result.
func buildPaginationData(result *domain.ListQuotesResult) PaginationData {
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

// renderListError renders the quote list with an error flash.
func (h *QuoteHandler) renderListError(w http.ResponseWriter, r *http.Request, message string) {
	user := auth.GetUserFromRequest(r)
	data := map[string]interface{}{
		"CurrentPath": r.URL.Path,
		"User":        user,
		"Flash": &Flash{
			Type:    "error",
			Message: message,
		},
	}
	h.renderer.RenderHTTP(w, "quotes/index", data)
}
