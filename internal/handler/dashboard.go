// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements the authenticated dashboard and the public
// landing page.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
	"github.com/tbouquin/artisia/internal/service"
)

// =============================================================================
// Template Data Types
// =============================================================================

// DashboardStats aggregates headline numbers for the dashboard.
type DashboardStats struct {
	TotalQuotes     int64   // All quotes ever created
	SentQuotes      int64   // Quotes awaiting a client decision
	AcceptedQuotes  int64   // Accepted quotes
	AcceptedRevenue float64 // Sum of accepted + paid quote totals
}

// DashboardPageData contains data for the dashboard page.
type DashboardPageData struct {
	CurrentPath  string             // Current URL path
	User         *domain.User       // Authenticated user
	Stats        DashboardStats     // Headline numbers
	RecentQuotes []domain.Quote     // Most recent quotes
	Usage        *domain.QuotaUsage // Monthly quota usage
	Flash        *Flash             // Flash message (if any)
}

// HomePageData contains data for the public landing page.
type HomePageData struct {
	CurrentPath string
	User        *domain.User // Non-nil when a session exists
}

// =============================================================================
// Handler Configuration
// =============================================================================

// DashboardHandler handles the dashboard and landing pages.
type DashboardHandler struct {
	queries      *repository.Queries
	quoteService service.QuoteService
	quotaService service.QuotaService
	renderer     TemplateRenderer
	logger       *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(
	queries *repository.Queries,
	quoteService service.QuoteService,
	quotaService service.QuotaService,
	renderer TemplateRenderer,
	logger *slog.Logger,
) *DashboardHandler {
	return &DashboardHandler{
		queries:      queries,
		quoteService: quoteService,
		quotaService: quotaService,
		renderer:     renderer,
		logger:       logger,
	}
}

// RegisterRoutes registers dashboard routes with the provided mux.
// Home is public; Dashboard requires authentication.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, withUser, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /{$}", withUser(http.HandlerFunc(h.Home)))
	mux.Handle("GET /dashboard", requireUser(http.HandlerFunc(h.Dashboard)))
}

// =============================================================================
// GET / - Landing Page
// =============================================================================

// Home renders the marketing landing page. Authenticated visitors get a
// link into the app instead of the signup call to action.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	data := HomePageData{
		CurrentPath: r.URL.Path,
		User:        auth.GetUserFromRequest(r),
	}
	h.renderer.RenderHTTP(w, "public/home", data)
}

// =============================================================================
// GET /dashboard - Dashboard
// =============================================================================

// Dashboard renders the dashboard with quote stats and recent activity.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	stats := h.loadStats(r, user)

	recent, err := h.quoteService.List(r.Context(), domain.ListQuotesParams{
		UserID: user.ID,
		Limit:  5,
		Offset: 0,
	})
	if err != nil {
		h.logger.Error("failed to list recent quotes", "error", err, "user_id", user.ID)
		ErrorResponse(w, r, h.logger, err)
		return
	}

	usage, err := h.quotaService.GetUsage(r.Context(), user.ID, user.Tier())
	if err != nil {
		h.logger.Warn("failed to fetch quota usage", "error", err, "user_id", user.ID)
	}

	data := DashboardPageData{
		CurrentPath:  r.URL.Path,
		User:         user,
		Stats:        stats,
		RecentQuotes: recent.Quotes,
		Usage:        usage,
	}
	h.renderer.RenderHTTP(w, "dashboard", data)
}

// =============================================================================
// Helper Functions
// =============================================================================

// loadStats gathers headline numbers. Individual failures degrade to
// zero rather than failing the page.
func (h *DashboardHandler) loadStats(r *http.Request, user *domain.User) DashboardStats {
	ctx := r.Context()
	var stats DashboardStats
	var err error

	stats.TotalQuotes, err = h.queries.CountQuotesByUserID(ctx, user.ID)
	if err != nil {
		h.logger.Warn("failed to count quotes", "error", err, "user_id", user.ID)
	}

	stats.SentQuotes, err = h.queries.CountQuotesByUserIDAndStatus(ctx, repository.CountQuotesByUserIDAndStatusParams{
		UserID: user.ID,
		Status: string(domain.QuoteStatusSent),
	})
	if err != nil {
		h.logger.Warn("failed to count sent quotes", "error", err, "user_id", user.ID)
	}

	stats.AcceptedQuotes, err = h.queries.CountQuotesByUserIDAndStatus(ctx, repository.CountQuotesByUserIDAndStatusParams{
		UserID: user.ID,
		Status: string(domain.QuoteStatusAccepted),
	})
	if err != nil {
		h.logger.Warn("failed to count accepted quotes", "error", err, "user_id", user.ID)
	}

	for _, status := range []domain.QuoteStatus{domain.QuoteStatusAccepted, domain.QuoteStatusPaid} {
		total, err := h.queries.SumQuoteTotalsByUserIDAndStatus(ctx, repository.CountQuotesByUserIDAndStatusParams{
			UserID: user.ID,
			Status: string(status),
		})
		if err != nil {
			h.logger.Warn("failed to sum quote totals", "error", err, "user_id", user.ID, "status", status)
			continue
		}
		stats.AcceptedRevenue += total
	}
	stats.AcceptedRevenue = domain.RoundMoney(stats.AcceptedRevenue)

	return stats
}
