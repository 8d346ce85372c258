// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements subscription management handlers backed by Stripe.
//
// Routes handled:
//   - GET  /settings/billing            -> ShowBilling
//   - POST /settings/billing/checkout   -> CreateCheckout
//   - POST /settings/billing/portal     -> OpenPortal
//   - POST /settings/billing/cancel     -> CancelSubscription
//   - POST /settings/billing/reactivate -> ReactivateSubscription
//   - GET  /settings/billing/success    -> CheckoutSuccess
package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/billing"
	"github.com/tbouquin/artisia/internal/csrf"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/service"
)

// =============================================================================
// Template Data Types
// =============================================================================

// PlanInfo describes the user's current plan for display.
type PlanInfo struct {
	Tier        string // "free" or "pro"
	Status      string // Stripe subscription status
	PeriodEnd   string // Formatted end of the current billing period
	CancelAtEnd bool   // Subscription ends at period end
}

// BillingPageData contains data for the subscription page.
type BillingPageData struct {
	CurrentPath       string             // Current URL path
	User              *domain.User       // Authenticated user
	Plan              PlanInfo           // Current plan details
	Usage             *domain.QuotaUsage // Monthly quota usage (free tier)
	ProMonthlyPriceID string             // Stripe price ID for Pro monthly
	ProYearlyPriceID  string             // Stripe price ID for Pro yearly
	StripeConfigured  bool               // Whether checkout is available
	Flash             *Flash             // Flash message (if any)
	CSRFToken         string             // CSRF token for form protection
	ActiveTab         string             // Settings tab marker
}

// =============================================================================
// Handler Configuration
// =============================================================================

// BillingHandler handles subscription management HTTP requests.
type BillingHandler struct {
	billing      billing.Service
	userService  service.UserService
	quotaService service.QuotaService
	renderer     TemplateRenderer
	baseURL      string
	prices       billing.PriceConfig
	logger       *slog.Logger
	isSecure     bool
}

// NewBillingHandler creates a new BillingHandler.
// billingService may be nil when Stripe is not configured (development mode).
func NewBillingHandler(
	billingService billing.Service,
	userService service.UserService,
	quotaService service.QuotaService,
	renderer TemplateRenderer,
	baseURL string,
	prices billing.PriceConfig,
	logger *slog.Logger,
	isSecure bool,
) *BillingHandler {
	return &BillingHandler{
		billing:      billingService,
		userService:  userService,
		quotaService: quotaService,
		renderer:     renderer,
		baseURL:      baseURL,
		prices:       prices,
		logger:       logger,
		isSecure:     isSecure,
	}
}

// RegisterRoutes registers billing routes on the provided mux.
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("GET /settings/billing", requireUser(http.HandlerFunc(h.ShowBilling)))
	mux.Handle("GET /settings/billing/success", requireUser(http.HandlerFunc(h.CheckoutSuccess)))
	mux.Handle("POST /settings/billing/checkout", requireUser(http.HandlerFunc(h.CreateCheckout)))
	mux.Handle("POST /settings/billing/portal", requireUser(http.HandlerFunc(h.OpenPortal)))
	mux.Handle("POST /settings/billing/cancel", requireUser(http.HandlerFunc(h.CancelSubscription)))
	mux.Handle("POST /settings/billing/reactivate", requireUser(http.HandlerFunc(h.ReactivateSubscription)))
}

// ShowBilling renders the subscription page with plan and quota details.
func (h *BillingHandler) ShowBilling(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	token := csrf.EnsureToken(w, r, h.isSecure)

	plan := PlanInfo{
		Tier:   string(user.Tier()),
		Status: string(user.SubscriptionStatus),
	}

	// Live subscription details when Stripe knows about this user
	if h.billing != nil && user.SubscriptionID != "" {
		sub, err := h.billing.GetSubscription(user.SubscriptionID)
		if err != nil {
			h.logger.Warn("failed to fetch stripe subscription", "error", err, "subscription_id", user.SubscriptionID)
		} else {
			plan.PeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).Format("02/01/2006")
			plan.CancelAtEnd = sub.CancelAtPeriodEnd
			plan.Status = string(sub.Status)
		}
	}

	usage, err := h.quotaService.GetUsage(r.Context(), user.ID, user.Tier())
	if err != nil {
		h.logger.Warn("failed to fetch quota usage", "error", err, "user_id", user.ID)
	}

	var flash *Flash
	switch {
	case r.URL.Query().Get("updated") == "1":
		flash = &Flash{Type: "success", Message: "Abonnement mis à jour."}
	case r.URL.Query().Get("canceled") == "1":
		flash = &Flash{
			Type:    "success",
			Message: "Votre abonnement a été résilié. Vous conservez l'accès Pro jusqu'à la fin de la période en cours.",
		}
	}

	data := BillingPageData{
		CurrentPath:       "/settings/billing",
		User:              user,
		Plan:              plan,
		Usage:             usage,
		ProMonthlyPriceID: h.prices.ProMonthlyPriceID,
		ProYearlyPriceID:  h.prices.ProYearlyPriceID,
		StripeConfigured:  h.billing != nil,
		Flash:             flash,
		CSRFToken:         token,
		ActiveTab:         "billing",
	}
	h.renderer.RenderHTTP(w, "settings/billing", data)
}

// CreateCheckout creates a Stripe Checkout session and redirects to it.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if h.billing == nil {
		h.logger.Warn("checkout attempted but Stripe is not configured")
		http.Redirect(w, r, "/settings/billing", http.StatusSeeOther)
		return
	}

	_ = r.ParseForm()

	if !csrf.ValidateRequest(r) {
		h.logger.Warn("csrf validation failed on checkout", "user_id", user.ID)
		http.Redirect(w, r, "/settings/billing", http.StatusSeeOther)
		return
	}

	priceID := r.FormValue("price_id")
	if priceID != h.prices.ProMonthlyPriceID && priceID != h.prices.ProYearlyPriceID {
		h.logger.Warn("checkout attempted with unknown price", "user_id", user.ID, "price_id", priceID)
		http.Redirect(w, r, "/settings/billing", http.StatusSeeOther)
		return
	}

	// Ensure user has a Stripe customer
	customerID := user.StripeCustomerID
	if customerID == "" {
		var err error
		customerID, err = h.billing.CreateCustomer(user.Email, user.Name)
		if err != nil {
			h.logger.Error("failed to create stripe customer", "error", err, "user_id", user.ID)
			http.Error(w, "Failed to initialize billing", http.StatusInternalServerError)
			return
		}
		if err := h.userService.UpdateStripeCustomer(r.Context(), user.ID, customerID); err != nil {
			h.logger.Error("failed to save stripe customer ID", "error", err, "user_id", user.ID)
		}
	}

	successURL := fmt.Sprintf("%s/settings/billing/success?session_id={CHECKOUT_SESSION_ID}", h.baseURL)
	cancelURL := fmt.Sprintf("%s/settings/billing", h.baseURL)

	checkoutURL, err := h.billing.CreateCheckoutSession(customerID, priceID, successURL, cancelURL)
	if err != nil {
		h.logger.Error("failed to create checkout session", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to create checkout session", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, checkoutURL, http.StatusSeeOther)
}

// OpenPortal creates a Stripe Customer Portal session and redirects to it.
func (h *BillingHandler) OpenPortal(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if h.billing == nil {
		h.logger.Warn("portal requested but Stripe is not configured")
		http.Redirect(w, r, "/settings/billing", http.StatusSeeOther)
		return
	}

	if user.StripeCustomerID == "" {
		h.logger.Warn("portal requested but user has no stripe customer", "user_id", user.ID)
		http.Redirect(w, r, "/settings/billing", http.StatusSeeOther)
		return
	}

	returnURL := fmt.Sprintf("%s/settings/billing", h.baseURL)
	portalURL, err := h.billing.CreatePortalSession(user.StripeCustomerID, returnURL)
	if err != nil {
		h.logger.Error("failed to create portal session", "error", err, "user_id", user.ID)
		http.Error(w, "Failed to open billing portal", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, portalURL, http.StatusSeeOther)
}

// CancelSubscription sets the subscription to cancel at period end.
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if h.billing == nil {
		w.Header().Set("HX-Trigger", `{"showToast": {"message": "La facturation n'est pas configurée.", "type": "error"}}`)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if user.SubscriptionID == "" {
		w.Header().Set("HX-Trigger", `{"showToast": {"message": "Aucun abonnement actif à résilier.", "type": "error"}}`)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.billing.CancelSubscription(user.SubscriptionID); err != nil {
		h.logger.Error("failed to cancel subscription", "error", err, "user_id", user.ID)
		w.Header().Set("HX-Trigger", `{"showToast": {"message": "Impossible de résilier l'abonnement. Veuillez réessayer.", "type": "error"}}`)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("HX-Redirect", "/settings/billing?canceled=1")
	w.WriteHeader(http.StatusOK)
}

// ReactivateSubscription removes the cancel-at-period-end flag.
func (h *BillingHandler) ReactivateSubscription(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if h.billing == nil {
		w.Header().Set("HX-Trigger", `{"showToast": {"message": "La facturation n'est pas configurée.", "type": "error"}}`)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if user.SubscriptionID == "" {
		w.Header().Set("HX-Trigger", `{"showToast": {"message": "Aucun abonnement à réactiver.", "type": "error"}}`)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.billing.ReactivateSubscription(user.SubscriptionID); err != nil {
		h.logger.Error("failed to reactivate subscription", "error", err, "user_id", user.ID)
		w.Header().Set("HX-Trigger", `{"showToast": {"message": "Impossible de réactiver l'abonnement. Veuillez réessayer.", "type": "error"}}`)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("HX-Redirect", "/settings/billing?updated=1")
	w.WriteHeader(http.StatusOK)
}

// CheckoutSuccess handles the return from Stripe Checkout.
// The webhook is the authoritative update path; this just provides a good UX redirect.
func (h *BillingHandler) CheckoutSuccess(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())
	if user == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	h.logger.Info("checkout success return", "user_id", user.ID, "session_id", sessionID)

	http.Redirect(w, r, "/settings/billing?updated=1", http.StatusSeeOther)
}
