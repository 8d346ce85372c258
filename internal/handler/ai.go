// Package handler contains HTTP handlers for the Artisia application.
//
// This file implements the AI drafting endpoint the quote editor's chat
// panel talks to.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tbouquin/artisia/internal/ai"
	"github.com/tbouquin/artisia/internal/auth"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/metrics"
	"github.com/tbouquin/artisia/internal/service"
)

// Gemini Flash pricing in cents per million tokens.
const (
	aiPricingInputCents  = 30
	aiPricingOutputCents = 250
)

// =============================================================================
// Request/Response Types
// =============================================================================

type aiMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type aiExtractRequest struct {
	Messages []aiMessageRequest `json:"messages"`
}

type aiItemResponse struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	VAT         float64 `json:"vat"`
}

type aiExtractionResponse struct {
	ConversationalMessage string           `json:"conversationalMessage"`
	ClientName            string           `json:"clientName,omitempty"`
	ClientAddress         string           `json:"clientAddress,omitempty"`
	Items                 []aiItemResponse `json:"items"`
}

type aiExtractResponse struct {
	Items aiExtractionResponse `json:"items"`
}

type aiErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// Handler Configuration
// =============================================================================

// AIHandler handles AI drafting HTTP requests.
type AIHandler struct {
	provider ai.Provider
	quota    service.QuotaService
	logger   *slog.Logger
}

// NewAIHandler creates a new AIHandler. The provider may be nil when no
// API key is configured; requests then fail with a 500.
func NewAIHandler(provider ai.Provider, quota service.QuotaService, logger *slog.Logger) *AIHandler {
	return &AIHandler{
		provider: provider,
		quota:    quota,
		logger:   logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers the AI drafting route with the provided mux.
//
// - POST /api/ai -> Extract
func (h *AIHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/ai", requireUser(http.HandlerFunc(h.Extract)))
}

// =============================================================================
// POST /api/ai - Draft Quote Items
// =============================================================================

// Extract sends the drafting conversation to the provider and returns
// the structured proposal.
func (h *AIHandler) Extract(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromRequest(r)
	if user == nil {
		writeAIError(w, http.StatusUnauthorized, "Authentification requise")
		return
	}

	if h.provider == nil {
		h.logger.Error("ai extract called without configured provider")
		writeAIError(w, http.StatusInternalServerError, "L'assistant IA n'est pas configuré")
		return
	}

	if err := h.quota.CheckAIQuota(r.Context(), user.ID, user.Tier()); err != nil {
		if domain.ErrorCode(err) == domain.EQUOTA {
			writeAIError(w, http.StatusPaymentRequired, "Quota mensuel d'appels IA atteint. Passez au plan Pro pour continuer.")
			return
		}
		h.logger.Error("ai quota check failed", "error", err, "user_id", user.ID)
		writeAIError(w, http.StatusInternalServerError, "Une erreur est survenue. Veuillez réessayer.")
		return
	}

	var req aiExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAIError(w, http.StatusBadRequest, "Corps de requête invalide")
		return
	}
	if len(req.Messages) == 0 {
		writeAIError(w, http.StatusBadRequest, "Au moins un message est requis")
		return
	}

	messages := make([]ai.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := ai.Role(m.Role)
		if role != ai.RoleUser && role != ai.RoleAssistant {
			writeAIError(w, http.StatusBadRequest, "Rôle de message invalide")
			return
		}
		if m.Content == "" {
			writeAIError(w, http.StatusBadRequest, "Un message ne peut pas être vide")
			return
		}
		messages = append(messages, ai.Message{Role: role, Content: m.Content})
	}

	extraction, err := h.provider.Extract(r.Context(), ai.ExtractParams{Messages: messages})
	if err != nil {
		h.handleProviderError(w, err, user.ID.String())
		return
	}

	recordAIUsage(extraction.Usage)
	metrics.AIExtractions.WithLabelValues("success").Inc()

	// The call already happened; an accounting failure must not cost
	// the user their result.
	if err := h.quota.RecordAICall(r.Context(), user.ID); err != nil {
		h.logger.Error("failed to record ai call", "error", err, "user_id", user.ID)
	}

	h.logger.Info("ai extraction completed",
		"user_id", user.ID,
		"items", len(extraction.Items),
		"model", extraction.Usage.Model,
		"input_tokens", extraction.Usage.InputTokens,
		"output_tokens", extraction.Usage.OutputTokens,
		"duration", extraction.Usage.Duration,
	)

	items := make([]aiItemResponse, 0, len(extraction.Items))
	for _, item := range extraction.Items {
		items = append(items, aiItemResponse{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			VAT:         item.VAT,
		})
	}

	resp := aiExtractResponse{
		Items: aiExtractionResponse{
			ConversationalMessage: extraction.ConversationalMessage,
			ClientName:            extraction.ClientName,
			ClientAddress:         extraction.ClientAddress,
			Items:                 items,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode ai response", "error", err)
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// handleProviderError maps provider sentinel errors onto HTTP statuses
// and French messages the editor can surface directly.
func (h *AIHandler) handleProviderError(w http.ResponseWriter, err error, userID string) {
	metrics.AIAPICalls.WithLabelValues("error").Inc()
	metrics.AIExtractions.WithLabelValues("error").Inc()

	switch {
	case errors.Is(err, ai.EAIRateLimit):
		h.logger.Warn("ai provider rate limited", "user_id", userID)
		writeAIError(w, http.StatusTooManyRequests, "L'assistant IA est surchargé. Veuillez réessayer dans quelques instants.")
	case errors.Is(err, ai.EAITimeout):
		h.logger.Warn("ai request timed out", "user_id", userID)
		writeAIError(w, http.StatusGatewayTimeout, "L'assistant IA n'a pas répondu à temps. Veuillez réessayer.")
	case errors.Is(err, ai.EAIUnavailable):
		h.logger.Warn("ai provider unavailable", "user_id", userID)
		writeAIError(w, http.StatusBadGateway, "L'assistant IA est temporairement indisponible.")
	case errors.Is(err, ai.EAIUnauthorized):
		// Credential problem on our side, not the user's.
		h.logger.Error("ai provider rejected credentials", "error", err)
		writeAIError(w, http.StatusInternalServerError, "L'assistant IA n'est pas configuré correctement.")
	case errors.Is(err, ai.EAINoContent), errors.Is(err, ai.EAIParse):
		h.logger.Error("ai provider returned unusable response", "error", err, "user_id", userID)
		writeAIError(w, http.StatusInternalServerError, "L'assistant IA a renvoyé une réponse inexploitable. Veuillez reformuler.")
	default:
		h.logger.Error("ai extraction failed", "error", err, "user_id", userID)
		writeAIError(w, http.StatusInternalServerError, "Une erreur est survenue avec l'assistant IA.")
	}
}

// recordAIUsage feeds token and cost counters from a completed call.
func recordAIUsage(usage ai.UsageInfo) {
	metrics.AIAPICalls.WithLabelValues("success").Inc()
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))

	costCents := float64(usage.InputTokens)*aiPricingInputCents/1_000_000 +
		float64(usage.OutputTokens)*aiPricingOutputCents/1_000_000
	metrics.AICostCentsTotal.Add(costCents)
}

func writeAIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(aiErrorResponse{Error: message})
}
