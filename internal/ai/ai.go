package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Provider defines the interface for AI-assisted quote drafting.
type Provider interface {
	// Extract turns a conversation about a job into structured line item
	// proposals plus optional client identity.
	Extract(ctx context.Context, params ExtractParams) (*Extraction, error)
}

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the drafting conversation, oldest first.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ExtractParams contains parameters for a drafting request.
type ExtractParams struct {
	// Messages is the prior conversation with the new user utterance
	// appended last.
	Messages []Message
}

// Extraction is the validated, structured result of a drafting request.
type Extraction struct {
	ConversationalMessage string         // Assistant reply shown in the chat
	ClientName            string         // Optional detected client name
	ClientAddress         string         // Optional detected client address
	Items                 []ProposedItem // Proposed line items
	Usage                 UsageInfo      // Token usage and cost information
}

// ProposedItem is one line item proposed by the model. UnitPrice is the
// model's market estimate when the user gave none; nothing here is
// locally enforced beyond schema validation.
type ProposedItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	VAT         float64 `json:"vat"`
}

// UsageInfo tracks API usage for billing and monitoring.
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations.
var (
	// EAIRateLimit indicates the API rate limit has been exceeded.
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAITimeout indicates the request timed out.
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable.
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials.
	EAIUnauthorized = errors.New("ai provider authentication failed")

	// EAINoContent indicates the model returned an empty response.
	EAINoContent = errors.New("ai provider returned no content")

	// EAIParse indicates the model output was not the required JSON shape.
	EAIParse = errors.New("ai response could not be parsed")
)

// IsRetryable returns true if the error is a transient error that can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}

// knownVATRates are the French VAT rates a proposal may carry.
var knownVATRates = []float64{0, 5.5, 10, 20}

// ValidateExtraction checks a decoded model response field by field.
// A response that fails any check is rejected wholesale; there is no
// partial acceptance of individual items.
func ValidateExtraction(e *Extraction) error {
	if e == nil {
		return fmt.Errorf("%w: empty extraction", EAIParse)
	}
	if e.ConversationalMessage == "" {
		return fmt.Errorf("%w: missing conversationalMessage", EAIParse)
	}
	for i, item := range e.Items {
		if item.Description == "" {
			return fmt.Errorf("%w: item %d has no description", EAIParse, i)
		}
		if item.Quantity < 0 || math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) {
			return fmt.Errorf("%w: item %d has invalid quantity %v", EAIParse, i, item.Quantity)
		}
		if item.UnitPrice < 0 || math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) {
			return fmt.Errorf("%w: item %d has invalid unitPrice %v", EAIParse, i, item.UnitPrice)
		}
		if !validVATRate(item.VAT) {
			return fmt.Errorf("%w: item %d has unknown vat rate %v", EAIParse, i, item.VAT)
		}
	}
	return nil
}

func validVATRate(rate float64) bool {
	for _, known := range knownVATRates {
		if rate == known {
			return true
		}
	}
	return false
}
