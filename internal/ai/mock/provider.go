package mock

import (
	"context"
	"log/slog"
	"time"

	"github.com/tbouquin/artisia/internal/ai"
)

// Provider is a mock AI provider for testing and development.
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	ExtractResponse *ai.Extraction
	ExtractError    error

	// Call tracking for testing
	ExtractCalls int
	LastParams   ai.ExtractParams
}

// New creates a new mock AI provider.
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// Extract returns a canned drafting proposal.
func (p *Provider) Extract(ctx context.Context, params ai.ExtractParams) (*ai.Extraction, error) {
	p.ExtractCalls++
	p.LastParams = params

	// If a custom response or error is set, use it
	if p.ExtractError != nil {
		return nil, p.ExtractError
	}
	if p.ExtractResponse != nil {
		return p.ExtractResponse, nil
	}

	// Default canned response
	return &ai.Extraction{
		ConversationalMessage: "Voici le devis pour la rénovation électrique de M. Dupont.",
		ClientName:            "M. Dupont",
		ClientAddress:         "12 rue des Lilas, 69003 Lyon",
		Items: []ai.ProposedItem{
			{
				Description: "Remplacement tableau électrique 3 rangées",
				Quantity:    1,
				Unit:        "ens",
				UnitPrice:   2400,
				VAT:         10,
			},
			{
				Description: "Pose prise murale encastrée",
				Quantity:    2,
				Unit:        "u",
				UnitPrice:   850,
				VAT:         10,
			},
		},
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  420,
			OutputTokens: 180,
			Duration:     250 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing.
func (p *Provider) Reset() {
	p.ExtractCalls = 0
	p.LastParams = ai.ExtractParams{}
	p.ExtractResponse = nil
	p.ExtractError = nil
}
