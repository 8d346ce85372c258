package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tbouquin/artisia/internal/ai"
)

const (
	// APIBaseURL is the base URL for the Gemini generateContent API.
	APIBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

	// DefaultModel is the default Gemini model to use.
	DefaultModel = "gemini-flash-latest"
)

// Config contains configuration for the Gemini provider.
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements the ai.Provider interface using the Gemini API.
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Gemini AI provider. A missing API key is a
// configuration error surfaced at construction, not per request.
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// Extract sends the drafting conversation to Gemini and parses the
// structured JSON contract out of the model's reply.
func (p *Provider) Extract(ctx context.Context, params ai.ExtractParams) (*ai.Extraction, error) {
	startTime := time.Now()

	if len(params.Messages) == 0 {
		return nil, ai.WrapError("extract", fmt.Errorf("messages are required"))
	}

	body, err := p.buildRequestBody(params)
	if err != nil {
		return nil, ai.WrapError("build request", err)
	}

	resp, err := p.executeWithRetry(ctx, body)
	if err != nil {
		return nil, ai.WrapError("execute request", err)
	}

	result, err := p.parseExtraction(resp)
	if err != nil {
		return nil, ai.WrapError("parse response", err)
	}

	result.Usage = ai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		Duration:     time.Since(startTime),
	}

	return result, nil
}

// buildRequestBody maps the conversation onto the Gemini wire format.
// Editor roles are user/assistant; Gemini expects user/model.
func (p *Provider) buildRequestBody(params ai.ExtractParams) ([]byte, error) {
	contents := make([]apiContent, 0, len(params.Messages))
	for _, msg := range params.Messages {
		role := "model"
		if msg.Role == ai.RoleUser {
			role = "user"
		}
		contents = append(contents, apiContent{
			Role:  role,
			Parts: []apiPart{{Text: msg.Content}},
		})
	}

	reqBody := apiRequest{
		SystemInstruction: &apiSystemInstruction{
			Parts: []apiPart{{Text: systemPrompt}},
		},
		Contents: contents,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return bodyBytes, nil
}

// executeWithRetry executes the request with exponential backoff retry
// on transient provider errors.
func (p *Provider) executeWithRetry(ctx context.Context, body []byte) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		resp, err := p.executeRequest(ctx, body)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !ai.IsRetryable(err) {
			return nil, err
		}

		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		// Exponential backoff: base * 2^(attempt-1)
		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP round trip.
func (p *Provider) executeRequest(ctx context.Context, body []byte) (*apiResponse, error) {
	url := fmt.Sprintf("%s/%s:generateContent", APIBaseURL, p.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.config.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, ai.EAIUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to sentinel provider errors.
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ai.EAIUnauthorized
	case http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case http.StatusRequestTimeout:
		return ai.EAITimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		return ai.EAIUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// parseExtraction pulls the JSON contract out of the first candidate's
// text, stripping any markdown code fences the model wrapped it in, and
// validates the decoded shape field by field.
func (p *Provider) parseExtraction(resp *apiResponse) (*ai.Extraction, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ai.EAINoContent
	}

	text := resp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return nil, ai.EAINoContent
	}

	jsonStr := strings.TrimSpace(stripCodeFences(text))

	var output extractionOutput
	if err := json.Unmarshal([]byte(jsonStr), &output); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.EAIParse, err)
	}

	result := &ai.Extraction{
		ConversationalMessage: output.ConversationalMessage,
		Items:                 make([]ai.ProposedItem, 0, len(output.Items)),
	}
	if output.ClientName != nil {
		result.ClientName = *output.ClientName
	}
	if output.ClientAddress != nil {
		result.ClientAddress = *output.ClientAddress
	}
	for _, item := range output.Items {
		result.Items = append(result.Items, ai.ProposedItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   item.UnitPrice,
			VAT:         item.VAT,
		})
	}

	if err := ai.ValidateExtraction(result); err != nil {
		return nil, err
	}

	return result, nil
}

// stripCodeFences removes markdown ```json fences around the payload.
func stripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	return strings.ReplaceAll(s, "```", "")
}

// API request/response types

type apiRequest struct {
	SystemInstruction *apiSystemInstruction `json:"system_instruction,omitempty"`
	Contents          []apiContent          `json:"contents"`
}

type apiSystemInstruction struct {
	Parts []apiPart `json:"parts"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text string `json:"text"`
}

type apiResponse struct {
	Candidates    []apiCandidate   `json:"candidates"`
	UsageMetadata apiUsageMetadata `json:"usageMetadata"`
}

type apiCandidate struct {
	Content      apiContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type apiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// extractionOutput mirrors the JSON structure the model must return.
type extractionOutput struct {
	ConversationalMessage string       `json:"conversationalMessage"`
	ClientName            *string      `json:"clientName"`
	ClientAddress         *string      `json:"clientAddress"`
	Items                 []outputItem `json:"items"`
}

type outputItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unitPrice"`
	VAT         float64 `json:"vat"`
}
