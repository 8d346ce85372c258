package gemini

import (
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbouquin/artisia/internal/ai"
)

func testProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New(Config{APIKey: "test-key"}, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, err)
	return p
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, slog.Default())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
}

func candidateResponse(text string) *apiResponse {
	return &apiResponse{
		Candidates: []apiCandidate{
			{Content: apiContent{Parts: []apiPart{{Text: text}}}},
		},
	}
}

func TestParseExtraction_FencedJSON(t *testing.T) {
	p := testProvider(t)

	resp := candidateResponse("```json\n" + `{
		"conversationalMessage": "Voici le devis pour M. Dupont",
		"clientName": "M. Dupont",
		"clientAddress": "12 rue des Lilas, Lyon",
		"items": [
			{"description": "Pose prise murale", "quantity": 2, "unit": "u", "unitPrice": 850, "vat": 10},
			{"description": "Tableau électrique complet", "quantity": 1, "unit": "ens", "unitPrice": 2400, "vat": 10}
		]
	}` + "\n```")

	result, err := p.parseExtraction(resp)
	require.NoError(t, err)

	assert.Equal(t, "Voici le devis pour M. Dupont", result.ConversationalMessage)
	assert.Equal(t, "M. Dupont", result.ClientName)
	assert.Equal(t, "12 rue des Lilas, Lyon", result.ClientAddress)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 850.0, result.Items[0].UnitPrice)
	assert.Equal(t, "ens", result.Items[1].Unit)
}

func TestParseExtraction_NullClientFields(t *testing.T) {
	p := testProvider(t)

	resp := candidateResponse(`{
		"conversationalMessage": "Pouvez-vous me donner l'adresse du chantier ?",
		"clientName": null,
		"clientAddress": null,
		"items": []
	}`)

	result, err := p.parseExtraction(resp)
	require.NoError(t, err)

	assert.Empty(t, result.ClientName)
	assert.Empty(t, result.ClientAddress)
	assert.Empty(t, result.Items)
}

func TestParseExtraction_Unparsable(t *testing.T) {
	p := testProvider(t)

	resp := candidateResponse("Je ne peux pas produire de JSON pour cette demande.")

	result, err := p.parseExtraction(resp)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ai.EAIParse)
}

func TestParseExtraction_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "missing conversational message",
			body: `{"clientName": null, "clientAddress": null, "items": []}`,
		},
		{
			name: "item without description",
			body: `{"conversationalMessage": "ok", "items": [{"description": "", "quantity": 1, "unit": "u", "unitPrice": 10, "vat": 20}]}`,
		},
		{
			name: "negative quantity",
			body: `{"conversationalMessage": "ok", "items": [{"description": "x", "quantity": -2, "unit": "u", "unitPrice": 10, "vat": 20}]}`,
		},
		{
			name: "negative unit price",
			body: `{"conversationalMessage": "ok", "items": [{"description": "x", "quantity": 1, "unit": "u", "unitPrice": -10, "vat": 20}]}`,
		},
		{
			name: "unknown vat rate",
			body: `{"conversationalMessage": "ok", "items": [{"description": "x", "quantity": 1, "unit": "u", "unitPrice": 10, "vat": 13}]}`,
		},
	}

	p := testProvider(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.parseExtraction(candidateResponse(tt.body))
			assert.Nil(t, result)
			assert.ErrorIs(t, err, ai.EAIParse)
		})
	}
}

func TestParseExtraction_NoContent(t *testing.T) {
	p := testProvider(t)

	_, err := p.parseExtraction(&apiResponse{})
	assert.ErrorIs(t, err, ai.EAINoContent)

	_, err = p.parseExtraction(candidateResponse(""))
	assert.ErrorIs(t, err, ai.EAINoContent)
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ai.EAIUnauthorized},
		{http.StatusForbidden, ai.EAIUnauthorized},
		{http.StatusTooManyRequests, ai.EAIRateLimit},
		{http.StatusRequestTimeout, ai.EAITimeout},
		{http.StatusInternalServerError, ai.EAIUnavailable},
		{http.StatusServiceUnavailable, ai.EAIUnavailable},
	}

	p := testProvider(t)
	for _, tt := range tests {
		err := p.mapHTTPError(tt.status, nil)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
	}
}

func TestBuildRequestBody_RoleMapping(t *testing.T) {
	p := testProvider(t)

	body, err := p.buildRequestBody(ai.ExtractParams{
		Messages: []ai.Message{
			{Role: ai.RoleUser, Content: "Devis pour 2 prises"},
			{Role: ai.RoleAssistant, Content: "Voici le devis"},
			{Role: ai.RoleUser, Content: "Ajoute un tableau"},
		},
	})
	require.NoError(t, err)

	s := string(body)
	assert.Contains(t, s, `"role":"user"`)
	assert.Contains(t, s, `"role":"model"`)
	assert.Contains(t, s, "system_instruction")
}
