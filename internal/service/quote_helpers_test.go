package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tbouquin/artisia/internal/domain"
	"github.com/tbouquin/artisia/internal/repository"
)

func TestGenerateQuoteNumber(t *testing.T) {
	number := generateQuoteNumber("DEV-")

	wantPrefix := fmt.Sprintf("DEV-%d-", time.Now().Year())
	if !strings.HasPrefix(number, wantPrefix) {
		t.Fatalf("number = %q, want prefix %q", number, wantPrefix)
	}

	suffix := strings.TrimPrefix(number, wantPrefix)
	if len(suffix) != 3 {
		t.Errorf("sequence part = %q, want 3 digits", suffix)
	}
}

func TestItemsFromParams_RecomputesTotals(t *testing.T) {
	items := itemsFromParams([]domain.QuoteItemParams{
		{Description: "Pose de parquet", Quantity: 18.5, Unit: "m²", UnitPrice: 52},
	})

	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Total != 962 {
		t.Errorf("Total = %v, want 962", items[0].Total)
	}
	if items[0].ID == uuid.Nil {
		t.Error("new items must get an id")
	}
}

func TestItemsFromParams_PreservesExistingIDs(t *testing.T) {
	existing := uuid.New()
	items := itemsFromParams([]domain.QuoteItemParams{
		{ID: &existing, Description: "Ligne existante", Quantity: 1, UnitPrice: 100},
		{Description: "Nouvelle ligne", Quantity: 2, UnitPrice: 50},
	})

	if items[0].ID != existing {
		t.Errorf("existing id = %s, want %s", items[0].ID, existing)
	}
	if items[1].ID == existing || items[1].ID == uuid.Nil {
		t.Errorf("new item id = %s, want a fresh id", items[1].ID)
	}
}

func TestMarshalItems_NilBecomesEmptyArray(t *testing.T) {
	raw, err := marshalItems(nil)
	if err != nil {
		t.Fatalf("marshalItems: %v", err)
	}
	if string(raw) != "[]" {
		t.Errorf("raw = %s, want []", raw)
	}
}

func TestRowToQuote_RoundTrip(t *testing.T) {
	itemID := uuid.New()
	itemsJSON, err := json.Marshal([]domain.LineItem{
		{ID: itemID, Description: "Peinture murale", Quantity: 40, Unit: "m²", UnitPrice: 12, Total: 480},
	})
	if err != nil {
		t.Fatalf("marshal items: %v", err)
	}

	validUntil := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, 9, 1, 9, 30, 0, 0, time.UTC)

	row := repository.Quote{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Number:     "DEV-2026-007",
		ClientName: "Mme Bernard",
		Items:      itemsJSON,
		TaxRate:    10,
		Subtotal:   480,
		TaxAmount:  48,
		Total:      528,
		Status:     "sent",
		ValidUntil: sql.NullTime{Time: validUntil, Valid: true},
		Notes:      sql.NullString{String: "Acompte 30%", Valid: true},
		CreatedAt:  sql.NullTime{Time: created, Valid: true},
		UpdatedAt:  sql.NullTime{Time: created, Valid: true},
	}

	quote, err := rowToQuote(row)
	if err != nil {
		t.Fatalf("rowToQuote: %v", err)
	}

	if quote.Status != domain.QuoteStatusSent {
		t.Errorf("Status = %q, want sent", quote.Status)
	}
	if len(quote.Items) != 1 || quote.Items[0].ID != itemID {
		t.Errorf("items not preserved: %+v", quote.Items)
	}
	if quote.ValidUntil == nil || !quote.ValidUntil.Equal(validUntil) {
		t.Errorf("ValidUntil = %v, want %v", quote.ValidUntil, validUntil)
	}
	if quote.Notes != "Acompte 30%" {
		t.Errorf("Notes = %q", quote.Notes)
	}
	if !quote.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", quote.CreatedAt, created)
	}
}

func TestRowToQuote_BadItemsJSON(t *testing.T) {
	row := repository.Quote{
		ID:     uuid.New(),
		Items:  json.RawMessage("{corrupt"),
		Status: "draft",
	}

	if _, err := rowToQuote(row); err == nil {
		t.Fatal("expected an error for corrupt items JSON")
	}
}
