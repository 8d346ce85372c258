package service

import (
	"testing"

	"github.com/google/uuid"

	"github.com/tbouquin/artisia/internal/repository"
)

// =============================================================================
// Ledger Delta Tests
// =============================================================================

func TestLedgerDeltas_FirstApplication(t *testing.T) {
	clientID := uuid.New()

	adjs := ledgerDeltas(nil, clientID, 1500)

	if len(adjs) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(adjs))
	}
	if adjs[0].ID != clientID {
		t.Errorf("adjustment targets %v, want %v", adjs[0].ID, clientID)
	}
	if adjs[0].SpentDelta != 1500 {
		t.Errorf("SpentDelta = %v, want 1500", adjs[0].SpentDelta)
	}
	if adjs[0].CountDelta != 1 {
		t.Errorf("CountDelta = %d, want 1", adjs[0].CountDelta)
	}
}

func TestLedgerDeltas_ResaveSameAmountIsNoOp(t *testing.T) {
	clientID := uuid.New()
	prev := &repository.ClientContribution{
		QuoteID:  uuid.New(),
		ClientID: clientID,
		Amount:   648,
	}

	adjs := ledgerDeltas(prev, clientID, 648)

	if len(adjs) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(adjs))
	}
	if adjs[0].SpentDelta != 0 {
		t.Errorf("SpentDelta = %v, want 0", adjs[0].SpentDelta)
	}
	if adjs[0].CountDelta != 0 {
		t.Errorf("CountDelta = %d, want 0", adjs[0].CountDelta)
	}
}

func TestLedgerDeltas_ResaveNewAmountAdjustsDifference(t *testing.T) {
	clientID := uuid.New()
	prev := &repository.ClientContribution{
		QuoteID:  uuid.New(),
		ClientID: clientID,
		Amount:   1000,
	}

	adjs := ledgerDeltas(prev, clientID, 1296)

	if len(adjs) != 1 {
		t.Fatalf("expected 1 adjustment, got %d", len(adjs))
	}
	if adjs[0].SpentDelta != 296 {
		t.Errorf("SpentDelta = %v, want 296", adjs[0].SpentDelta)
	}
	if adjs[0].CountDelta != 0 {
		t.Errorf("CountDelta = %d, want 0 (quote already counted)", adjs[0].CountDelta)
	}
}

func TestLedgerDeltas_QuoteMovedToAnotherClient(t *testing.T) {
	oldClient := uuid.New()
	newClient := uuid.New()
	prev := &repository.ClientContribution{
		QuoteID:  uuid.New(),
		ClientID: oldClient,
		Amount:   4920,
	}

	adjs := ledgerDeltas(prev, newClient, 4920)

	if len(adjs) != 2 {
		t.Fatalf("expected 2 adjustments, got %d", len(adjs))
	}
	if adjs[0].ID != oldClient || adjs[0].SpentDelta != -4920 || adjs[0].CountDelta != -1 {
		t.Errorf("old client not fully reversed: %+v", adjs[0])
	}
	if adjs[1].ID != newClient || adjs[1].SpentDelta != 4920 || adjs[1].CountDelta != 1 {
		t.Errorf("new client not fully credited: %+v", adjs[1])
	}
}

func TestLedgerDeltas_TwoQuotesAccumulate(t *testing.T) {
	// Two independent quotes for the same client add up: the ledger
	// sees each first-application delta once.
	clientID := uuid.New()

	first := ledgerDeltas(nil, clientID, 540)
	second := ledgerDeltas(nil, clientID, 756)

	totalSpent := first[0].SpentDelta + second[0].SpentDelta
	totalCount := first[0].CountDelta + second[0].CountDelta

	if totalSpent != 1296 {
		t.Errorf("accumulated spend = %v, want 1296", totalSpent)
	}
	if totalCount != 2 {
		t.Errorf("accumulated count = %d, want 2", totalCount)
	}
}

func TestLedgerDeltas_ReversalMirrorsContribution(t *testing.T) {
	// Deleting a quote applies the exact negative of what it contributed.
	clientID := uuid.New()
	prev := &repository.ClientContribution{
		QuoteID:  uuid.New(),
		ClientID: clientID,
		Amount:   648,
	}

	apply := ledgerDeltas(nil, clientID, prev.Amount)
	reverse := repository.AdjustClientLedgerParams{
		ID:         prev.ClientID,
		SpentDelta: -prev.Amount,
		CountDelta: -1,
	}

	if apply[0].SpentDelta+reverse.SpentDelta != 0 {
		t.Errorf("spend does not cancel: %v + %v", apply[0].SpentDelta, reverse.SpentDelta)
	}
	if apply[0].CountDelta+reverse.CountDelta != 0 {
		t.Errorf("count does not cancel: %d + %d", apply[0].CountDelta, reverse.CountDelta)
	}
}
