// Package domain contains core business types and interfaces.
//
// This file defines the Quote aggregate and related types for managing
// price quotes (devis) and their line items.
package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Quote Status
// =============================================================================

// QuoteStatus represents the lifecycle state of a quote.
type QuoteStatus string

const (
	// QuoteStatusDraft indicates a quote is being created/edited.
	QuoteStatusDraft QuoteStatus = "draft"

	// QuoteStatusSent indicates the quote has been finalized and a PDF
	// was generated for the client.
	QuoteStatusSent QuoteStatus = "sent"

	// QuoteStatusAccepted indicates the client accepted the quote.
	QuoteStatusAccepted QuoteStatus = "accepted"

	// QuoteStatusRejected indicates the client declined the quote.
	// Terminal state.
	QuoteStatusRejected QuoteStatus = "rejected"

	// QuoteStatusPaid indicates the accepted quote has been paid.
	// Terminal state.
	QuoteStatusPaid QuoteStatus = "paid"
)

// String returns the string representation of the status.
func (s QuoteStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusSent, QuoteStatusAccepted,
		QuoteStatusRejected, QuoteStatusPaid:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed from s.
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusRejected || s == QuoteStatusPaid
}

// CanTransitionTo checks if the quote can transition to the target status.
//
// Valid transitions:
// - draft -> sent (when the user finalizes and the PDF is generated)
// - sent -> accepted | rejected (client decision)
// - accepted -> paid (payment received)
//
// Staying on the current status is always allowed so that re-saving a
// quote does not count as a transition.
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	if s == target {
		return true
	}

	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusSent
	case QuoteStatusSent:
		return target == QuoteStatusAccepted || target == QuoteStatusRejected
	case QuoteStatusAccepted:
		return target == QuoteStatusPaid
	}

	return false
}

// TransitionTo validates and applies a status transition, returning an
// error describing the rejected transition otherwise.
func (s QuoteStatus) TransitionTo(target QuoteStatus) (QuoteStatus, error) {
	if !target.IsValid() {
		return s, fmt.Errorf("unknown quote status %q", target)
	}
	if !s.CanTransitionTo(target) {
		return s, fmt.Errorf("cannot transition quote from %q to %q", s, target)
	}
	return target, nil
}

// =============================================================================
// Line Item
// =============================================================================

// LineItem is one billable entry on a quote. Total is derived from
// Quantity and UnitPrice and must be recomputed on every mutation of
// either; persisted totals are never trusted after a partial update.
type LineItem struct {
	ID          uuid.UUID // Unique identifier within the quote
	Description string    // What is being billed
	Quantity    float64   // Amount of units (not validated non-negative)
	Unit        string    // Short unit code ("m²", "h", "u", "ens")
	UnitPrice   float64   // Price per unit, excluding tax
	Total       float64   // Derived: Quantity * UnitPrice
}

// Recompute refreshes the derived line total from its inputs.
func (li *LineItem) Recompute() {
	li.Total = li.Quantity * li.UnitPrice
}

// NewLineItem returns an empty line item the editor can fill in.
func NewLineItem() LineItem {
	return LineItem{
		ID:       uuid.New(),
		Quantity: 1,
	}
}

// =============================================================================
// Quote Aggregate
// =============================================================================

// Quote represents a priced proposal document sent to a prospective
// client. Subtotal, TaxAmount and Total are derived from the items and
// tax rate; Recompute must be called after any item or rate mutation.
type Quote struct {
	ID            uuid.UUID   // Unique identifier
	UserID        uuid.UUID   // Owner of the quote
	Number        string      // Human-readable number, e.g. "DEV-2026-001"
	ClientName    string      // Recipient name
	ClientEmail   string      // Optional
	ClientAddress string      // Optional
	Items         []LineItem  // Ordered line items
	TaxRate       float64     // VAT percentage (0, 5.5, 10, 20, ...)
	Subtotal      float64     // Derived: sum of line totals
	TaxAmount     float64     // Derived: Subtotal * TaxRate / 100
	Total         float64     // Derived: Subtotal + TaxAmount
	Status        QuoteStatus // Current lifecycle state
	ValidUntil    *time.Time  // Optional expiry of the offer
	Notes         string      // Optional free-text legal mentions override
	CreatedAt     time.Time   // When the quote was created
	UpdatedAt     time.Time   // When the quote was last modified
}

// AddItem appends a fresh line item. Existing items keep their order
// and identity.
func (q *Quote) AddItem() *LineItem {
	q.Items = append(q.Items, NewLineItem())
	item := &q.Items[len(q.Items)-1]
	item.Recompute()
	q.Recompute()
	return item
}

// Item returns the line item with the given id, or nil.
func (q *Quote) Item(id uuid.UUID) *LineItem {
	for i := range q.Items {
		if q.Items[i].ID == id {
			return &q.Items[i]
		}
	}
	return nil
}

// RemoveItem removes a line item by identity. A quote with zero items
// remains save-able and totals collapse to zero.
func (q *Quote) RemoveItem(id uuid.UUID) bool {
	for i := range q.Items {
		if q.Items[i].ID == id {
			q.Items = append(q.Items[:i], q.Items[i+1:]...)
			q.Recompute()
			return true
		}
	}
	return false
}

// Recompute refreshes every derived total on the aggregate. Line totals
// are recomputed first so stale persisted values cannot drift from
// their inputs. Values are kept at full precision; rounding happens at
// presentation time only.
func (q *Quote) Recompute() {
	var subtotal float64
	for i := range q.Items {
		q.Items[i].Recompute()
		subtotal += q.Items[i].Total
	}
	q.Subtotal = subtotal
	q.TaxAmount = subtotal * q.TaxRate / 100
	q.Total = q.Subtotal + q.TaxAmount
}

// IsEditable returns true while the quote content can still change.
func (q *Quote) IsEditable() bool {
	return q.Status == QuoteStatusDraft
}

// RoundMoney rounds a monetary amount to 2 decimal places for display
// and for ledger bookkeeping.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// =============================================================================
// Quote Service Parameters
// =============================================================================

// QuoteItemParams carries one line item from the editor.
type QuoteItemParams struct {
	ID          *uuid.UUID // Existing item id, nil for new items
	Description string
	Quantity    float64
	Unit        string
	UnitPrice   float64
}

// CreateQuoteParams contains validated parameters for creating a quote.
// Zero-valued TaxRate with DefaultTaxRate unset means a genuine 0% rate.
type CreateQuoteParams struct {
	UserID        uuid.UUID // Owner (from auth context)
	ClientName    string    // Required
	ClientEmail   string    // Optional
	ClientAddress string    // Optional
	Items         []QuoteItemParams
	TaxRate       *float64   // Optional: settings default applied when nil
	ValidUntil    *time.Time // Optional: settings validity window applied when nil
	Notes         string     // Optional
}

// UpdateQuoteParams contains validated parameters for updating a quote.
type UpdateQuoteParams struct {
	ID            uuid.UUID // Quote to update
	UserID        uuid.UUID // Owner (for authorization)
	ClientName    string
	ClientEmail   string
	ClientAddress string
	Items         []QuoteItemParams
	TaxRate       float64
	ValidUntil    *time.Time
	Notes         string
}

// UpdateQuoteStatusParams contains parameters for a status transition.
type UpdateQuoteStatusParams struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Status QuoteStatus
}

// ListQuotesParams contains parameters for listing quotes.
type ListQuotesParams struct {
	UserID uuid.UUID // Filter by owner
	Limit  int32     // Max results to return
	Offset int32     // Number of results to skip
}

// =============================================================================
// List Result with Pagination
// =============================================================================

// ListQuotesResult contains the result of a paginated quote list query,
// ordered newest-created-first.
type ListQuotesResult struct {
	Quotes []Quote // The quote results
	Total  int64   // Total number of quotes (for pagination)
	Limit  int32   // Number of results requested
	Offset int32   // Number of results skipped
}

// HasMore returns true if there are more results available.
func (r *ListQuotesResult) HasMore() bool {
	return int64(r.Offset+r.Limit) < r.Total
}

// HasPrevious returns true if there are previous results available.
func (r *ListQuotesResult) HasPrevious() bool {
	return r.Offset > 0
}

// CurrentPage returns the current page number (1-indexed).
func (r *ListQuotesResult) CurrentPage() int {
	if r.Limit == 0 {
		return 1
	}
	return int(r.Offset/r.Limit) + 1
}

// TotalPages returns the total number of pages.
func (r *ListQuotesResult) TotalPages() int {
	if r.Limit == 0 {
		return 1
	}
	pages := r.Total / int64(r.Limit)
	if r.Total%int64(r.Limit) > 0 {
		pages++
	}
	return int(pages)
}
