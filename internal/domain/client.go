// Package domain contains core business types and interfaces.
//
// This file defines the Client ledger entry and related types for
// tracking per-client spend across quotes.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Client Domain Type
// =============================================================================

// Client is a per-customer ledger entry. TotalSpent and QuotesCount are
// maintained as a side effect of quote saves: each quote contributes to
// them exactly once, keyed by quote id, and the contribution is
// superseded when the quote changes and reversed when it is deleted.
//
// Name is the dedup key within an owner's scope (exact match).
type Client struct {
	ID          uuid.UUID // Unique identifier
	UserID      uuid.UUID // Owner of the client record
	Name        string    // Client name, unique per owner
	Email       string    // Contact email
	Phone       string    // Contact phone
	Address     string    // Postal address
	TotalSpent  float64   // Accumulated quote totals
	QuotesCount int       // Number of quotes contributing to TotalSpent
	CreatedAt   time.Time // When client was created
	UpdatedAt   time.Time // When client was last modified
}

// HasContact returns true if the client has any contact information.
func (c *Client) HasContact() bool {
	return c.Email != "" || c.Phone != "" || c.Address != ""
}

// =============================================================================
// Ledger Contribution
// =============================================================================

// ClientContribution records one quote's applied share of a client's
// ledger accumulators. The quote id is the primary key, which makes
// applying a quote idempotent: re-saving adjusts the stored amount
// instead of incrementing again.
type ClientContribution struct {
	QuoteID   uuid.UUID // The contributing quote (primary key)
	ClientID  uuid.UUID // The credited client
	Amount    float64   // Quote total applied to the ledger
	UpdatedAt time.Time
}

// =============================================================================
// Client Service Parameters
// =============================================================================

// ClientIdentity carries the contact fields attached to a quote, used
// to create or refresh the matching ledger entry.
type ClientIdentity struct {
	Name    string // Required: dedup key
	Email   string // Optional
	Phone   string // Optional
	Address string // Optional
}

// CreateClientParams contains validated parameters for creating a client.
type CreateClientParams struct {
	UserID  uuid.UUID // Owner of the client (from auth context)
	Name    string    // Required: client name
	Email   string    // Optional
	Phone   string    // Optional
	Address string    // Optional
}

// UpdateClientParams contains validated parameters for updating a client.
type UpdateClientParams struct {
	ID      uuid.UUID // Client to update
	UserID  uuid.UUID // Owner (for authorization)
	Name    string    // Required: client name
	Email   string    // Optional
	Phone   string    // Optional
	Address string    // Optional
}

// ListClientsParams contains parameters for listing clients.
type ListClientsParams struct {
	UserID uuid.UUID // Filter by user
	Limit  int32     // Max results to return
	Offset int32     // Number of results to skip
}

// =============================================================================
// List Result with Pagination
// =============================================================================

// ListClientsResult contains the result of a paginated client list query.
type ListClientsResult struct {
	Clients []Client // The client results
	Total   int64    // Total number of clients (for pagination)
	Limit   int32    // Number of results requested
	Offset  int32    // Number of results skipped
}

// HasMore returns true if there are more results available.
func (r *ListClientsResult) HasMore() bool {
	return int64(r.Offset+r.Limit) < r.Total
}

// HasPrevious returns true if there are previous results available.
func (r *ListClientsResult) HasPrevious() bool {
	return r.Offset > 0
}

// CurrentPage returns the current page number (1-indexed).
func (r *ListClientsResult) CurrentPage() int {
	if r.Limit == 0 {
		return 1
	}
	return int(r.Offset/r.Limit) + 1
}

// TotalPages returns the total number of pages.
func (r *ListClientsResult) TotalPages() int {
	if r.Limit == 0 {
		return 1
	}
	pages := r.Total / int64(r.Limit)
	if r.Total%int64(r.Limit) > 0 {
		pages++
	}
	return int(pages)
}
