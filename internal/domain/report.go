// Package domain contains core business types and interfaces.
//
// This file defines the data handed to the quote document renderer.
package domain

import (
	"fmt"
	"time"
)

// =============================================================================
// Quote Document
// =============================================================================

// QuoteDocument is everything the renderer needs to produce a devis
// PDF. It is assembled by the document service from the quote, the
// company profile and the user's settings; the renderer never touches
// the database.
type QuoteDocument struct {
	Quote    *Quote
	Company  *Company // nil when the profile was never saved
	Settings Settings // defaults applied when the user saved none

	// Logo holds the raw logo image bytes, nil when no logo is set or
	// it could not be fetched. Rendering proceeds without it.
	Logo []byte

	GeneratedAt time.Time
}

// ValidUntil returns the date the offer stops being binding: the
// persisted expiry when one was saved, otherwise the creation date
// plus the user's configured validity window.
func (d *QuoteDocument) ValidUntil() time.Time {
	if d.Quote.ValidUntil != nil {
		return *d.Quote.ValidUntil
	}
	return d.Quote.CreatedAt.AddDate(0, 0, d.Settings.DefaultValidityDays)
}

// LegalMentions returns the free-text mentions printed at the bottom of
// the document. The per-quote notes override the account-level default.
func (d *QuoteDocument) LegalMentions() string {
	if d.Quote.Notes != "" {
		return d.Quote.Notes
	}
	return d.Settings.DefaultLegalMentions
}

// HasCompany returns true when a company profile exists for the issuer
// block.
func (d *QuoteDocument) HasCompany() bool {
	return d.Company != nil
}

// VATExempt reports whether the quote is issued without VAT, which
// switches the legal footer to the article 293 B exemption wording.
func (d *QuoteDocument) VATExempt() bool {
	return d.Quote.TaxRate == 0
}

// Filename returns the download filename for the rendered document.
func (d *QuoteDocument) Filename() string {
	return fmt.Sprintf("Devis-%s.pdf", d.Quote.Number)
}
