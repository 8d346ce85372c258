// Package domain contains core business types and interfaces.
//
// This file defines the Company profile embedded into generated
// documents.
package domain

import (
	"time"
	"unicode"

	"github.com/google/uuid"
)

// =============================================================================
// Company Domain Type
// =============================================================================

// Company is the issuing business's legal and branding information.
// One profile per user, created on first save and updated in place;
// never deleted in-system. Consumed read-only by the document renderer.
type Company struct {
	UserID       uuid.UUID // Owner, also the primary key
	Name         string    // Legal business name
	Siret        string    // 14-digit registration number
	LegalForm    string    // e.g. "SASU", "EURL", "Auto-entrepreneur"
	TVANumber    string    // Optional intra-community VAT number
	Address      string    // Postal address
	Phone        string    // Contact phone
	Email        string    // Contact email
	Website      string    // Optional
	LogoKey      string    // Optional storage key of the uploaded logo
	PrimaryColor string    // Optional hex accent color for documents
	UpdatedAt    time.Time
}

// HasLogo returns true if a logo has been uploaded.
func (c *Company) HasLogo() bool {
	return c.LogoKey != ""
}

// ValidSiret reports whether s is a 14-digit SIRET-style number.
func ValidSiret(s string) bool {
	if len(s) != 14 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// =============================================================================
// Company Service Parameters
// =============================================================================

// Logo processing constants.
const (
	// LogoMaxDimension is the bounding box side for stored logos, in pixels.
	// Uploads larger than this are downscaled preserving aspect ratio.
	LogoMaxDimension = 512

	// LogoMaxUploadBytes is the maximum accepted logo upload size.
	LogoMaxUploadBytes = 5 << 20
)

// UpsertCompanyParams contains validated parameters for saving the
// company profile.
type UpsertCompanyParams struct {
	UserID       uuid.UUID
	Name         string // Required
	Siret        string // Required, 14 digits
	LegalForm    string // Required
	TVANumber    string // Optional
	Address      string // Required
	Phone        string // Required
	Email        string // Required
	Website      string // Optional
	PrimaryColor string // Optional
}
