// Package report renders quote documents (devis) as PDF files.
//
// The package defines a Generator interface implemented by
// PDFGenerator, along with common helpers for French number and date
// formatting and for document styling.
package report

import (
	"context"
	"io"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbouquin/artisia/internal/domain"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator renders a quote document to a writer.
type Generator interface {
	// Generate renders the document and writes it to w.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, doc *domain.QuoteDocument, w io.Writer) (int64, error)

	// ContentType returns the MIME type of the rendered document.
	ContentType() string
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors defines the default color palette for documents. The
// accent color is replaced by the company's PrimaryColor when one is
// configured.
var BrandColors = struct {
	Accent     string // Headers and highlights
	TextDark   string // Primary text
	TextMuted  string // Secondary text
	Border     string // Borders and dividers
	Background string // Table header fill
	White      string // White
}{
	Accent:     "#1E3A5F",
	TextDark:   "#1F2937",
	TextMuted:  "#6B7280",
	Border:     "#E5E7EB",
	Background: "#F9FAFB",
	White:      "#FFFFFF",
}

// AccentColor returns the document accent color, preferring the
// company's configured PrimaryColor over the default.
func AccentColor(doc *domain.QuoteDocument) string {
	if doc.HasCompany() && validHexColor(doc.Company.PrimaryColor) {
		return doc.Company.PrimaryColor
	}
	return BrandColors.Accent
}

func validHexColor(s string) bool {
	if len(s) == 7 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

// hexToDec converts a 2-character hex string to decimal.
func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

var frenchPrinter = message.NewPrinter(language.French)

// FormatEUR formats a monetary amount the French way, with a
// non-breaking thin space as thousands separator and a comma as
// decimal separator, e.g. "1 234,56 €".
func FormatEUR(amount float64) string {
	return frenchPrinter.Sprintf("%.2f €", amount)
}

// FormatQuantity formats a line item quantity without trailing zeros,
// so "2" rather than "2,00" but "1,5" stays precise.
func FormatQuantity(q float64) string {
	return frenchPrinter.Sprintf("%v", q)
}

// FormatRate formats a VAT percentage for display, e.g. "20 %" or
// "5,5 %".
func FormatRate(rate float64) string {
	return frenchPrinter.Sprintf("%v %%", rate)
}

// FormatDate formats a date the French way for documents.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// TruncateText truncates text to a maximum length, adding ellipsis if needed.
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:maxLen]
	}
	return text[:maxLen-3] + "..."
}
