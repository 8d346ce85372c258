package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/tbouquin/artisia/internal/domain"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator renders a quote as an A4 PDF devis.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator() *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	return &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
}

// ContentType returns the MIME type of the rendered document.
func (g *PDFGenerator) ContentType() string {
	return "application/pdf"
}

// Generate renders the devis and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, doc *domain.QuoteDocument, w io.Writer) (int64, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTitle(tr("Devis "+doc.Quote.Number), true)
	if doc.HasCompany() {
		pdf.SetAuthor(tr(doc.Company.Name), true)
	}
	pdf.SetCreator("Artisia", true)

	// Leave room for the legal footer on every page.
	pdf.SetAutoPageBreak(true, 30)
	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, tr, doc)
	})

	pdf.AddPage()
	g.addHeader(pdf, tr, doc)
	g.addParties(pdf, tr, doc)
	g.addMeta(pdf, tr, doc)
	g.addItemsTable(pdf, tr, doc)
	g.addTotals(pdf, tr, doc)
	g.addMentions(pdf, tr, doc)
	g.addSignatureBox(pdf, tr)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Header: logo, company block, title
// =============================================================================

func (g *PDFGenerator) addHeader(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	top := pdf.GetY()

	// Logo on the left, when one was uploaded.
	logoBottom := top
	if len(doc.Logo) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		info := pdf.RegisterImageOptionsReader("company-logo", opts, bytes.NewReader(doc.Logo))
		pdf.ImageOptions("company-logo", g.margin, top, 35, 0, false, opts, 0, "")
		if info != nil && info.Width() > 0 {
			logoBottom = top + 35*info.Height()/info.Width()
		}
	}

	// Company block on the right.
	if doc.HasCompany() {
		c := doc.Company
		pdf.SetXY(g.pageWidth/2, top)
		pdf.SetFont("Helvetica", "B", 11)
		g.setTextHex(pdf, BrandColors.TextDark)
		pdf.CellFormat(g.contentWidth/2, 6, tr(c.Name), "", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "", 9)
		g.setTextHex(pdf, BrandColors.TextMuted)
		for _, line := range []string{c.Address, c.Phone, c.Email, c.Website} {
			if line == "" {
				continue
			}
			pdf.SetX(g.pageWidth / 2)
			pdf.CellFormat(g.contentWidth/2, 5, tr(line), "", 1, "R", false, 0, "")
		}
	}

	y := pdf.GetY()
	if logoBottom > y {
		y = logoBottom
	}
	pdf.SetY(y + 10)

	// Title bar in the accent color.
	r, gr, b := HexToRGB(AccentColor(doc))
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(g.margin, pdf.GetY(), g.contentWidth, 12, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(g.margin+4, pdf.GetY()+2)
	pdf.Cell(0, 8, tr("DEVIS N° "+doc.Quote.Number))
	pdf.Ln(14)

	g.setTextHex(pdf, BrandColors.TextDark)
}

// =============================================================================
// Client block
// =============================================================================

func (g *PDFGenerator) addParties(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	q := doc.Quote

	pdf.SetFont("Helvetica", "B", 10)
	g.setTextHex(pdf, BrandColors.TextMuted)
	pdf.Cell(0, 6, tr("ADRESSÉ À"))
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "B", 11)
	g.setTextHex(pdf, BrandColors.TextDark)
	pdf.Cell(0, 6, tr(q.ClientName))
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 10)
	if q.ClientAddress != "" {
		pdf.MultiCell(g.contentWidth, 5, tr(q.ClientAddress), "", "L", false)
	}
	if q.ClientEmail != "" {
		pdf.Cell(0, 5, tr(q.ClientEmail))
		pdf.Ln(5)
	}
	pdf.Ln(4)
}

// =============================================================================
// Meta grid: dates
// =============================================================================

func (g *PDFGenerator) addMeta(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	r, gr, b := HexToRGB(BrandColors.Background)
	pdf.SetFillColor(r, gr, b)

	labelW := 45.0
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(labelW, 7, tr("Date d'émission"), "1", 0, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(labelW, 7, FormatDate(doc.Quote.CreatedAt), "1", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(labelW, 7, tr("Valable jusqu'au"), "1", 0, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(g.contentWidth-3*labelW, 7, FormatDate(doc.ValidUntil()), "1", 1, "L", false, 0, "")

	pdf.Ln(8)
}

// =============================================================================
// Line items table
// =============================================================================

// Column widths for the items table, in mm. Description takes the rest
// of the content width.
const (
	colQuantity  = 20.0
	colUnit      = 15.0
	colUnitPrice = 30.0
	colLineTotal = 30.0
)

func (g *PDFGenerator) addItemsTable(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	colDescription := g.contentWidth - colQuantity - colUnit - colUnitPrice - colLineTotal

	// Table header
	r, gr, b := HexToRGB(AccentColor(doc))
	pdf.SetFillColor(r, gr, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(colDescription, 8, tr("DESCRIPTION"), "1", 0, "L", true, 0, "")
	pdf.CellFormat(colQuantity, 8, tr("QTÉ"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(colUnit, 8, tr("UNITÉ"), "1", 0, "C", true, 0, "")
	pdf.CellFormat(colUnitPrice, 8, tr("PRIX UNIT."), "1", 0, "R", true, 0, "")
	pdf.CellFormat(colLineTotal, 8, tr("TOTAL HT"), "1", 1, "R", true, 0, "")

	// Rows
	g.setTextHex(pdf, BrandColors.TextDark)
	pdf.SetFont("Helvetica", "", 9)
	fill := false
	bgR, bgG, bgB := HexToRGB(BrandColors.Background)

	for _, item := range doc.Quote.Items {
		if pdf.GetY() > 240 {
			pdf.AddPage()
		}
		if fill {
			pdf.SetFillColor(bgR, bgG, bgB)
		}
		pdf.CellFormat(colDescription, 7, tr(TruncateText(item.Description, 70)), "1", 0, "L", fill, 0, "")
		pdf.CellFormat(colQuantity, 7, tr(FormatQuantity(item.Quantity)), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colUnit, 7, tr(item.Unit), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(colUnitPrice, 7, tr(FormatEUR(item.UnitPrice)), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(colLineTotal, 7, tr(FormatEUR(item.Total)), "1", 1, "R", fill, 0, "")
		fill = !fill
	}

	if len(doc.Quote.Items) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		g.setTextHex(pdf, BrandColors.TextMuted)
		pdf.CellFormat(g.contentWidth, 7, tr("Aucune prestation"), "1", 1, "C", false, 0, "")
		g.setTextHex(pdf, BrandColors.TextDark)
	}

	pdf.Ln(6)
}

// =============================================================================
// Totals block
// =============================================================================

func (g *PDFGenerator) addTotals(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	q := doc.Quote
	labelW := 45.0
	valueW := 35.0
	x := g.pageWidth - g.margin - labelW - valueW

	pdf.SetX(x)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(labelW, 7, tr("Total HT"), "", 0, "R", false, 0, "")
	pdf.CellFormat(valueW, 7, tr(FormatEUR(q.Subtotal)), "", 1, "R", false, 0, "")

	// The VAT line is omitted entirely for exempt quotes.
	if !doc.VATExempt() {
		pdf.SetX(x)
		pdf.CellFormat(labelW, 7, tr(fmt.Sprintf("TVA (%s)", FormatRate(q.TaxRate))), "", 0, "R", false, 0, "")
		pdf.CellFormat(valueW, 7, tr(FormatEUR(q.TaxAmount)), "", 1, "R", false, 0, "")
	}

	r, gr, b := HexToRGB(AccentColor(doc))
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.4)
	pdf.SetX(x)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(labelW, 9, tr("NET À PAYER"), "TB", 0, "R", false, 0, "")
	pdf.CellFormat(valueW, 9, tr(FormatEUR(q.Total)), "TB", 1, "R", false, 0, "")
	pdf.SetLineWidth(0.2)

	pdf.Ln(8)
}

// =============================================================================
// Mentions and signature
// =============================================================================

func (g *PDFGenerator) addMentions(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	mentions := doc.LegalMentions()
	if mentions == "" {
		return
	}
	pdf.SetFont("Helvetica", "I", 8)
	g.setTextHex(pdf, BrandColors.TextMuted)
	pdf.MultiCell(g.contentWidth, 4, tr(mentions), "", "L", false)
	g.setTextHex(pdf, BrandColors.TextDark)
	pdf.Ln(6)
}

func (g *PDFGenerator) addSignatureBox(pdf *fpdf.Fpdf, tr func(string) string) {
	boxW := 80.0
	boxH := 30.0

	if pdf.GetY()+boxH > g.pageHeight-35 {
		pdf.AddPage()
	}

	x := g.pageWidth - g.margin - boxW
	y := pdf.GetY()

	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Rect(x, y, boxW, boxH, "D")

	pdf.SetXY(x+3, y+3)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.Cell(boxW-6, 5, tr("Bon pour accord"))
	pdf.SetXY(x+3, y+9)
	pdf.SetFont("Helvetica", "I", 8)
	g.setTextHex(pdf, BrandColors.TextMuted)
	pdf.Cell(boxW-6, 4, tr("(Date et signature)"))
	g.setTextHex(pdf, BrandColors.TextDark)

	pdf.SetY(y + boxH + 5)
}

// =============================================================================
// Footer
// =============================================================================

func (g *PDFGenerator) addFooter(pdf *fpdf.Fpdf, tr func(string) string, doc *domain.QuoteDocument) {
	pdf.SetY(-25)

	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())

	g.setTextHex(pdf, BrandColors.TextMuted)
	pdf.SetFont("Helvetica", "", 7)
	pdf.Ln(2)

	if doc.HasCompany() {
		c := doc.Company
		identity := c.Name
		if c.LegalForm != "" {
			identity = c.LegalForm + " " + c.Name
		}
		if c.Siret != "" {
			identity += " - SIRET " + c.Siret
		}
		pdf.CellFormat(g.contentWidth, 4, tr(identity), "", 1, "C", false, 0, "")
	}

	pdf.CellFormat(g.contentWidth, 4, tr(g.vatMention(doc)), "", 1, "C", false, 0, "")

	// Right: page number
	pdf.SetXY(-g.margin-30, -8)
	pdf.CellFormat(30, 5, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}

// vatMention returns the mandatory VAT footer line: the franchise
// exemption wording for 0% quotes, the intra-community VAT number
// otherwise.
func (g *PDFGenerator) vatMention(doc *domain.QuoteDocument) string {
	if doc.VATExempt() {
		return "TVA non applicable, art. 293 B du CGI"
	}
	if doc.HasCompany() && doc.Company.TVANumber != "" {
		return "N° TVA Intracommunautaire : " + doc.Company.TVANumber
	}
	return ""
}

// =============================================================================
// Helpers
// =============================================================================

func (g *PDFGenerator) setTextHex(pdf *fpdf.Fpdf, hex string) {
	r, gr, b := HexToRGB(hex)
	pdf.SetTextColor(r, gr, b)
}
