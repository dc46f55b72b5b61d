package services

import (
	gofpdf "github.com/phpdave11/gofpdf"

	"github.com/clindocs/reportbinder/internal/models"
)

// Generated pages are US Letter. Copied pages keep their source dimensions;
// the footer band anchors to whatever bottom edge the page has.
const (
	letterWidth  = 612.0 // 8.5in at 72pt
	letterHeight = 792.0 // 11in

	footerBandHeight = 50.4 // 0.7in blank-out band
	footerMargin     = 36.0 // 0.5in left/right inset
	footerBaseline   = 18.0 // 0.25in text baseline above bottom
	footerRuleHeight = 36.0 // 0.5in separator line above bottom

	footerFontSize = 10
	coverFontSize  = 24
)

// Stamp is a single-page drawing procedure. Applying it composites its
// graphics over whatever the current output page already carries; for
// covers the page is blank, so the stamp is the whole page.
type Stamp struct {
	draw func(doc *gofpdf.Fpdf, pageW, pageH float64)
}

// ApplyTo draws the stamp onto the current page of doc.
func (s Stamp) ApplyTo(doc *gofpdf.Fpdf, pageW, pageH float64) {
	s.draw(doc, pageW, pageH)
}

// RenderFooter builds the footer-band stamp for spec: an opaque white band
// over the bottom 0.7in, the optional report title on the left, the
// "Page N of Total" string centered, and a gray separator line.
func RenderFooter(spec models.FooterSpec) Stamp {
	return Stamp{draw: func(doc *gofpdf.Fpdf, pageW, pageH float64) {
		drawFooterBand(doc, spec, pageW, pageH)
	}}
}

// RenderCover builds a full cover page stamp: the trial title bold and
// centered at mid-page, plus the identical footer band.
func RenderCover(title string, spec models.FooterSpec) Stamp {
	return Stamp{draw: func(doc *gofpdf.Fpdf, pageW, pageH float64) {
		doc.SetFont("Helvetica", "B", coverFontSize)
		doc.SetTextColor(0, 0, 0)
		titleWidth := doc.GetStringWidth(title)
		doc.Text((pageW-titleWidth)/2, pageH/2, title)
		drawFooterBand(doc, spec, pageW, pageH)
	}}
}

// drawFooterBand is the one footer-painting procedure shared by footer and
// cover stamps. Order matters: the white band first obliterates any footer
// the source page carries, then text and rule go on top of it.
func drawFooterBand(doc *gofpdf.Fpdf, spec models.FooterSpec, pageW, pageH float64) {
	if err := spec.Validate(); err != nil {
		doc.SetErrorf("footer band: %v", err)
		return
	}

	doc.SetFillColor(255, 255, 255)
	doc.Rect(0, pageH-footerBandHeight, pageW, footerBandHeight, "F")

	doc.SetFont("Helvetica", "", footerFontSize)
	doc.SetTextColor(0, 0, 0)
	if spec.ReportTitle != "" {
		doc.Text(footerMargin, pageH-footerBaseline, spec.ReportTitle)
	}

	text := spec.Text()
	textWidth := doc.GetStringWidth(text)
	doc.Text((pageW-textWidth)/2, pageH-footerBaseline, text)

	doc.SetDrawColor(127, 127, 127)
	doc.Line(footerMargin, pageH-footerRuleHeight, pageW-footerMargin, pageH-footerRuleHeight)
}
