package partfinder

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/textutil"
)

// headingSelector covers the node kinds catalog templates use for the
// "previous part numbers" label.
const headingSelector = "h1, h2, h3, h4, h5, h6, dt, th, strong, b, .label, .section-title, .section-header"

// Enricher extracts the list of superseded identifiers from a listing's
// detail page. Structural matching first, a bounded raw-text window as the
// resilient fallback.
type Enricher struct {
	label     string
	window    int
	maxParts  int
	stopLower []string
}

// NewEnricher creates an enricher from pipeline configuration.
func NewEnricher(cfg Config) *Enricher {
	e := &Enricher{
		label:    textutil.FoldLabel(cfg.PreviousLabel),
		window:   cfg.PreviousWindow,
		maxParts: cfg.MaxPreviousParts,
	}
	for _, h := range cfg.StopHeadings {
		e.stopLower = append(e.stopLower, textutil.FoldLabel(h))
	}
	return e
}

// PreviousParts returns the superseded identifiers found on the detail page,
// excluding the listing's own identifier, deduplicated, capped. The document
// drives the structural pass; pageText backs the windowed fallback when no
// matching region resolves.
func (e *Enricher) PreviousParts(doc *goquery.Document, pageText, ownPartNumber string) []string {
	region := e.structuralRegion(doc)
	if region == "" {
		region = e.windowedRegion(pageText)
	}
	if region == "" {
		return nil
	}
	return e.collectIDs(region, ownPartNumber)
}

// structuralRegion finds the heading whose normalized text equals the label
// and returns the text of its nearest containing block. Precise but fragile
// to template variance, hence the fallback.
func (e *Enricher) structuralRegion(doc *goquery.Document) string {
	var region string
	doc.Find(headingSelector).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if textutil.FoldLabel(h.Text()) != e.label {
			return true
		}
		block := h.Parent()
		if block.Length() == 0 {
			block = h
		}
		region = block.Text()
		return false
	})
	return region
}

// windowedRegion anchors at the label's first occurrence in the page text and
// returns a fixed span after it, truncated early when an unrelated section
// heading shows up inside the window. The bound keeps the fallback from
// swallowing adjacent sections. The whole text goes through the same folding
// as the label and the stop headings, so byte offsets always line up and
// nbsp-laced headings still match; the identifiers collected afterwards are
// plain digits and survive folding untouched.
func (e *Enricher) windowedRegion(pageText string) string {
	folded := textutil.FoldLabel(pageText)

	idx := strings.Index(folded, e.label)
	if idx < 0 {
		return ""
	}

	start := idx + len(e.label)
	end := start + e.window
	if end > len(folded) {
		end = len(folded)
	}
	window := folded[start:end]

	for _, stop := range e.stopLower {
		if cut := strings.Index(window, stop); cut >= 0 {
			window = window[:cut]
		}
	}
	return window
}

// collectIDs pulls numeric identifiers out of a text region, dropping the
// listing's own identifier and duplicates, preserving first appearance.
func (e *Enricher) collectIDs(region, ownPartNumber string) []string {
	own := numericIDRe.FindString(ownPartNumber)

	var out []string
	seen := make(map[string]bool)
	for _, id := range numericIDRe.FindAllString(region, -1) {
		if id == own || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) >= e.maxParts {
			break
		}
	}
	return out
}
