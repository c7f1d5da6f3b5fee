package partfinder

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/models"
	"github.com/zombar/partfinder/sources"
)

// numericIDRe matches the numeric identifier catalog sites key their image
// CDNs by. Part numbers like W11259006 carry it as their digit run.
var numericIDRe = regexp.MustCompile(`\d{7,}`)

// pageImageAttrs is the attribute preference order when mining a detail page
// for its product image, covering the usual lazy-load and responsive
// variants.
var pageImageAttrs = []string{"src", "data-src", "data-original", "data-srcset", "data-lazy", "srcset"}

// ImageResolver recovers a usable product photo for listings that arrived
// without one. Authentic photography from the detail page is preferred;
// constructed CDN URLs are the cheap middle tier and get verified before the
// response ships.
type ImageResolver struct {
	cfg         Config
	badPatterns []string
	idPatterns  map[string]*regexp.Regexp
}

// NewImageResolver creates a resolver from pipeline configuration.
func NewImageResolver(cfg Config) *ImageResolver {
	r := &ImageResolver{
		cfg:        cfg,
		idPatterns: make(map[string]*regexp.Regexp, len(cfg.ImageTemplates)),
	}
	for _, p := range cfg.BadImagePatterns {
		r.badPatterns = append(r.badPatterns, strings.ToLower(p))
	}
	for supplier, tmpl := range cfg.ImageTemplates {
		if tmpl.IDPattern == "" {
			continue
		}
		re, err := regexp.Compile(tmpl.IDPattern)
		if err != nil {
			log.Printf("Invalid image id pattern for %s: %v", supplier, err)
			continue
		}
		r.idPatterns[supplier] = re
	}
	return r
}

// isBadImage reports whether an inherited image URL matches a known
// placeholder pattern.
func (r *ImageResolver) isBadImage(imageURL string) bool {
	lower := strings.ToLower(imageURL)
	for _, p := range r.badPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// cdnID returns the identifier to key the supplier's image template by,
// consulting the override table first. Some parts keep their photo filed
// under a historically superseded identifier.
func (r *ImageResolver) cdnID(partNumber string) string {
	if id, ok := r.cfg.ImageIDOverrides[strings.ToUpper(partNumber)]; ok {
		return id
	}
	return numericIDRe.FindString(partNumber)
}

func (r *ImageResolver) photoURL(tmpl ImageTemplate, id string) string {
	return fmt.Sprintf(tmpl.Photo, id)
}

func (r *ImageResolver) illustrationURL(tmpl ImageTemplate, id string) string {
	return fmt.Sprintf(tmpl.Illustration, id)
}

// Prepare runs the synchronous first tier over every listing: scrub known-bad
// inherited images, then construct a synthetic CDN candidate where the
// supplier's template and a numeric identifier allow it. No I/O happens here.
func (r *ImageResolver) Prepare(items []*models.Listing) {
	for _, l := range items {
		if l.Image != "" && r.isBadImage(l.Image) {
			log.Printf("Discarding placeholder image for %s: %s", l.URL, l.Image)
			l.Image = ""
			l.ImageConfidence = models.ImageAbsent
		}

		if l.ImageConfidence != models.ImageAbsent {
			continue
		}
		tmpl, ok := r.cfg.ImageTemplates[l.Supplier]
		if !ok {
			continue
		}
		id := r.cdnID(l.PartNumber)
		if id == "" {
			continue
		}
		l.UpgradeImage(r.photoURL(tmpl, id), models.ImageSynthetic)
	}
}

// NeedsPage reports whether the listing should be queued for a detail-page
// fetch: it has a page to fetch and no page-derived image yet.
func (r *ImageResolver) NeedsPage(l *models.Listing) bool {
	if l.URL == "" {
		return false
	}
	return l.ImageConfidence == models.ImageAbsent || l.ImageConfidence == models.ImageSynthetic
}

// FromPage applies the prioritized extraction chain to a fetched detail page:
// the representative meta tag, then image elements (lazy-load variants
// included, restricted to the supplier CDN family when one is known), then
// the supplier's identifier convention matched against the raw page text.
func (r *ImageResolver) FromPage(l *models.Listing, doc *goquery.Document, rawHTML string) {
	tmpl, hasTmpl := r.cfg.ImageTemplates[l.Supplier]
	base := originOf(l.URL)

	accepts := func(abs string) bool {
		if abs == "" || r.isBadImage(abs) {
			return false
		}
		if !hasTmpl || tmpl.Host == "" {
			return true
		}
		u, err := url.Parse(abs)
		return err == nil && strings.EqualFold(u.Hostname(), tmpl.Host)
	}

	// 1. Representative meta tag.
	if og, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok {
		if abs := sources.Absolutize(og, base); accepts(abs) {
			l.UpgradeImage(abs, models.ImagePageDerived)
			return
		}
	}

	// 2. Image elements, primary and deferred attributes.
	var found string
	doc.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range pageImageAttrs {
			raw, ok := img.Attr(attr)
			if !ok {
				continue
			}
			if abs := sources.Absolutize(raw, base); accepts(abs) {
				found = abs
				return false
			}
		}
		return true
	})
	if found != "" {
		l.UpgradeImage(found, models.ImagePageDerived)
		return
	}

	// 3. The supplier's CDN convention inside the raw page text.
	if re, ok := r.idPatterns[l.Supplier]; ok {
		if m := re.FindString(rawHTML); m != "" {
			l.UpgradeImage(m, models.ImagePageDerived)
		}
	}
}

// Verify probes still-constructed image URLs and substitutes the illustration
// variant when the photo does not exist. Both outcomes end in verified; the
// illustration is deterministic and never probed further.
func (r *ImageResolver) Verify(ctx context.Context, items []*models.Listing, fetcher *Fetcher) {
	var candidates []*models.Listing
	for _, l := range items {
		if len(candidates) >= r.cfg.MaxImageProbes {
			break
		}
		if l.ImageConfidence != models.ImageSynthetic {
			continue
		}
		candidates = append(candidates, l)
	}

	forEachListing(ctx, candidates, r.cfg.EnrichWorkers, func(ctx context.Context, l *models.Listing) {
		if err := fetcher.Probe(ctx, l.Image); err != nil {
			imageProbes.WithLabelValues("miss").Inc()
			tmpl, ok := r.cfg.ImageTemplates[l.Supplier]
			if !ok {
				return
			}
			id := r.cdnID(l.PartNumber)
			if id == "" {
				return
			}
			log.Printf("Image probe failed for %s, substituting illustration: %v", l.URL, err)
			l.UpgradeImage(r.illustrationURL(tmpl, id), models.ImageVerified)
			return
		}
		imageProbes.WithLabelValues("hit").Inc()
		l.UpgradeImage(l.Image, models.ImageVerified)
	})
}
