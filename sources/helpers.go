package sources

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/textutil"
)

var (
	partNumberRe = regexp.MustCompile(`[A-Za-z0-9\-]{5,}`)
	oemRe        = regexp.MustCompile(`(?i)\b(OEM|Genuine|Factory|Original)\b`)
	srcsetRe     = regexp.MustCompile(`\s+\d+(?:\.\d+)?[wx](?:,|$)`)
	absoluteRe   = regexp.MustCompile(`(?i)^https?://`)
)

// firstNonEmpty returns the first value that is non-empty after whitespace
// normalization.
func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if t := textutil.CollapseSpace(v); t != "" {
			return t
		}
	}
	return ""
}

// PartNumberFrom extracts a best-effort part identifier from free text.
func PartNumberFrom(s string) string {
	m := partNumberRe.FindString(s)
	return strings.ToUpper(m)
}

// DetectOEM reports whether a listing title claims original-equipment status.
func DetectOEM(name string) bool {
	return oemRe.MatchString(name)
}

// unwrapNextImage resolves a Next.js image-optimizer URL back to the real
// upstream image it wraps.
func unwrapNextImage(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return src
	}
	if strings.Contains(u.Path, "/_next/image") && u.Query().Has("url") {
		if real, err := url.QueryUnescape(u.Query().Get("url")); err == nil && real != "" {
			return real
		}
	}
	return src
}

// Absolutize turns the attribute soup catalog sites put in src/srcset into an
// absolute URL: protocol-relative, root-relative and srcset candidate lists
// all resolve against the supplier base.
func Absolutize(src, base string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	src = unwrapNextImage(src)
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if absoluteRe.MatchString(src) {
		return src
	}
	if strings.HasPrefix(src, "/") {
		return strings.TrimRight(base, "/") + src
	}
	if srcsetRe.MatchString(src) {
		first := strings.TrimSpace(strings.SplitN(src, ",", 2)[0])
		first = strings.SplitN(first, " ", 2)[0]
		return Absolutize(first, base)
	}
	return src
}

// imageFromAttrs returns the first non-empty of the given attributes on the
// selection's img elements, absolutized.
func imageFromAttrs(sel *goquery.Selection, attrs []string, base string) string {
	var found string
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range attrs {
			if raw, ok := img.Attr(attr); ok {
				if abs := Absolutize(raw, base); abs != "" {
					found = abs
					return false
				}
			}
		}
		return true
	})
	return found
}

// filteredImage returns the first image on the selection whose absolutized
// URL matches the accept pattern, preferring plain src over lazy-load
// attributes.
func filteredImage(sel *goquery.Selection, attrs []string, accept *regexp.Regexp, base string) string {
	var found string
	sel.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		for _, attr := range attrs {
			raw, ok := img.Attr(attr)
			if !ok {
				continue
			}
			abs := Absolutize(raw, base)
			if abs != "" && accept.MatchString(abs) {
				found = abs
				return false
			}
		}
		return true
	})
	return found
}

// currencyOf guesses the currency for a scraped price string.
func currencyOf(price string) string {
	switch {
	case strings.Contains(price, "$"):
		return "USD"
	case strings.Contains(price, "€"):
		return "EUR"
	case strings.Contains(price, "£"):
		return "GBP"
	default:
		return ""
	}
}
