package partfinder

import (
	"net/url"
	"strings"

	"github.com/zombar/partfinder/models"
)

// Presenter composes the display title and routes image URLs through the
// same-origin relay.
type Presenter struct {
	proxyPath string
	allowed   map[string]bool
}

// NewPresenter creates a presenter from pipeline configuration.
func NewPresenter(cfg Config) *Presenter {
	allowed := make(map[string]bool, len(cfg.AllowedImageHosts))
	for _, h := range cfg.AllowedImageHosts {
		allowed[strings.ToLower(h)] = true
	}
	return &Presenter{proxyPath: cfg.ProxyPath, allowed: allowed}
}

// Apply finalizes every listing for the response.
func (p *Presenter) Apply(items []*models.Listing) {
	for _, l := range items {
		l.Name = ComposeTitle(l)
		l.Image = p.RewriteImageURL(l.Image)
	}
}

// ComposeTitle builds the display title: base name, the part-number line,
// and one line per previous identifier under its header.
func ComposeTitle(l *models.Listing) string {
	lines := []string{l.Name}
	if l.Name == "" {
		lines = lines[:0]
		if l.PartNumber != "" {
			lines = append(lines, l.PartNumber)
		} else {
			lines = append(lines, "Part")
		}
	}

	if digits := numericIDRe.FindString(l.PartNumber); digits != "" {
		lines = append(lines, "Part #"+digits)
	}
	if len(l.PreviousPartNumbers) > 0 {
		lines = append(lines, "Previous part numbers")
		for _, p := range l.PreviousPartNumbers {
			lines = append(lines, "Part #"+p)
		}
	}
	return strings.Join(lines, "\n")
}

// RewriteImageURL rewrites an allow-listed image URL to the relay endpoint.
// Already-rewritten URLs pass through unchanged, so the rewrite is safe to
// re-run; URLs outside the allow-list are left direct.
func (p *Presenter) RewriteImageURL(raw string) string {
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, p.proxyPath+"?") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || !p.allowed[strings.ToLower(u.Hostname())] {
		return raw
	}
	return p.proxyPath + "?u=" + url.QueryEscape(raw)
}
