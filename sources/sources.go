// Package sources holds the per-supplier search extractors. Each source is a
// search-URL builder plus an ordered chain of extraction strategies tried
// until one yields listings; the orchestration here is source-agnostic and
// the site-specific trivia lives in selector data (see defaults.go).
package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/models"
)

// Fetcher retrieves a URL as text. Satisfied by the pipeline's document
// fetcher; tests substitute their own.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (string, error)
}

// Strategy is one extraction attempt over a fetched document. Strategies are
// pure functions of the document and query.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document, query string) []models.RawListing
}

// Source is a third-party catalog site queried for listings.
type Source struct {
	Name      string
	SearchURL func(query string) string
	Chain     []Strategy
}

// Search fetches the source's result page for the query and runs the
// extraction chain in declared order, stopping at the first strategy that
// yields results. When every strategy comes up empty the source still
// returns a single "open search on the site" listing so the user always has
// a path forward. Errors escape only on total unreachability of the source.
func (s *Source) Search(ctx context.Context, f Fetcher, query string) ([]models.RawListing, error) {
	searchURL := s.SearchURL(query)

	headers := map[string]string{}
	if i := strings.Index(searchURL, "//"); i >= 0 {
		if j := strings.Index(searchURL[i+2:], "/"); j >= 0 {
			headers["Referer"] = searchURL[:i+2+j] + "/"
		}
	}

	html, err := f.Fetch(ctx, searchURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%s search failed: %w", s.Name, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("%s returned unparseable markup: %w", s.Name, err)
	}

	for _, strat := range s.Chain {
		listings := strat.Extract(doc, query)
		if len(listings) == 0 {
			continue
		}
		for i := range listings {
			listings[i].Supplier = s.Name
		}
		return listings, nil
	}

	return []models.RawListing{{
		Supplier:   s.Name,
		Title:      fmt.Sprintf("Open %s search: %s", s.Name, query),
		Link:       searchURL,
		PartNumber: PartNumberFrom(query),
	}}, nil
}
