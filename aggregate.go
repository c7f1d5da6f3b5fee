// Package partfinder implements the aggregation-and-enrichment pipeline: it
// fans a free-text part query out to independent catalog sources, unifies and
// deduplicates what comes back, and recovers product images and superseded
// part numbers from the sources' detail pages under fixed request budgets.
package partfinder

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/zombar/partfinder/models"
	"github.com/zombar/partfinder/sources"
)

// Aggregator orchestrates the whole pipeline for one query.
type Aggregator struct {
	cfg       Config
	fetcher   *Fetcher
	sources   []*sources.Source
	resolver  *ImageResolver
	enricher  *Enricher
	presenter *Presenter
}

// New creates an Aggregator. A nil source list registers the default
// catalogs.
func New(cfg Config, fetcher *Fetcher, srcs []*sources.Source) *Aggregator {
	if fetcher == nil {
		fetcher = NewFetcher(cfg)
	}
	if srcs == nil {
		srcs = sources.Defaults()
	}
	return &Aggregator{
		cfg:       cfg,
		fetcher:   fetcher,
		sources:   srcs,
		resolver:  NewImageResolver(cfg),
		enricher:  NewEnricher(cfg),
		presenter: NewPresenter(cfg),
	}
}

// Search runs the pipeline: concurrent source fan-out with isolated failure,
// normalization and order-preserving dedup, the bounded image/identifier
// resolution passes, and presentation assembly. A source failing only
// reduces coverage; Search itself fails only on internal faults.
func (a *Aggregator) Search(ctx context.Context, query string) (*models.SearchResult, error) {
	start := time.Now()
	requestID := uuid.New().String()
	searchesTotal.Inc()

	type sourceResult struct {
		listings []models.RawListing
		err      error
	}
	results := make([]sourceResult, len(a.sources))

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src *sources.Source) {
			defer wg.Done()
			listings, err := src.Search(ctx, a.fetcher, query)
			results[i] = sourceResult{listings: listings, err: err}
		}(i, src)
	}
	wg.Wait()

	outcomes := make([]models.SourceOutcome, 0, len(a.sources))
	var raw []models.RawListing
	for i, src := range a.sources {
		r := results[i]
		if r.err != nil {
			log.Printf("[%s] source %s failed: %v", requestID, src.Name, r.err)
			sourceOutcomes.WithLabelValues(src.Name, "error").Inc()
			outcomes = append(outcomes, models.SourceOutcome{Name: src.Name, OK: false, Error: r.err.Error()})
			continue
		}
		sourceOutcomes.WithLabelValues(src.Name, "ok").Inc()
		outcomes = append(outcomes, models.SourceOutcome{Name: src.Name, OK: true, Count: len(r.listings)})
		raw = append(raw, r.listings...)
	}

	items := dedupe(raw)

	a.resolver.Prepare(items)
	a.enrichFromPages(ctx, items, requestID)
	a.resolver.Verify(ctx, items, a.fetcher)
	a.presenter.Apply(items)

	for _, l := range items {
		imageResolutions.WithLabelValues(string(l.ImageConfidence)).Inc()
	}
	searchDuration.Observe(time.Since(start).Seconds())

	return &models.SearchResult{
		Items: items,
		Meta: models.SearchMeta{
			TookMS:    time.Since(start).Milliseconds(),
			RequestID: requestID,
			Sources:   outcomes,
		},
	}, nil
}

// dedupe normalizes raw listings, drops the ones without a link and keeps
// the first occurrence per absolute URL, preserving arrival order.
func dedupe(raw []models.RawListing) []*models.Listing {
	items := make([]*models.Listing, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		if r.Link == "" || seen[r.Link] {
			continue
		}
		seen[r.Link] = true
		items = append(items, models.Normalize(r))
	}
	return items
}

// enrichFromPages runs the bounded detail-page pass. Each fetched page feeds
// both the image extraction chain and the previous-identifier extraction, so
// a listing costs at most one secondary request. Per-listing failures leave
// that listing unresolved and touch nothing else.
func (a *Aggregator) enrichFromPages(ctx context.Context, items []*models.Listing, requestID string) {
	var candidates []*models.Listing
	for _, l := range items {
		if len(candidates) >= a.cfg.MaxDetailFetches {
			break
		}
		if !a.resolver.NeedsPage(l) {
			continue
		}
		candidates = append(candidates, l)
	}

	forEachListing(ctx, candidates, a.cfg.EnrichWorkers, func(ctx context.Context, l *models.Listing) {
		html, err := a.fetcher.FetchPage(ctx, l.URL)
		if err != nil {
			log.Printf("[%s] detail fetch failed for %s: %v", requestID, l.URL, err)
			return
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			log.Printf("[%s] unparseable detail page %s: %v", requestID, l.URL, err)
			return
		}

		a.resolver.FromPage(l, doc, html)
		if prev := a.enricher.PreviousParts(doc, doc.Text(), l.PartNumber); len(prev) > 0 {
			l.PreviousPartNumbers = prev
		}
	})
}
