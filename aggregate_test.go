package partfinder

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/zombar/partfinder/models"
	"github.com/zombar/partfinder/sources"
)

// stubSource builds a source whose search page lives at searchURL and whose
// extraction yields a fixed listing set.
func stubSource(name, searchURL string, listings []models.RawListing) *sources.Source {
	return &sources.Source{
		Name:      name,
		SearchURL: func(string) string { return searchURL },
		Chain: []sources.Strategy{{
			Name: "stub",
			Extract: func(_ *goquery.Document, _ string) []models.RawListing {
				return listings
			},
		}},
	}
}

func TestSearchAggregatesAndDedupes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	// Both catalogs return the pump; the shared URL must collapse to the
	// first-seen listing.
	alpha := stubSource("alpha", server.URL+"/a", []models.RawListing{
		{Title: "Washer Drain Pump", Link: "https://catalog-a.example.com/p/1", Image: "https://cdn-a.example.com/1.jpg", Price: "$45.99"},
		{Title: "Washer Drain Pump W11259006", Link: "https://shared.example.com/pump", Image: "https://cdn-a.example.com/2.jpg", Price: "$45.99"},
	})
	beta := stubSource("beta", server.URL+"/b", []models.RawListing{
		{Title: "Drain Pump Assembly W11259006", Link: "https://shared.example.com/pump", Image: "https://cdn-b.example.com/2.jpg", Price: "$52.00"},
		{Title: "Drive Motor", Link: "https://catalog-b.example.com/p/3", Image: "https://cdn-b.example.com/3.jpg", Price: "$89.50"},
	})

	a := New(DefaultConfig(), nil, []*sources.Source{alpha, beta})
	result, err := a.Search(context.Background(), "W11259006")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(result.Items) != 3 {
		t.Fatalf("Expected 3 deduplicated items, got %d", len(result.Items))
	}

	// First occurrence wins for the shared URL.
	var shared *models.Listing
	for _, l := range result.Items {
		if l.URL == "https://shared.example.com/pump" {
			shared = l
		}
	}
	if shared == nil {
		t.Fatal("Expected the shared listing to survive dedup")
	}
	if shared.Supplier != "alpha" || shared.Price != "$45.99" {
		t.Errorf("Expected first-seen listing to win, got supplier %s price %s", shared.Supplier, shared.Price)
	}

	if result.Meta.RequestID == "" {
		t.Error("Expected a request id")
	}
	if len(result.Meta.Sources) != 2 {
		t.Fatalf("Expected 2 source outcomes, got %d", len(result.Meta.Sources))
	}
	for i, expected := range []models.SourceOutcome{
		{Name: "alpha", OK: true, Count: 2},
		{Name: "beta", OK: true, Count: 2},
	} {
		got := result.Meta.Sources[i]
		if got.Name != expected.Name || got.OK != expected.OK || got.Count != expected.Count {
			t.Errorf("Outcome %d: expected %+v, got %+v", i, expected, got)
		}
	}
}

func TestSearchSourceFailureIsIsolated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/down") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ok := stubSource("alpha", server.URL+"/a", []models.RawListing{
		{Title: "Washer Drain Pump", Link: "https://catalog-a.example.com/p/1", Image: "https://cdn-a.example.com/1.jpg"},
	})
	down := stubSource("beta", server.URL+"/down", nil)

	a := New(DefaultConfig(), nil, []*sources.Source{ok, down})
	result, err := a.Search(context.Background(), "pump")
	if err != nil {
		t.Fatalf("Expected search to succeed despite a failing source, got %v", err)
	}

	if len(result.Items) != 1 {
		t.Errorf("Expected the healthy source's item, got %d items", len(result.Items))
	}

	alpha, beta := result.Meta.Sources[0], result.Meta.Sources[1]
	if !alpha.OK || alpha.Count != 1 {
		t.Errorf("Expected healthy outcome for alpha, got %+v", alpha)
	}
	if beta.OK || beta.Error == "" {
		t.Errorf("Expected failed outcome with an error for beta, got %+v", beta)
	}
}

func TestSearchEnrichesFromDetailPage(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("/part/W11259006", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<meta property="og:image" content="` + server.URL + `/photo/pump.jpg" />
		</head><body>
			<div><h3>Previous part numbers</h3><p>Part #10820039, Part #8574957</p></div>
		</body></html>`))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.ImageTemplates = map[string]ImageTemplate{
		"SearsPartsDirect": {
			Photo:        server.URL + "/is/%s",
			Illustration: server.URL + "/is/%s?illustration",
		},
	}
	cfg.ImageIDOverrides = nil

	src := stubSource("SearsPartsDirect", server.URL+"/search", []models.RawListing{
		{Title: "Washer Drain Pump W11259006 OEM", Link: server.URL + "/part/W11259006", PartNumber: "W11259006"},
	})

	a := New(cfg, nil, []*sources.Source{src})
	result, err := a.Search(context.Background(), "W11259006")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(result.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result.Items))
	}

	l := result.Items[0]
	if l.Image != server.URL+"/photo/pump.jpg" {
		t.Errorf("Expected the detail-page image, got %q", l.Image)
	}
	if l.ImageConfidence != models.ImagePageDerived {
		t.Errorf("Expected page-derived confidence, got %s", l.ImageConfidence)
	}
	if len(l.PreviousPartNumbers) != 2 || l.PreviousPartNumbers[0] != "10820039" || l.PreviousPartNumbers[1] != "8574957" {
		t.Errorf("Expected previous identifiers [10820039 8574957], got %v", l.PreviousPartNumbers)
	}
	if !strings.Contains(l.Name, "Previous part numbers") || !strings.Contains(l.Name, "Part #8574957") {
		t.Errorf("Expected composed title with previous identifiers, got %q", l.Name)
	}
}

func TestSearchRespectsDetailBudget(t *testing.T) {
	var detailFetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/detail/") {
			detailFetches.Add(1)
		}
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.MaxDetailFetches = 1

	src := stubSource("nowhere", server.URL+"/search", []models.RawListing{
		{Title: "Pump One 1111111", Link: server.URL + "/detail/1"},
		{Title: "Pump Two 2222222", Link: server.URL + "/detail/2"},
		{Title: "Pump Three 3333333", Link: server.URL + "/detail/3"},
	})

	a := New(cfg, nil, []*sources.Source{src})
	if _, err := a.Search(context.Background(), "pump"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if n := detailFetches.Load(); n != 1 {
		t.Errorf("Expected exactly 1 detail fetch under a budget of 1, got %d", n)
	}
}

func TestSearchZeroDetailBudgetFetchesNothing(t *testing.T) {
	var detailFetches atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/detail/") {
			detailFetches.Add(1)
		}
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.MaxDetailFetches = 0

	src := stubSource("nowhere", server.URL+"/search", []models.RawListing{
		{Title: "Pump One 1111111", Link: server.URL + "/detail/1"},
	})

	a := New(cfg, nil, []*sources.Source{src})
	if _, err := a.Search(context.Background(), "pump"); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if n := detailFetches.Load(); n != 0 {
		t.Errorf("Expected no detail fetches under a zero budget, got %d", n)
	}
}
