// Package api exposes the search aggregator over HTTP: the query endpoint,
// the allow-listed image relay, health and metrics.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zombar/partfinder/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Searcher runs one aggregation pipeline pass for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (*models.SearchResult, error)
}

// Config contains server configuration.
type Config struct {
	Addr string
	// AllowedImageHosts is the relay allow-list.
	AllowedImageHosts []string
	// SearchTimeout bounds one aggregation run end to end.
	SearchTimeout time.Duration
	CORSEnabled   bool
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Addr: ":8080",
		AllowedImageHosts: []string{
			"s.sears.com",
			"www.repairclinic.com",
			"rcappliancepartsimages.com",
		},
		SearchTimeout: 60 * time.Second,
		CORSEnabled:   true,
	}
}

// Server represents the API server.
type Server struct {
	searcher    Searcher
	addr        string
	server      *http.Server
	mux         *http.ServeMux
	relayClient *http.Client
	allowed     map[string]bool
	timeout     time.Duration
	corsEnabled bool
}

// NewServer creates a new API server around a searcher.
func NewServer(config Config, searcher Searcher) *Server {
	allowed := make(map[string]bool, len(config.AllowedImageHosts))
	for _, h := range config.AllowedImageHosts {
		allowed[strings.ToLower(h)] = true
	}

	s := &Server{
		searcher: searcher,
		addr:     config.Addr,
		mux:      http.NewServeMux(),
		relayClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		allowed:     allowed,
		timeout:     config.SearchTimeout,
		corsEnabled: config.CORSEnabled,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         config.Addr,
		Handler:      otelhttp.NewHandler(s.middleware(s.mux), "partfinder"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// registerRoutes sets up all API routes
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/search", s.handleSearch)
	s.mux.HandleFunc("/api/img", s.handleImage)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Start starts the API server
func (s *Server) Start() error {
	log.Printf("Starting API server on %s", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.server.Shutdown(ctx)
}

// middleware applies common middleware to all routes
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.corsEnabled {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
		}

		// Logging (skip health checks to reduce noise)
		start := time.Now()
		if r.URL.Path != "/health" {
			log.Printf("%s %s", r.Method, r.URL.Path)
		}

		next.ServeHTTP(w, r)

		if r.URL.Path != "/health" {
			log.Printf("%s %s - completed in %v", r.Method, r.URL.Path, time.Since(start))
		}
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now(),
	})
}

// handleSearch answers GET /api/search?q=...
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		respondError(w, http.StatusBadRequest, "q is required")
		return
	}

	// Canned result set so the front end can be exercised offline.
	if query == "__demo" {
		respondJSON(w, http.StatusOK, demoResult())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	result, err := s.searcher.Search(ctx, query)
	if err != nil {
		log.Printf("Search failed for %q: %v", query, err)
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("search failed: %v", err))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleImage relays an allow-listed upstream image, streaming the body with
// the upstream Content-Type and a long-lived cache directive. Upstream
// failure statuses pass through; only transport errors become a 500.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := r.URL.Query().Get("u")
	if raw == "" {
		raw = r.URL.Query().Get("url")
	}
	if raw == "" {
		respondError(w, http.StatusBadRequest, "u is required")
		return
	}

	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		respondError(w, http.StatusBadRequest, "bad url")
		return
	}
	if !s.allowed[strings.ToLower(u.Hostname())] {
		respondError(w, http.StatusBadRequest, "host not allowed")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		respondError(w, http.StatusBadRequest, "bad url")
		return
	}
	req.Header.Set("Accept", "image/*,*/*;q=0.8")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; PartFinder/1.0)")
	// Scene7 and the RepairClinic CDN want to see a same-site referer.
	req.Header.Set("Referer", u.Scheme+"://"+u.Hostname()+"/")

	resp, err := s.relayClient.Do(req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "upstream fetch failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respondError(w, resp.StatusCode, fmt.Sprintf("upstream %d", resp.StatusCode))
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("Relay stream aborted for %s: %v", u.String(), err)
	}
}

// demoResult mirrors the canned payload the original front end is built
// against.
func demoResult() *models.SearchResult {
	items := []*models.Listing{
		{Supplier: "demo", Name: "Washer Pump", PartNumber: "W11259006", Price: "$45.99", Currency: "USD", URL: "#", Image: "https://via.placeholder.com/150", PreviousPartNumbers: []string{}},
		{Supplier: "demo", Name: "Motor", PartNumber: "M12345", Price: "$89.50", Currency: "USD", URL: "#", Image: "https://via.placeholder.com/150", PreviousPartNumbers: []string{}},
		{Supplier: "demo", Name: "Knob", PartNumber: "K54321", Price: "$12.00", Currency: "USD", URL: "#", Image: "https://via.placeholder.com/150", PreviousPartNumbers: []string{}},
	}
	return &models.SearchResult{
		Items: items,
		Meta: models.SearchMeta{
			Sources: []models.SourceOutcome{{Name: "demo", OK: true, Count: len(items)}},
		},
	}
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
