package partfinder

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ImageTemplate describes a supplier's deterministic image-URL convention.
// Photo and Illustration are format strings taking the numeric identifier.
type ImageTemplate struct {
	// Host is the CDN hostname family; page-derived extraction restricts
	// candidates to this host when set.
	Host string `yaml:"host"`
	// Photo is the constructed product-photo URL template.
	Photo string `yaml:"photo"`
	// Illustration is the fallback variant substituted when a photo probe
	// fails. Same identifier, different suffix.
	Illustration string `yaml:"illustration"`
	// IDPattern matches the supplier's image convention inside raw page text.
	IDPattern string `yaml:"id_pattern"`
}

// Config contains pipeline configuration.
type Config struct {
	HTTPTimeout  time.Duration
	MaxRedirects int

	// FetchRPS caps outbound document fetches; zero disables the limiter.
	FetchRPS   float64
	FetchBurst int

	// MaxDetailFetches bounds the secondary detail-page pass per run.
	MaxDetailFetches int
	// MaxImageProbes bounds the existence-probe pass per run.
	MaxImageProbes int
	// EnrichWorkers is the concurrency of the detail-page pass.
	EnrichWorkers int

	// MaxPreviousParts caps the extracted previous-identifier list.
	MaxPreviousParts int
	// PreviousLabel is the heading that marks the previous-identifier region.
	PreviousLabel string
	// PreviousWindow bounds the raw-text fallback scan, in bytes.
	PreviousWindow int
	// StopHeadings truncate the fallback window early when one of them
	// appears inside it.
	StopHeadings []string

	// ProxyPath is the same-origin relay endpoint images are rewritten to.
	ProxyPath string
	// AllowedImageHosts is the relay allow-list; only these hosts are ever
	// rewritten or fetched by the relay.
	AllowedImageHosts []string

	// ImageTemplates maps supplier name to its CDN convention.
	ImageTemplates map[string]ImageTemplate
	// ImageIDOverrides maps a catalog identifier to the CDN identifier its
	// image is actually filed under. Point fixes for parts whose photo kept
	// the historically superseded number.
	ImageIDOverrides map[string]string
	// BadImagePatterns discard inherited default images that are known
	// placeholders.
	BadImagePatterns []string
}

// DefaultConfig returns default pipeline configuration.
func DefaultConfig() Config {
	return Config{
		HTTPTimeout:      20 * time.Second,
		MaxRedirects:     5,
		FetchRPS:         0,
		FetchBurst:       1,
		MaxDetailFetches: 16,
		MaxImageProbes:   24,
		EnrichWorkers:    5,
		MaxPreviousParts: 6,
		PreviousLabel:    "previous part numbers",
		PreviousWindow:   800,
		StopHeadings: []string{
			"replaces these",
			"compatible models",
			"works with",
			"customer reviews",
			"questions and answers",
		},
		ProxyPath: "/api/img",
		AllowedImageHosts: []string{
			"s.sears.com",
			"www.repairclinic.com",
			"rcappliancepartsimages.com",
		},
		ImageTemplates: map[string]ImageTemplate{
			"SearsPartsDirect": {
				Host:         "s.sears.com",
				Photo:        "https://s.sears.com/is/image/Sears/%s",
				Illustration: "https://s.sears.com/is/image/Sears/%s?$Illustration$",
				IDPattern:    `https?://s\.sears\.com/is/image/Sears/[A-Za-z0-9_%-]+`,
			},
		},
		ImageIDOverrides: map[string]string{
			// Photos filed under the superseded identifier.
			"W11259006": "W10820039",
			"W11130362": "8574957",
		},
		BadImagePatterns: []string{
			"placeholder",
			"dummyimage",
			"via.placeholder",
			"no-image",
			"noimage",
			"spacer",
			"blank",
			"transparent",
			"1x1",
		},
	}
}

// fileConfig is the YAML overlay for the data-shaped parts of Config. Tuning
// selectors, templates and allow-lists must not require a rebuild.
type fileConfig struct {
	MaxDetailFetches  *int                     `yaml:"max_detail_fetches"`
	MaxImageProbes    *int                     `yaml:"max_image_probes"`
	EnrichWorkers     *int                     `yaml:"enrich_workers"`
	MaxPreviousParts  *int                     `yaml:"max_previous_parts"`
	PreviousLabel     string                   `yaml:"previous_label"`
	PreviousWindow    *int                     `yaml:"previous_window"`
	StopHeadings      []string                 `yaml:"stop_headings"`
	AllowedImageHosts []string                 `yaml:"allowed_image_hosts"`
	ImageTemplates    map[string]ImageTemplate `yaml:"image_templates"`
	ImageIDOverrides  map[string]string        `yaml:"image_id_overrides"`
	BadImagePatterns  []string                 `yaml:"bad_image_patterns"`
}

// LoadConfig reads a YAML overlay and applies it on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if fc.MaxDetailFetches != nil {
		cfg.MaxDetailFetches = *fc.MaxDetailFetches
	}
	if fc.MaxImageProbes != nil {
		cfg.MaxImageProbes = *fc.MaxImageProbes
	}
	if fc.EnrichWorkers != nil {
		cfg.EnrichWorkers = *fc.EnrichWorkers
	}
	if fc.MaxPreviousParts != nil {
		cfg.MaxPreviousParts = *fc.MaxPreviousParts
	}
	if fc.PreviousLabel != "" {
		cfg.PreviousLabel = fc.PreviousLabel
	}
	if fc.PreviousWindow != nil {
		cfg.PreviousWindow = *fc.PreviousWindow
	}
	if fc.StopHeadings != nil {
		cfg.StopHeadings = fc.StopHeadings
	}
	if fc.AllowedImageHosts != nil {
		cfg.AllowedImageHosts = fc.AllowedImageHosts
	}
	if fc.ImageTemplates != nil {
		cfg.ImageTemplates = fc.ImageTemplates
	}
	if fc.ImageIDOverrides != nil {
		cfg.ImageIDOverrides = fc.ImageIDOverrides
	}
	if fc.BadImagePatterns != nil {
		cfg.BadImagePatterns = fc.BadImagePatterns
	}

	return cfg, nil
}
