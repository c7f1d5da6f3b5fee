package models

// ImageConfidence tracks how a listing's image was obtained. Confidence only
// moves forward through the resolution pipeline; see UpgradeImage.
type ImageConfidence string

const (
	// ImageAbsent means no usable image has been found yet.
	ImageAbsent ImageConfidence = "absent"
	// ImageSynthetic means the image URL was constructed from the supplier's
	// CDN template and has not been confirmed to exist.
	ImageSynthetic ImageConfidence = "synthetic"
	// ImagePageDerived means the image URL was extracted from the listing's
	// own detail page.
	ImagePageDerived ImageConfidence = "page-derived"
	// ImageVerified means the image URL either answered an existence probe or
	// was deterministically substituted with the illustration variant after a
	// failed probe.
	ImageVerified ImageConfidence = "verified"
)

var confidenceRank = map[ImageConfidence]int{
	ImageAbsent:      0,
	ImageSynthetic:   1,
	ImagePageDerived: 2,
	ImageVerified:    3,
}

// Rank returns the ordering position of the confidence state.
func (c ImageConfidence) Rank() int {
	return confidenceRank[c]
}

// RawListing is a supplier-scoped candidate record as produced by a source
// extractor. Extractors create these once and never mutate them afterwards.
type RawListing struct {
	Supplier     string
	Title        string
	Link         string
	Image        string
	Price        string
	Currency     string
	PartNumber   string
	Availability string
	OEM          bool
}

// Listing is the normalized, deduplicated record returned to the caller.
// It is owned by the aggregator from creation until serialization; the image
// resolution and enrichment passes mutate it in place.
type Listing struct {
	Supplier            string   `json:"supplier"`
	Name                string   `json:"name"`
	URL                 string   `json:"url"`
	Image               string   `json:"image"`
	Price               string   `json:"price"`
	Currency            string   `json:"currency"`
	PartNumber          string   `json:"part_number"`
	PreviousPartNumbers []string `json:"previous_part_numbers"`
	Availability        string   `json:"availability"`
	OEMFlag             bool     `json:"oem_flag"`

	// Pipeline state, not part of the wire contract.
	ImageConfidence ImageConfidence `json:"-"`
}

// Normalize converts a raw listing into the unified shape. Missing fields
// default to empty strings / false / empty slices so that null never leaks
// into the serialized output.
func Normalize(r RawListing) *Listing {
	conf := ImageAbsent
	if r.Image != "" {
		conf = ImagePageDerived
	}
	return &Listing{
		Supplier:            r.Supplier,
		Name:                r.Title,
		URL:                 r.Link,
		Image:               r.Image,
		Price:               r.Price,
		Currency:            r.Currency,
		PartNumber:          r.PartNumber,
		PreviousPartNumbers: []string{},
		Availability:        r.Availability,
		OEMFlag:             r.OEM,
		ImageConfidence:     conf,
	}
}

// UpgradeImage replaces the listing's image only when the new confidence is
// at least as high as the current one. It returns true when the image was
// replaced.
func (l *Listing) UpgradeImage(url string, conf ImageConfidence) bool {
	if url == "" || conf.Rank() < l.ImageConfidence.Rank() {
		return false
	}
	l.Image = url
	l.ImageConfidence = conf
	return true
}

// SourceOutcome is the per-source diagnostic attached to response metadata.
// It never affects the correctness of the item list.
type SourceOutcome struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

// SearchMeta describes a single aggregation run.
type SearchMeta struct {
	TookMS    int64           `json:"took_ms"`
	RequestID string          `json:"request_id"`
	Sources   []SourceOutcome `json:"sources"`
}

// SearchResult is the complete response of an aggregation run.
type SearchResult struct {
	Items []*Listing `json:"items"`
	Meta  SearchMeta `json:"meta"`
}
