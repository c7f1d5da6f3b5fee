package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestListingJSONShape(t *testing.T) {
	l := Normalize(RawListing{
		Supplier: "SearsPartsDirect",
		Title:    "Washer Drain Pump W11259006 OEM",
		Link:     "https://www.searspartsdirect.com/part/W11259006",
	})

	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Failed to marshal listing: %v", err)
	}
	out := string(data)

	// Empty collections must serialize as [], never null.
	if strings.Contains(out, `"previous_part_numbers":null`) {
		t.Error("Expected previous_part_numbers to serialize as [], got null")
	}
	if !strings.Contains(out, `"previous_part_numbers":[]`) {
		t.Errorf("Expected empty previous_part_numbers array in output, got %s", out)
	}

	// Pipeline state stays internal.
	if strings.Contains(out, "confidence") {
		t.Errorf("Expected image confidence to be excluded from the wire shape, got %s", out)
	}

	// Missing fields default to empty values, not null.
	for _, field := range []string{`"image":""`, `"price":""`, `"currency":""`, `"availability":""`, `"oem_flag":false`} {
		if !strings.Contains(out, field) {
			t.Errorf("Expected %s in output, got %s", field, out)
		}
	}
}

func TestNormalizeImageConfidence(t *testing.T) {
	withImage := Normalize(RawListing{Link: "https://example.com/p/1", Image: "https://example.com/i.jpg"})
	if withImage.ImageConfidence != ImagePageDerived {
		t.Errorf("Expected inherited image to start page-derived, got %s", withImage.ImageConfidence)
	}

	withoutImage := Normalize(RawListing{Link: "https://example.com/p/2"})
	if withoutImage.ImageConfidence != ImageAbsent {
		t.Errorf("Expected missing image to start absent, got %s", withoutImage.ImageConfidence)
	}
}

func TestUpgradeImageMonotonic(t *testing.T) {
	l := Normalize(RawListing{Link: "https://example.com/p/1"})

	if !l.UpgradeImage("https://cdn.example.com/a.jpg", ImageSynthetic) {
		t.Fatal("Expected upgrade from absent to synthetic to succeed")
	}
	if !l.UpgradeImage("https://cdn.example.com/b.jpg", ImagePageDerived) {
		t.Fatal("Expected upgrade from synthetic to page-derived to succeed")
	}

	// Lower-confidence writes must be rejected.
	if l.UpgradeImage("https://cdn.example.com/c.jpg", ImageSynthetic) {
		t.Error("Expected downgrade to synthetic to be rejected")
	}
	if l.Image != "https://cdn.example.com/b.jpg" {
		t.Errorf("Expected page-derived image to survive, got %s", l.Image)
	}

	// Equal-rank replacement is allowed (same-tier refinement).
	if !l.UpgradeImage("https://cdn.example.com/d.jpg", ImagePageDerived) {
		t.Error("Expected same-confidence replacement to succeed")
	}

	if l.UpgradeImage("", ImageVerified) {
		t.Error("Expected empty URL upgrade to be rejected")
	}
}
