package sources

import "testing"

func TestAbsolutize(t *testing.T) {
	base := "https://www.searspartsdirect.com"

	tests := []struct {
		name     string
		src      string
		expected string
	}{
		{
			name:     "absolute URL passes through",
			src:      "https://s.sears.com/is/image/Sears/8544771",
			expected: "https://s.sears.com/is/image/Sears/8544771",
		},
		{
			name:     "protocol-relative gains https",
			src:      "//s.sears.com/is/image/Sears/8544771",
			expected: "https://s.sears.com/is/image/Sears/8544771",
		},
		{
			name:     "root-relative resolves against the base",
			src:      "/images/pump.jpg",
			expected: "https://www.searspartsdirect.com/images/pump.jpg",
		},
		{
			name:     "srcset takes the first candidate",
			src:      "/images/pump-400.jpg 400w, /images/pump-800.jpg 800w",
			expected: "https://www.searspartsdirect.com/images/pump-400.jpg",
		},
		{
			name:     "next.js optimizer URL is unwrapped",
			src:      "/_next/image?url=https%3A%2F%2Frcappliancepartsimages.com%2Fp%2F123.jpg&w=640&q=75",
			expected: "https://rcappliancepartsimages.com/p/123.jpg",
		},
		{
			name:     "whitespace-only is empty",
			src:      "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Absolutize(tt.src, base); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPartNumberFrom(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pump W11259006", "W11259006"},
		{"W11259006", "W11259006"},
		{"wp-8544771", "WP-8544771"},
		{"abc", ""},
	}

	for _, tt := range tests {
		if got := PartNumberFrom(tt.input); got != tt.expected {
			t.Errorf("PartNumberFrom(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}

func TestDetectOEM(t *testing.T) {
	tests := []struct {
		title    string
		expected bool
	}{
		{"Whirlpool OEM Drain Pump", true},
		{"Genuine Factory Part", true},
		{"original equipment knob", true},
		{"Aftermarket replacement pump", false},
		{"Originally priced higher", false},
	}

	for _, tt := range tests {
		if got := DetectOEM(tt.title); got != tt.expected {
			t.Errorf("DetectOEM(%q): expected %v, got %v", tt.title, tt.expected, got)
		}
	}
}

func TestCurrencyOf(t *testing.T) {
	tests := []struct {
		price    string
		expected string
	}{
		{"$45.99", "USD"},
		{"€12,00", "EUR"},
		{"£9.99", "GBP"},
		{"45.99", ""},
	}

	for _, tt := range tests {
		if got := currencyOf(tt.price); got != tt.expected {
			t.Errorf("currencyOf(%q): expected %q, got %q", tt.price, tt.expected, got)
		}
	}
}
