package textutil

import "testing"

func TestCollapseSpace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "interior runs collapse",
			input:    "Previous  part\t\tnumbers",
			expected: "Previous part numbers",
		},
		{
			name:     "leading and trailing whitespace trimmed",
			input:    "  Part #1234567 \n",
			expected: "Part #1234567",
		},
		{
			name:     "newlines treated as spaces",
			input:    "Previous\npart\nnumbers",
			expected: "Previous part numbers",
		},
		{
			name:     "non-breaking spaces collapse too",
			input:    "Previous\u00A0part\u00A0\u00A0numbers",
			expected: "Previous part numbers",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseSpace(tt.input); got != tt.expected {
				t.Errorf("CollapseSpace(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFoldLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "case folded",
			input:    "PREVIOUS Part Numbers",
			expected: "previous part numbers",
		},
		{
			name:     "diacritics stripped",
			input:    "Pièces précédentes",
			expected: "pieces precedentes",
		},
		{
			name:     "whitespace collapsed",
			input:    " Previous   part numbers ",
			expected: "previous part numbers",
		},
		{
			name:     "non-breaking spaces fold to plain spaces",
			input:    "Previous\u00A0Part\u00A0Numbers",
			expected: "previous part numbers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FoldLabel(tt.input); got != tt.expected {
				t.Errorf("FoldLabel(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
