package slug

import "testing"

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "Waterfall Hikes", "waterfall-hikes"},
		{"punctuation", "Dog Friendly Trails!", "dog-friendly-trails"},
		{"repeated spaces", "  alpine    lakes  ", "alpine-lakes"},
		{"existing hyphens", "multi--day-loop", "multi-day-loop"},
		{"digits kept", "Top 10 Views", "top-10-views"},
		{"only symbols", "!!!", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Generate(tt.input); got != tt.want {
				t.Errorf("Generate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"spaces become underscores", "Grand Portage Trail", 50, "Grand_Portage_Trail"},
		{"symbols dropped", "Grand Portage Trail #2", 50, "Grand_Portage_Trail_2"},
		{"case preserved", "Isle Royale", 0, "Isle_Royale"},
		{"capped", "abcdefghij", 4, "abcd"},
		{"cap does not leave trailing underscore", "abc def", 4, "abc"},
		{"multibyte capped by rune", "Sjöstrand Lake", 5, "Sjöst"},
		{"empty", "   ", 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Identifier(tt.input, tt.max); got != tt.want {
				t.Errorf("Identifier(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
			}
		})
	}
}
