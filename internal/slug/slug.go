// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns free text into URL slugs (tags, chat rooms) and into
// compact identifiers (composed catalog keys).
package slug

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// multipleUnderscores collapses runs left behind by dropped characters.
	multipleUnderscores = regexp.MustCompile(`_{2,}`)
)

// Generate creates a URL-friendly slug from the given string.
// Example: "Dog Friendly Trails!" → "dog-friendly-trails"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = strings.Join(strings.Fields(result), "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Identifier keeps letters, digits, hyphens and underscores, turns
// whitespace into underscores, and caps the result at max runes (max <= 0
// means no cap). Case is preserved.
// Example: Identifier("Grand Portage Trail #2", 50) → "Grand_Portage_Trail_2"
func Identifier(s string, max int) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune('_')
		}
	}
	result := multipleUnderscores.ReplaceAllString(b.String(), "_")
	result = strings.Trim(result, "_")

	if max > 0 {
		if runes := []rune(result); len(runes) > max {
			result = strings.TrimRight(string(runes[:max]), "_")
		}
	}
	return result
}
