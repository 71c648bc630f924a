// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug converts display names into path segments for the
// location tree. Segments are lowercase ASCII letters, digits, and
// underscores, with accented letters folded to their base form.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// nonAlphanumeric matches any run of characters that can't appear in a segment.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

	// foldAccents decomposes characters and strips combining marks,
	// turning "é" into "e" and "ü" into "u".
	foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// Generate creates a path segment from the given display name.
// Example: "Crème Brûlée Shelf #2" → "creme_brulee_shelf_2"
//
// Names made entirely of punctuation produce an empty segment; callers
// treat that as invalid input.
func Generate(s string) string {
	folded, _, err := transform.String(foldAccents, s)
	if err == nil {
		s = folded
	}
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "_")
	return strings.Trim(result, "_")
}
