// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings.
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
	// whitespace matches runs of ASCII and Unicode spaces (NBSP, em space,
	// ideographic space, ...).
	whitespace = regexp.MustCompile(`[\s\p{Z}]+`)
	// nonWord matches anything that isn't a lowercase letter, digit, underscore or hyphen.
	nonWord = regexp.MustCompile(`[^a-z0-9_-]+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
	// urlSafe matches a complete, already URL-safe slug (any letter case).
	urlSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// Derive creates a URL-friendly slug from the given string.
// Accents are folded ("Café" → "cafe") and "&" becomes "and".
// Example: "Web Development & Design!" → "web-development-and-design"
//
// Derive is idempotent: Derive(Derive(s)) == Derive(s).
func Derive(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = foldAccents(result)
	result = strings.ReplaceAll(result, "&", " and ")
	result = whitespace.ReplaceAllString(result, "-")
	result = nonWord.ReplaceAllString(result, "")
	result = multipleHyphens.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// Valid reports whether s is a non-empty slug made only of letters, digits,
// underscores and hyphens.
func Valid(s string) bool {
	return urlSafe.MatchString(s)
}

// foldAccents decomposes s and drops combining marks. Transformers keep
// internal state, so a fresh chain is built per call.
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
