// Package slug builds URL-safe identifiers from resource titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	disallowed  = regexp.MustCompile(`[^\p{L}\p{N}-]+`)
	multiHyphen = regexp.MustCompile(`-{2,}`)
)

// From lowercases s, strips combining accents and joins words with hyphens.
// CJK letters are kept as-is so Chinese titles still yield readable slugs.
func From(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}

	result = strings.ToLower(result)
	result = disallowed.ReplaceAllString(result, "-")
	result = multiHyphen.ReplaceAllString(result, "-")
	return strings.Trim(result, "-")
}

// WithSuffix appends a short disambiguator, used when a slug is already taken.
func WithSuffix(base, suffix string) string {
	suffix = From(suffix)
	if base == "" {
		return suffix
	}
	if suffix == "" {
		return base
	}
	return base + "-" + suffix
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
