// Package textnorm canonicalizes free text so headlines, article bodies, candidate names and
// indicator phrases can be compared with plain substring and pattern matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparable form of s: compatibility-decomposed with diacritics and any other
// non-ASCII runes removed, lowercased, whitespace runs collapsed to a single space and trimmed.
// Normalize is idempotent, Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	decomposed := norm.NFKD.String(s)
	ascii := strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1 // combining marks and anything without an ascii decomposition
		}
		return r
	}, decomposed)
	return strings.Join(strings.Fields(strings.ToLower(ascii)), " ")
}

// NormalizeAll normalizes every element of ss, dropping the ones that normalize to empty string
// and the duplicates.
func NormalizeAll(ss []string) []string {
	res := make([]string, 0, len(ss))
	seen := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		n := Normalize(s)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		res = append(res, n)
	}
	return res
}
