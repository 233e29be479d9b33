// Package normalize folds free text into the comparable form used by every text match in the
// service: lowercase, diacritics removed, split on anything that is not a letter or digit.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips combining marks.
// "Gabriel García Márquez" -> "gabriel garcia marquez".
func Fold(s string) string {
	// Chain keeps per-call state, so build a fresh one each time.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Tokens splits s into folded words. Duplicates are dropped; order of first
// appearance is kept. "Harry Potter's Harry" -> [harry potter s].
func Tokens(s string) []string {
	fields := strings.FieldsFunc(Fold(s), isSeparator)
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	tokens := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	return tokens
}

// Key folds s and collapses internal whitespace so it can be used as an exact-match index value.
// "  George   ORWELL " -> "george orwell".
func Key(s string) string {
	return strings.Join(strings.Fields(Fold(s)), " ")
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsNumber(r)
}
