package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Legal-form tokens carry no identity; "Acme GmbH" and "ACME" name the same vendor.
var legalForms = map[string]bool{
	"gmbh": true, "mbh": true, "ag": true, "kg": true, "ug": true, "ohg": true,
	"gbr": true, "ev": true, "se": true, "co": true, "ltd": true, "inc": true,
	"llc": true, "plc": true, "sarl": true, "bv": true,
}

var sharpS = strings.NewReplacer("ß", "ss", "ẞ", "ss")

// foldDiacritics strips combining marks ("Müller" -> "Muller").
func foldDiacritics(s string) string {
	// transform chains keep state, so build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func normalizeName(s string) string {
	s = sharpS.Replace(strings.ToLower(s))
	s = foldDiacritics(s)

	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !legalForms[tok] {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return strings.Join(tokens, " ")
	}
	return strings.Join(kept, " ")
}

func normalizeKey(s string) string {
	return strings.TrimSpace(foldDiacritics(sharpS.Replace(strings.ToLower(s))))
}

// containsToken reports whether needle occurs in haystack, case-insensitively,
// bounded on both sides by a non-alphanumeric rune or the string edge.
func containsToken(haystack, needle string) bool {
	h := strings.ToLower(haystack)
	n := strings.ToLower(strings.TrimSpace(needle))
	if n == "" || h == "" {
		return false
	}

	for from := 0; from < len(h); {
		i := strings.Index(h[from:], n)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(n)

		before, _ := utf8.DecodeLastRuneInString(h[:start])
		after, _ := utf8.DecodeRuneInString(h[end:])
		if isBoundary(before) && isBoundary(after) {
			return true
		}

		_, size := utf8.DecodeRuneInString(h[start:])
		from = start + size
	}
	return false
}

func isBoundary(r rune) bool {
	return r == utf8.RuneError || !(unicode.IsLetter(r) || unicode.IsDigit(r))
}
