package referentiel

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize uppercases, trims and strips accents from a raw identity
// string. Empty or whitespace-only input yields "".
func Normalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	stripped, _, err := transform.String(accentStripper, trimmed)
	if err != nil {
		stripped = trimmed
	}
	return strings.ToUpper(strings.Join(strings.Fields(stripped), " "))
}

// StripBrandPrefix removes a leading brand occurrence from a model string.
// Sources frequently leak the brand into the model field.
func StripBrandPrefix(value, brand string) string {
	if brand == "" {
		return value
	}
	if strings.HasPrefix(value, brand) {
		return strings.TrimSpace(strings.TrimPrefix(value, brand))
	}
	return value
}

// RemoveNoiseTokens deletes configured literal substrings from the value
// and collapses the remaining whitespace.
func RemoveNoiseTokens(value string, tokens []string) string {
	cleaned := value
	for _, token := range tokens {
		normalized := Normalize(token)
		if normalized == "" {
			continue
		}
		cleaned = strings.ReplaceAll(cleaned, normalized, " ")
	}
	return strings.TrimSpace(strings.Join(strings.Fields(cleaned), " "))
}
