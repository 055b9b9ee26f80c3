package referentiel

import (
	"regexp"
	"strings"
)

// uidTokenRe matches candidate brand-UID tokens: alphanumeric runs with
// optional internal dash or slash separators.
var uidTokenRe = regexp.MustCompile(`[A-Z0-9]+(?:[-/][A-Z0-9]+)*`)

// ExtractUIDs returns the candidate UID tokens found in a sanitized model
// string. A token qualifies when it carries at least one digit and its
// length falls within the configured bounds.
func ExtractUIDs(value string, minLength, maxLength int) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	matches := uidTokenRe.FindAllString(value, -1)
	uids := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) < minLength || len(match) > maxLength {
			continue
		}
		if !containsDigit(match) {
			continue
		}
		uids = append(uids, match)
	}
	return uids
}

// CanonicalUID strips the separator characters sources may or may not
// include inside a model reference, so "WR-100" and "WR100" resolve to
// the same canonical key.
func CanonicalUID(token string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '/' {
			return -1
		}
		return r
	}, token)
}

func containsDigit(value string) bool {
	for _, r := range value {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
