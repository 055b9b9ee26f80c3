package referentiel

import (
	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/model"
)

// Resolver builds the canonical brand/model key for a product from many
// noisy raw strings. Malformed or empty input is treated as "no attribute
// contributed", never as an error.
type Resolver struct {
	vertical *config.Vertical
	logger   zerolog.Logger
}

func NewResolver(vertical *config.Vertical, logger zerolog.Logger) *Resolver {
	return &Resolver{
		vertical: vertical,
		logger:   logger,
	}
}

type candidate struct {
	value   string
	sources []string
}

// SanitizeModel turns one raw model string into a canonical UID candidate.
// Returns false when nothing usable could be extracted: an empty string,
// zero UID tokens, an ambiguous multi-UID extraction, or a non-idempotent
// extraction. The extracted token is canonicalized by dropping its
// separator characters, so "WR-100" and "WR100" yield the same candidate.
func (r *Resolver) SanitizeModel(raw, brand string) (string, bool) {
	uid, _, ok := r.modelCandidate(raw, brand)
	return uid, ok
}

// modelCandidate is SanitizeModel plus the cleaned input form, returned as
// alternate when the extraction dropped more than separator characters. A
// UID that differs from the cleaned input beyond separators is accepted
// with a mismatch warning.
func (r *Resolver) modelCandidate(raw, brand string) (uid, alternate string, ok bool) {
	normalized := Normalize(raw)
	if normalized == "" {
		return "", "", false
	}

	cleaned := StripBrandPrefix(normalized, brand)
	cleaned = RemoveNoiseTokens(cleaned, r.vertical.NoiseTokens)
	if cleaned == "" {
		return "", "", false
	}

	uids := ExtractUIDs(cleaned, r.vertical.UIDMinLength, r.vertical.UIDMaxLength)
	switch len(uids) {
	case 0:
		r.logger.Debug().Str("raw", raw).Msg("no uid token extracted")
		return "", "", false
	case 1:
	default:
		r.logger.Warn().Str("raw", raw).Strs("uids", uids).Msg("ambiguous uid extraction rejected")
		return "", "", false
	}

	uid = CanonicalUID(uids[0])
	again := ExtractUIDs(uid, r.vertical.UIDMinLength, r.vertical.UIDMaxLength)
	if len(again) != 1 || again[0] != uid {
		r.logger.Warn().Str("raw", raw).Str("uid", uid).Msg("non-idempotent uid extraction rejected")
		return "", "", false
	}
	if CanonicalUID(cleaned) != uid {
		r.logger.Warn().Str("raw", raw).Str("cleaned", cleaned).Str("uid", uid).Msg("uid extraction differs from sanitized input")
		alternate = cleaned
	}
	return uid, alternate, true
}

// SanitizeBrand applies the brand sanitization path: normalization and
// noise-token removal, without UID extraction.
func (r *Resolver) SanitizeBrand(raw string) (string, bool) {
	normalized := Normalize(raw)
	if normalized == "" {
		return "", false
	}
	cleaned := RemoveNoiseTokens(normalized, r.vertical.NoiseTokens)
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// ResolveBrand elects the canonical BRAND value across all sourced values.
func (r *Resolver) ResolveBrand(p *model.Product) {
	attr, ok := p.Attributes[model.ReferentielBrand]
	if !ok || len(attr.Sourced) == 0 {
		return
	}

	candidates := r.collectCandidates(p, attr, model.ReferentielBrand, func(raw string) (string, string, bool) {
		value, ok := r.SanitizeBrand(raw)
		return value, "", ok
	})
	r.elect(p, model.ReferentielBrand, candidates)
}

// ResolveModel elects the canonical MODEL value across all sourced values.
// A brand resolved beforehand improves the sanitization (brand-prefix
// leakage cleanup), so ResolveBrand should run first.
func (r *Resolver) ResolveModel(p *model.Product) {
	attr, ok := p.Attributes[model.ReferentielModel]
	if !ok || len(attr.Sourced) == 0 {
		return
	}

	brand := p.ReferentielValue(model.ReferentielBrand)
	candidates := r.collectCandidates(p, attr, model.ReferentielModel, func(raw string) (string, string, bool) {
		return r.modelCandidate(raw, brand)
	})
	r.elect(p, model.ReferentielModel, candidates)
}

// collectCandidates sanitizes every sourced value in insertion order and
// merges identical results. A cleaned form that genuinely differs from the
// elected candidate is retained as an alternate with provenance rather
// than discarded.
func (r *Resolver) collectCandidates(p *model.Product, attr *model.Attribute, kind string, sanitize func(string) (string, string, bool)) []candidate {
	var candidates []candidate
	for _, sv := range attr.Sourced {
		sanitized, alternate, ok := sanitize(sv.Value)
		if !ok {
			continue
		}
		if alternate != "" && alternate != sanitized {
			p.AddAlternateID(alternate, kind, sv.Source)
		}

		merged := false
		for i := range candidates {
			if candidates[i].value == sanitized {
				candidates[i].sources = appendUnique(candidates[i].sources, sv.Source)
				merged = true
				break
			}
		}
		if !merged {
			candidates = append(candidates, candidate{value: sanitized, sources: []string{sv.Source}})
		}
	}
	return candidates
}

// elect picks the shortest candidate as canonical. Re-election is
// idempotent: an already-set canonical value survives unless a strictly
// shorter valid candidate appears or the vertical forces re-election.
// Losing candidates are retained as alternates with their source tags.
func (r *Resolver) elect(p *model.Product, kind string, candidates []candidate) {
	if len(candidates) == 0 {
		return
	}

	shortest := candidates[0]
	for _, c := range candidates[1:] {
		if len(c.value) < len(shortest.value) {
			shortest = c
		}
	}

	canonical := shortest.value
	current := p.ReferentielValue(kind)
	if current != "" && !r.vertical.ForceReferentiel && len(canonical) >= len(current) {
		canonical = current
	}

	if canonical != current {
		r.logger.Info().
			Int64("gtin", p.GTIN).
			Str("kind", kind).
			Str("previous", current).
			Str("canonical", canonical).
			Msg("referentiel value elected")
	}
	p.SetReferentiel(kind, canonical)

	for _, c := range candidates {
		if c.value == canonical {
			continue
		}
		p.AddAlternateID(c.value, kind, c.sources...)
	}
}

func appendUnique(values []string, value string) []string {
	for _, have := range values {
		if have == value {
			return values
		}
	}
	return append(values, value)
}
