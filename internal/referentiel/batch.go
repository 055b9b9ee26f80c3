package referentiel

import (
	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/model"
)

// BatchResult is the grouped working set produced by BuildReferentiel.
type BatchResult struct {
	// Groups maps each GTIN to the observations reported for it, in
	// input order.
	Groups map[int64][]*model.Observation
	// Unassociated counts observations carrying no usable GTIN. They are
	// logged and counted, never silently dropped.
	Unassociated int
}

// BuildReferentiel groups the full observation set of a working segment by
// exact GTIN match. The resulting groups are the join key deciding which
// raw observations belong to the same physical product before per-group
// resolution runs. The map is built completely before any resolution
// starts and must not be mutated afterwards.
func BuildReferentiel(observations []*model.Observation, logger zerolog.Logger) BatchResult {
	result := BatchResult{
		Groups: make(map[int64][]*model.Observation, len(observations)),
	}

	for _, obs := range observations {
		if obs == nil {
			continue
		}
		if obs.GTIN <= 0 {
			result.Unassociated++
			logger.Warn().
				Str("source", obs.Source).
				Str("url", obs.URL).
				Msg("observation has no gtin association")
			continue
		}
		result.Groups[obs.GTIN] = append(result.Groups[obs.GTIN], obs)
	}

	logger.Info().
		Int("groups", len(result.Groups)).
		Int("unassociated", result.Unassociated).
		Msg("referentiel working set grouped")

	return result
}
