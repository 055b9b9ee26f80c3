package scoring

import (
	"github.com/open4good/open4goods-sub001/internal/media"
	"github.com/open4good/open4goods-sub001/internal/model"
)

// Score names stored on the product.
const (
	ScoreCompleteness = "COMPLETENESS"
	ScoreMedia        = "MEDIA"
	ScoreAggregate    = "AGGREGATE"
)

// mediaScoreCap is the active image count at which the media score
// saturates. Products rarely benefit from more gallery entries.
const mediaScoreCap = 5

// Completeness scores how much of the expected attribute surface is
// filled: the fraction of required attributes that resolved to a value,
// over [0, 1]. An empty requirement list scores on referentiel presence
// alone.
func Completeness(p *model.Product, required []string) float64 {
	if len(required) == 0 {
		score := 0.0
		if p.ReferentielValue(model.ReferentielBrand) != "" {
			score += 0.5
		}
		if p.ReferentielValue(model.ReferentielModel) != "" {
			score += 0.5
		}
		return score
	}

	filled := 0
	for _, name := range required {
		if attr, ok := p.Attributes[name]; ok && attr.Value != "" {
			filled++
		}
	}
	return float64(filled) / float64(len(required))
}

// Media scores the presentation quality of the resource set: the fraction
// of a small target count of active images, with a bonus for an elected
// non-placeholder cover.
func Media(p *model.Product) float64 {
	images := 0
	for _, r := range p.ActiveResources() {
		if r.Kind == model.KindImage {
			images++
		}
	}
	if images > mediaScoreCap {
		images = mediaScoreCap
	}

	score := float64(images) / float64(mediaScoreCap)
	if p.CoverPath != "" && p.CoverPath != media.PlaceholderCover {
		score = score*0.8 + 0.2
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Aggregate combines the individual scores already present on the product
// into one headline value: the mean of all non-aggregate scores.
func Aggregate(p *model.Product) float64 {
	sum := 0.0
	count := 0
	for name, value := range p.Scores {
		if name == ScoreAggregate {
			continue
		}
		sum += value
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
