package stages

import (
	"context"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/model"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
	"github.com/open4good/open4goods-sub001/internal/scoring"
)

// ScoringStage derives the completeness, media and aggregate scores from
// the resolved record. It must run after identity resolution and media
// treatment since it reads their output.
type ScoringStage struct {
	vertical *config.Vertical
}

func NewScoringStage(vertical *config.Vertical) *ScoringStage {
	return &ScoringStage{vertical: vertical}
}

func (s *ScoringStage) Name() string { return "scoring" }

func (s *ScoringStage) Apply(_ context.Context, _ *pipeline.RunContext, product *model.Product, _ *model.Observation) pipeline.Result {
	if product.Scores == nil {
		product.Scores = map[string]float64{}
	}
	product.Scores[scoring.ScoreCompleteness] = scoring.Completeness(product, s.vertical.RequiredAttributes)
	product.Scores[scoring.ScoreMedia] = scoring.Media(product)
	product.Scores[scoring.ScoreAggregate] = scoring.Aggregate(product)
	return pipeline.OK()
}
