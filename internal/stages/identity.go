package stages

import (
	"context"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/model"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
	"github.com/open4good/open4goods-sub001/internal/referentiel"
)

// ValidateStage rejects items the rest of the pipeline cannot key. It runs
// first so later stages can rely on a positive GTIN.
type ValidateStage struct{}

func NewValidateStage() *ValidateStage { return &ValidateStage{} }

func (s *ValidateStage) Name() string { return "validate" }

func (s *ValidateStage) Apply(_ context.Context, _ *pipeline.RunContext, product *model.Product, _ *model.Observation) pipeline.Result {
	if product.GTIN <= 0 {
		return pipeline.Skip("product has no gtin")
	}
	return pipeline.OK()
}

// IdentityStage elects the canonical BRAND and MODEL values from the
// sourced attribute set. Brand resolution runs first so model sanitization
// can strip brand leakage.
type IdentityStage struct {
	vertical *config.Vertical
}

func NewIdentityStage(vertical *config.Vertical) *IdentityStage {
	return &IdentityStage{vertical: vertical}
}

func (s *IdentityStage) Name() string { return "identity" }

func (s *IdentityStage) Apply(_ context.Context, rc *pipeline.RunContext, product *model.Product, _ *model.Observation) pipeline.Result {
	resolver := referentiel.NewResolver(s.vertical, rc.Logger)
	resolver.ResolveBrand(product)
	resolver.ResolveModel(product)
	return pipeline.OK()
}
