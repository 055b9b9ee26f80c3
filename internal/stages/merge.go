package stages

import (
	"context"
	"fmt"
	"strings"

	"github.com/open4good/open4goods-sub001/internal/model"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
)

// priceAttribute carries the latest reported price per source as a regular
// sourced attribute, so price conflicts resolve like any other attribute.
const priceAttribute = "PRICE"

// MergeStage folds one incoming observation into the product: sourced
// attribute values, the optional price and the candidate media URLs. Batch
// invocations carry no observation and pass through unchanged.
type MergeStage struct{}

func NewMergeStage() *MergeStage { return &MergeStage{} }

func (s *MergeStage) Name() string { return "merge" }

func (s *MergeStage) Apply(_ context.Context, rc *pipeline.RunContext, product *model.Product, obs *model.Observation) pipeline.Result {
	if obs == nil {
		return pipeline.OK()
	}
	if strings.TrimSpace(obs.Source) == "" {
		return pipeline.Skip("observation has no source name")
	}

	for name, value := range obs.Attributes {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		product.Attribute(name).AddSource(obs.Source, value)
	}

	if obs.Price != nil && obs.Price.Amount > 0 {
		product.Attribute(priceAttribute).AddSource(obs.Source, formatPrice(obs.Price))
	}

	for _, media := range obs.MediaURLs {
		url := strings.TrimSpace(media.URL)
		if url == "" {
			continue
		}
		resource := product.ResourceByURL(url)
		if resource == nil {
			resource = &model.Resource{URL: url}
			product.AddResource(resource)
		}
		if media.Primary && !resource.HasTag(model.TagPrimary) {
			resource.HardTags = append(resource.HardTags, model.TagPrimary)
		}
	}

	rc.Logger.Debug().
		Int64("gtin", product.GTIN).
		Str("source", obs.Source).
		Int("attributes", len(obs.Attributes)).
		Int("media_urls", len(obs.MediaURLs)).
		Msg("observation merged")
	return pipeline.OK()
}

func formatPrice(p *model.Price) string {
	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		return fmt.Sprintf("%.2f", p.Amount)
	}
	return fmt.Sprintf("%.2f %s", p.Amount, currency)
}
