package stages

import (
	"context"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/media"
	"github.com/open4good/open4goods-sub001/internal/model"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
)

// MediaStage runs the full media treatment over the product's accumulated
// resource set. Per-resource faults are recorded on the resources
// themselves; only run cancellation aborts the item.
type MediaStage struct {
	vertical *config.Vertical
	fetcher  *media.Fetcher
	embedder media.EmbeddingProvider
}

func NewMediaStage(vertical *config.Vertical, fetcher *media.Fetcher, embedder media.EmbeddingProvider) *MediaStage {
	return &MediaStage{
		vertical: vertical,
		fetcher:  fetcher,
		embedder: embedder,
	}
}

func (s *MediaStage) Name() string { return "media" }

func (s *MediaStage) Apply(ctx context.Context, rc *pipeline.RunContext, product *model.Product, _ *model.Observation) pipeline.Result {
	dedup := media.NewDeduplicator(s.vertical, s.fetcher, s.embedder, rc.Logger)
	if err := dedup.Process(ctx, product); err != nil {
		return pipeline.Fatal(err)
	}
	return pipeline.OK()
}
