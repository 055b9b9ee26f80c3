package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/db"
	"github.com/open4good/open4goods-sub001/internal/httpapi"
	"github.com/open4good/open4goods-sub001/internal/media"
	"github.com/open4good/open4goods-sub001/internal/model"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
	"github.com/open4good/open4goods-sub001/internal/referentiel"
	"github.com/open4good/open4goods-sub001/internal/stages"
)

// Service wires vertical configurations, the media services and the
// persistence layer into runnable pipelines. One Service instance serves
// all verticals; pipelines are built per call since each run owns its own
// run context.
type Service struct {
	cfg       *config.Config
	pool      *db.Pool
	verticals map[string]*config.Vertical
	logger    zerolog.Logger
	fetcher   *media.Fetcher
	embedder  media.EmbeddingProvider
}

func NewService(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	verticals, err := config.LoadVerticals(cfg.VerticalConfigDir)
	if err != nil {
		return nil, fmt.Errorf("load vertical configurations: %w", err)
	}
	if len(verticals) == 0 {
		return nil, fmt.Errorf("no vertical configurations found in %s", cfg.VerticalConfigDir)
	}

	return &Service{
		cfg:       cfg,
		pool:      pool,
		verticals: verticals,
		logger:    logger,
		fetcher:   media.NewFetcher(cfg.MediaCacheDir, cfg.MediaConnectTimeout, cfg.MediaDownloadTimeout),
		embedder:  media.NewHTTPEmbeddingProvider(cfg.EmbeddingEndpoint, cfg.EmbeddingRequestTimeout),
	}, nil
}

// Verticals lists the configured vertical names.
func (s *Service) Verticals() []string {
	names := make([]string, 0, len(s.verticals))
	for name := range s.verticals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// pipelineFor builds the stage pipeline one vertical's configuration
// names. Unknown stage identifiers fail here, before any item runs.
func (s *Service) pipelineFor(name string) (*pipeline.Pipeline, *config.Vertical, error) {
	vertical, ok := s.verticals[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", httpapi.ErrUnknownVertical, name)
	}

	registry, err := stages.DefaultRegistry(stages.Dependencies{
		Vertical: vertical,
		Fetcher:  s.fetcher,
		Embedder: s.embedder,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build stage registry for vertical %s: %w", name, err)
	}

	p, err := pipeline.New(registry, vertical.Stages, s.logger, pipeline.Options{
		BatchWorkers: s.cfg.BatchWorkers,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build pipeline for vertical %s: %w", name, err)
	}
	return p, vertical, nil
}

// MergeObservation merges one observation into the stored product for its
// GTIN, creating the product on first sight. The mutated product is
// persisted only when every stage completed; a skipped item is returned
// unpersisted with the skip reason.
func (s *Service) MergeObservation(ctx context.Context, vertical string, obs *model.Observation) (httpapi.MergeResult, error) {
	p, verticalCfg, err := s.pipelineFor(vertical)
	if err != nil {
		return httpapi.MergeResult{}, err
	}

	existing, err := db.GetProduct(ctx, s.pool, obs.GTIN)
	if err != nil && !db.IsNoRows(err) {
		return httpapi.MergeResult{}, fmt.Errorf("load product gtin=%d: %w", obs.GTIN, err)
	}

	product, result := p.MergeObservation(ctx, obs, existing)
	switch result.Kind {
	case pipeline.ResultFatal:
		return httpapi.MergeResult{}, result.Err
	case pipeline.ResultSkip:
		return httpapi.MergeResult{
			Product:    product,
			Skipped:    true,
			SkipReason: result.Reason,
		}, nil
	}

	if err := db.SaveProduct(ctx, s.pool, verticalCfg.Name, product); err != nil {
		return httpapi.MergeResult{}, err
	}
	return httpapi.MergeResult{
		Product:   product,
		Persisted: true,
	}, nil
}

// MergeObservationSet ingests a whole observation set at once: the set is
// grouped by exact GTIN, every group is merged observation by observation
// into its stored product, and each mutated product is persisted once.
// Observations without a GTIN association are counted and dropped. A fatal
// stage result aborts the ingestion; groups persisted before the fault
// stay persisted.
func (s *Service) MergeObservationSet(ctx context.Context, vertical string, observations []*model.Observation) (httpapi.BulkMergeStats, error) {
	p, verticalCfg, err := s.pipelineFor(vertical)
	if err != nil {
		return httpapi.BulkMergeStats{}, err
	}

	grouped := referentiel.BuildReferentiel(observations, s.logger)
	stats := httpapi.BulkMergeStats{
		Groups:       len(grouped.Groups),
		Unassociated: grouped.Unassociated,
	}

	gtins := make([]int64, 0, len(grouped.Groups))
	for gtin := range grouped.Groups {
		gtins = append(gtins, gtin)
	}
	sort.Slice(gtins, func(i, j int) bool { return gtins[i] < gtins[j] })

	for _, gtin := range gtins {
		product, err := db.GetProduct(ctx, s.pool, gtin)
		if err != nil && !db.IsNoRows(err) {
			return stats, fmt.Errorf("load product gtin=%d: %w", gtin, err)
		}

		merged := 0
		for _, obs := range grouped.Groups[gtin] {
			var result pipeline.Result
			product, result = p.MergeObservation(ctx, obs, product)
			switch result.Kind {
			case pipeline.ResultFatal:
				return stats, result.Err
			case pipeline.ResultSkip:
				stats.Skipped++
			default:
				merged++
			}
		}
		if merged == 0 {
			continue
		}
		stats.Merged += merged

		if err := db.SaveProduct(ctx, s.pool, verticalCfg.Name, product); err != nil {
			return stats, fmt.Errorf("persist product gtin=%d: %w", gtin, err)
		}
		stats.Persisted++
	}

	s.logger.Info().
		Str("vertical", verticalCfg.Name).
		Int("groups", stats.Groups).
		Int("unassociated", stats.Unassociated).
		Int("merged", stats.Merged).
		Int("skipped", stats.Skipped).
		Int("persisted", stats.Persisted).
		Msg("observation set ingested")
	return stats, nil
}

// RunBatch re-runs the full stage list over the stored collection matching
// the filter and persists the results in a single transaction. A fatal
// stage result or a persistence fault aborts the run without persisting
// anything.
func (s *Service) RunBatch(ctx context.Context, vertical string, filter db.ExportFilter) (pipeline.BatchStats, error) {
	p, verticalCfg, err := s.pipelineFor(vertical)
	if err != nil {
		return pipeline.BatchStats{}, err
	}

	filter.Vertical = verticalCfg.Name
	products, err := db.ExportProducts(ctx, s.pool, filter)
	if err != nil {
		return pipeline.BatchStats{}, err
	}
	if len(products) == 0 {
		return pipeline.BatchStats{}, nil
	}

	stats, err := p.RunBatch(ctx, products)
	if err != nil {
		return stats, err
	}

	tx, err := s.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return stats, fmt.Errorf("begin batch persistence: %w", err)
	}
	for _, product := range products {
		if err := db.SaveProduct(ctx, tx, verticalCfg.Name, product); err != nil {
			_ = tx.Rollback(ctx)
			return stats, fmt.Errorf("persist reprocessed product gtin=%d: %w", product.GTIN, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit batch persistence: %w", err)
	}

	s.logger.Info().
		Str("vertical", verticalCfg.Name).
		Int("processed", stats.Processed).
		Int("succeeded", stats.Succeeded).
		Int("skipped", stats.Skipped).
		Int("saved", len(products)).
		Msg("batch run persisted")
	return stats, nil
}
