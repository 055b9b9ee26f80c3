package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/globaltime"
	"github.com/open4good/open4goods-sub001/internal/model"
)

const defaultBatchWorkers = 4

// Options tunes pipeline execution.
type Options struct {
	// BatchWorkers bounds the number of products processed in parallel
	// during a batch run. Defaults to 4.
	BatchWorkers int
}

// BatchStats reports batch execution counters.
type BatchStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Pipeline is an ordered, named list of stages runnable in two modes:
// real-time single-observation merge and batch re-processing over a stored
// collection. Stage order is part of the contract; stages are never
// reordered or parallelized within one item.
type Pipeline struct {
	stages  []Stage
	logger  zerolog.Logger
	workers int
}

// New builds a pipeline from stage identifiers. An empty or unknown stage
// list fails here, before any item is processed.
func New(registry *Registry, stageNames []string, logger zerolog.Logger, opts Options) (*Pipeline, error) {
	if registry == nil {
		return nil, fmt.Errorf("stage registry is required")
	}
	if len(stageNames) == 0 {
		return nil, fmt.Errorf("pipeline stage list is empty")
	}

	stages := make([]Stage, 0, len(stageNames))
	for _, name := range stageNames {
		stage, err := registry.Build(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, stage)
	}

	workers := opts.BatchWorkers
	if workers <= 0 {
		workers = defaultBatchWorkers
	}

	return &Pipeline{
		stages:  stages,
		logger:  logger,
		workers: workers,
	}, nil
}

// StageNames returns the configured stage order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, 0, len(p.stages))
	for _, stage := range p.stages {
		names = append(names, stage.Name())
	}
	return names
}

// MergeObservation merges one observation into one product, running all
// stages in configured order. The returned Result reports whether the item
// completed, was skipped by a stage, or hit a fatal error. Stages already
// applied before a Skip remain in effect; the caller decides whether to
// persist.
func (p *Pipeline) MergeObservation(ctx context.Context, obs *model.Observation, product *model.Product) (*model.Product, Result) {
	if p == nil || len(p.stages) == 0 {
		return product, Fatalf("pipeline is not initialized")
	}
	if obs == nil {
		return product, Fatalf("observation is required")
	}
	if product == nil {
		product = model.NewProduct(obs.GTIN, globaltime.UTC())
	}
	if product.GTIN != obs.GTIN {
		return product, Fatalf("observation gtin=%d does not match product gtin=%d", obs.GTIN, product.GTIN)
	}

	rc := p.newRunContext()
	if err := p.beforeStart(rc); err != nil {
		return product, Fatal(err)
	}
	defer p.closeRun(rc)

	result := p.applyStages(ctx, rc, product, obs)
	return product, result
}

// RunBatch re-runs the full stage list over a collection of products. Items
// are independent: a Skip on one item never affects the others, and items
// may be processed in parallel. A fatal stage result aborts the remainder
// of the run and is returned to the caller.
func (p *Pipeline) RunBatch(ctx context.Context, products []*model.Product) (BatchStats, error) {
	if p == nil || len(p.stages) == 0 {
		return BatchStats{}, fmt.Errorf("pipeline is not initialized")
	}

	rc := p.newRunContext()
	if err := p.beforeStart(rc); err != nil {
		return BatchStats{}, err
	}
	defer p.closeRun(rc)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		stats    BatchStats
		fatalErr error
	)

	pool := NewWorkerPool(p.workers, len(products))
	pool.Start(runCtx)

	for _, product := range products {
		if runCtx.Err() != nil {
			break
		}
		item := product
		if item == nil {
			continue
		}
		submitErr := pool.Submit(func(jobCtx context.Context) {
			if jobCtx.Err() != nil {
				return
			}
			result := p.applyStages(jobCtx, rc, item, nil)

			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			switch result.Kind {
			case ResultOK:
				stats.Succeeded++
			case ResultSkip:
				stats.Skipped++
			case ResultFatal:
				stats.Failed++
				if fatalErr == nil {
					fatalErr = result.Err
				}
				cancel()
			}
		})
		if submitErr != nil {
			break
		}
	}
	pool.Close()

	if fatalErr != nil {
		rc.Logger.Error().Err(fatalErr).Msg("batch run aborted")
		return stats, fatalErr
	}
	return stats, nil
}

func (p *Pipeline) applyStages(ctx context.Context, rc *RunContext, product *model.Product, obs *model.Observation) Result {
	for _, stage := range p.stages {
		result := stage.Apply(ctx, rc, product, obs)
		switch result.Kind {
		case ResultOK:
			continue
		case ResultSkip:
			rc.Logger.Warn().
				Int64("gtin", product.GTIN).
				Str("stage", stage.Name()).
				Str("reason", result.Reason).
				Msg("item skipped")
			return result
		case ResultFatal:
			rc.Logger.Error().
				Err(result.Err).
				Int64("gtin", product.GTIN).
				Str("stage", stage.Name()).
				Msg("stage failed")
			return result
		default:
			return Fatalf("stage %s returned unknown result kind %d", stage.Name(), result.Kind)
		}
	}
	product.Touch(globaltime.UTC())
	return OK()
}

func (p *Pipeline) newRunContext() *RunContext {
	runID := uuid.NewString()
	return &RunContext{
		RunID:     runID,
		Logger:    p.logger.With().Str("run_id", runID).Logger(),
		StartedAt: globaltime.UTC(),
	}
}

func (p *Pipeline) beforeStart(rc *RunContext) error {
	for _, stage := range p.stages {
		lifecycle, ok := stage.(RunLifecycle)
		if !ok {
			continue
		}
		if err := lifecycle.BeforeStart(rc); err != nil {
			return fmt.Errorf("stage %s before-start: %w", stage.Name(), err)
		}
	}
	return nil
}

func (p *Pipeline) closeRun(rc *RunContext) {
	for _, stage := range p.stages {
		lifecycle, ok := stage.(RunLifecycle)
		if !ok {
			continue
		}
		if err := lifecycle.Close(rc); err != nil {
			rc.Logger.Warn().Err(err).Str("stage", stage.Name()).Msg("stage close failed")
		}
	}
}
