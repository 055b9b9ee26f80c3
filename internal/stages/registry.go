package stages

import (
	"fmt"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/media"
	"github.com/open4good/open4goods-sub001/internal/pipeline"
)

// Dependencies collects the shared services stage constructors close over.
type Dependencies struct {
	Vertical *config.Vertical
	Fetcher  *media.Fetcher
	Embedder media.EmbeddingProvider
}

// DefaultRegistry registers every built-in stage kind against one
// vertical's dependencies. Registration failures are configuration faults
// and surface here, before any pipeline is built.
func DefaultRegistry(deps Dependencies) (*pipeline.Registry, error) {
	if deps.Vertical == nil {
		return nil, fmt.Errorf("vertical configuration is required")
	}
	if deps.Fetcher == nil {
		return nil, fmt.Errorf("media fetcher is required")
	}
	if deps.Embedder == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}

	registry := pipeline.NewRegistry()
	constructors := map[string]pipeline.StageConstructor{
		"validate": func() (pipeline.Stage, error) { return NewValidateStage(), nil },
		"merge":    func() (pipeline.Stage, error) { return NewMergeStage(), nil },
		"identity": func() (pipeline.Stage, error) { return NewIdentityStage(deps.Vertical), nil },
		"media":    func() (pipeline.Stage, error) { return NewMediaStage(deps.Vertical, deps.Fetcher, deps.Embedder), nil },
		"scoring":  func() (pipeline.Stage, error) { return NewScoringStage(deps.Vertical), nil },
	}
	for name, constructor := range constructors {
		if err := registry.Register(name, constructor); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
