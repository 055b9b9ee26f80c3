package pipeline

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/model"
)

type recordingStage struct {
	name    string
	mu      sync.Mutex
	applied []int64
	result  func(p *model.Product) Result

	beforeStarts int
	closes       int
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Apply(_ context.Context, _ *RunContext, p *model.Product, _ *model.Observation) Result {
	s.mu.Lock()
	s.applied = append(s.applied, p.GTIN)
	s.mu.Unlock()
	if s.result != nil {
		return s.result(p)
	}
	return OK()
}

func (s *recordingStage) BeforeStart(_ *RunContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeStarts++
	return nil
}

func (s *recordingStage) Close(_ *RunContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *recordingStage) appliedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.applied)
}

func registryWith(t *testing.T, stages ...*recordingStage) (*Registry, []string) {
	t.Helper()
	registry := NewRegistry()
	names := make([]string, 0, len(stages))
	for _, stage := range stages {
		stage := stage
		if err := registry.Register(stage.name, func() (Stage, error) { return stage, nil }); err != nil {
			t.Fatalf("register stage %s: %v", stage.name, err)
		}
		names = append(names, stage.name)
	}
	return registry, names
}

func TestNewRejectsEmptyStageList(t *testing.T) {
	t.Parallel()

	registry, _ := registryWith(t, &recordingStage{name: "noop"})
	if _, err := New(registry, nil, zerolog.Nop(), Options{}); err == nil {
		t.Fatalf("expected empty stage list rejected")
	}
}

func TestNewRejectsUnknownStage(t *testing.T) {
	t.Parallel()

	registry, _ := registryWith(t, &recordingStage{name: "noop"})
	if _, err := New(registry, []string{"noop", "missing"}, zerolog.Nop(), Options{}); err == nil {
		t.Fatalf("expected unknown stage rejected at construction")
	}
}

func TestMergeObservationCreatesProduct(t *testing.T) {
	t.Parallel()

	stage := &recordingStage{name: "noop"}
	registry, names := registryWith(t, stage)
	p, err := New(registry, names, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	obs := &model.Observation{GTIN: 42, Source: "shopA", FetchedAt: time.Now().UTC()}
	product, result := p.MergeObservation(context.Background(), obs, nil)
	if result.Kind != ResultOK {
		t.Fatalf("unexpected result: %+v", result)
	}
	if product == nil || product.GTIN != 42 {
		t.Fatalf("expected product created for gtin 42, got %+v", product)
	}
	if stage.appliedCount() != 1 {
		t.Fatalf("expected stage applied once, got %d", stage.appliedCount())
	}
}

func TestMergeObservationRejectsGTINMismatch(t *testing.T) {
	t.Parallel()

	stage := &recordingStage{name: "noop"}
	registry, names := registryWith(t, stage)
	p, err := New(registry, names, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	product := model.NewProduct(1, time.Now().UTC())
	obs := &model.Observation{GTIN: 2, Source: "shopA"}
	if _, result := p.MergeObservation(context.Background(), obs, product); result.Kind != ResultFatal {
		t.Fatalf("expected fatal on gtin mismatch, got %+v", result)
	}
	if stage.appliedCount() != 0 {
		t.Fatalf("expected no stage applied, got %d", stage.appliedCount())
	}
}

func TestSkipStopsItemButKeepsEarlierStages(t *testing.T) {
	t.Parallel()

	first := &recordingStage{name: "first"}
	skipper := &recordingStage{
		name: "skipper",
		result: func(p *model.Product) Result {
			return Skip("not enough data")
		},
	}
	last := &recordingStage{name: "last"}

	registry, names := registryWith(t, first, skipper, last)
	p, err := New(registry, names, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	obs := &model.Observation{GTIN: 7, Source: "shopA"}
	_, result := p.MergeObservation(context.Background(), obs, nil)
	if result.Kind != ResultSkip || result.Reason != "not enough data" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if first.appliedCount() != 1 {
		t.Fatalf("expected earlier stage applied")
	}
	if last.appliedCount() != 0 {
		t.Fatalf("expected later stage not applied")
	}
}

func TestRunBatchSkipIsolation(t *testing.T) {
	t.Parallel()

	stage := &recordingStage{
		name: "selective",
		result: func(p *model.Product) Result {
			if p.GTIN == 2 {
				return Skip("bad item")
			}
			return OK()
		},
	}
	registry, names := registryWith(t, stage)
	p, err := New(registry, names, zerolog.Nop(), Options{BatchWorkers: 2})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	now := time.Now().UTC()
	products := []*model.Product{
		model.NewProduct(1, now),
		model.NewProduct(2, now),
		model.NewProduct(3, now),
	}

	stats, err := p.RunBatch(context.Background(), products)
	if err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}
	if stats.Processed != 3 || stats.Succeeded != 2 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunBatchFatalAborts(t *testing.T) {
	t.Parallel()

	stage := &recordingStage{
		name: "failing",
		result: func(p *model.Product) Result {
			if p.GTIN == 1 {
				return Fatal(fmt.Errorf("boom"))
			}
			return OK()
		},
	}
	registry, names := registryWith(t, stage)
	p, err := New(registry, names, zerolog.Nop(), Options{BatchWorkers: 1})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	now := time.Now().UTC()
	stats, err := p.RunBatch(context.Background(), []*model.Product{
		model.NewProduct(1, now),
	})
	if err == nil {
		t.Fatalf("expected fatal error surfaced")
	}
	if stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunLifecycleHooksRunOncePerRun(t *testing.T) {
	t.Parallel()

	stage := &recordingStage{name: "lifecycle"}
	registry, names := registryWith(t, stage)
	p, err := New(registry, names, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	now := time.Now().UTC()
	if _, err := p.RunBatch(context.Background(), []*model.Product{
		model.NewProduct(1, now),
		model.NewProduct(2, now),
	}); err != nil {
		t.Fatalf("unexpected batch error: %v", err)
	}

	stage.mu.Lock()
	defer stage.mu.Unlock()
	if stage.beforeStarts != 1 || stage.closes != 1 {
		t.Fatalf("expected one before-start and one close, got %d/%d", stage.beforeStarts, stage.closes)
	}
}

func TestRunBatchCancelledContext(t *testing.T) {
	t.Parallel()

	stage := &recordingStage{name: "noop"}
	registry, names := registryWith(t, stage)
	p, err := New(registry, names, zerolog.Nop(), Options{})
	if err != nil {
		t.Fatalf("build pipeline: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	now := time.Now().UTC()
	stats, err := p.RunBatch(ctx, []*model.Product{model.NewProduct(1, now)})
	if err != nil {
		t.Fatalf("cancelled batch should not error: %v", err)
	}
	if stats.Processed != 0 {
		t.Fatalf("expected no items processed after cancellation, got %+v", stats)
	}
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	constructor := func() (Stage, error) { return &recordingStage{name: "dup"}, nil }
	if err := registry.Register("dup", constructor); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := registry.Register("DUP", constructor); err == nil {
		t.Fatalf("expected duplicate registration rejected")
	}
}
