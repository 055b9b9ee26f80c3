package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/model"
)

// ResultKind classifies a stage outcome.
type ResultKind int

const (
	// ResultOK means the stage completed and later stages may run.
	ResultOK ResultKind = iota
	// ResultSkip means processing of this item stops; stages already
	// applied remain in effect and the run continues with the next item.
	ResultSkip
	// ResultFatal aborts the current run.
	ResultFatal
)

// Result is the typed outcome of one stage application. Skip and Fatal are
// values, not panics, so batch iteration can tell "stop this item" from
// "abort the run".
type Result struct {
	Kind   ResultKind
	Reason string
	Err    error
}

func OK() Result {
	return Result{Kind: ResultOK}
}

func Skip(reason string) Result {
	return Result{Kind: ResultSkip, Reason: reason}
}

func Skipf(format string, args ...any) Result {
	return Result{Kind: ResultSkip, Reason: fmt.Sprintf(format, args...)}
}

func Fatal(err error) Result {
	return Result{Kind: ResultFatal, Err: err}
}

func Fatalf(format string, args ...any) Result {
	return Result{Kind: ResultFatal, Err: fmt.Errorf(format, args...)}
}

// RunContext carries per-run state into every stage call: the dedicated run
// logger and the run identity. It is owned by exactly one run, so the same
// pipeline definition can execute concurrent runs safely.
type RunContext struct {
	RunID     string
	Logger    zerolog.Logger
	StartedAt time.Time
}

// Stage is one unit of enrichment, validation or scoring logic operating on
// a Product. Real-time invocations additionally receive the triggering
// Observation; batch invocations pass nil.
type Stage interface {
	Name() string
	Apply(ctx context.Context, rc *RunContext, product *model.Product, obs *model.Observation) Result
}

// RunLifecycle is implemented by stages that allocate per-run resources.
// BeforeStart runs once before the first item; Close runs once after the
// run completes or aborts.
type RunLifecycle interface {
	BeforeStart(rc *RunContext) error
	Close(rc *RunContext) error
}
