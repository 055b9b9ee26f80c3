package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestWorkerPoolRunsAllJobs(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(3, 8)
	pool.Start(context.Background())

	var ran atomic.Int64
	for i := 0; i < 8; i++ {
		if err := pool.Submit(func(context.Context) { ran.Add(1) }); err != nil {
			t.Fatalf("submit job %d: %v", i, err)
		}
	}
	pool.Close()

	if got := ran.Load(); got != 8 {
		t.Fatalf("expected 8 jobs run, got %d", got)
	}
}

func TestWorkerPoolRejectsSubmitAfterClose(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(1, 1)
	pool.Start(context.Background())
	pool.Close()

	if err := pool.Submit(func(context.Context) {}); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestWorkerPoolCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	pool := NewWorkerPool(2, 2)
	pool.Start(context.Background())
	pool.Close()
	pool.Close()
}
