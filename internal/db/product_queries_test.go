package db

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/open4good/open4goods-sub001/internal/model"
)

// fakeExecutor records the statement it receives, standing in for the
// pool or an open transaction.
type fakeExecutor struct {
	query string
	args  []any
	tag   CommandTag
	err   error
}

func (f *fakeExecutor) Exec(_ context.Context, query string, args ...any) (CommandTag, error) {
	f.query = query
	f.args = args
	return f.tag, f.err
}

func TestSaveProductUpsertsThroughExecutor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	product := model.NewProduct(4006381333931, now)
	product.SetReferentiel(model.ReferentielBrand, "CASIO")
	product.SetReferentiel(model.ReferentielModel, "WR100")
	product.CoverPath = "https://img.example/cover.webp"

	exec := &fakeExecutor{}
	if err := SaveProduct(context.Background(), exec, "Watches", product); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(exec.query, "ON CONFLICT (gtin)") {
		t.Fatalf("expected upsert statement, got %q", exec.query)
	}
	if len(exec.args) != 8 {
		t.Fatalf("expected 8 statement args, got %d", len(exec.args))
	}
	if exec.args[0] != int64(4006381333931) || exec.args[1] != "watches" {
		t.Fatalf("unexpected identity args: %v", exec.args[:2])
	}
	if exec.args[2] != "CASIO" || exec.args[3] != "WR100" {
		t.Fatalf("unexpected referentiel args: %v", exec.args[2:4])
	}

	payload, ok := exec.args[5].(string)
	if !ok {
		t.Fatalf("expected serialized payload, got %T", exec.args[5])
	}
	var restored model.Product
	if err := json.Unmarshal([]byte(payload), &restored); err != nil {
		t.Fatalf("payload does not round-trip: %v", err)
	}
	if restored.GTIN != product.GTIN || restored.CoverPath != product.CoverPath {
		t.Fatalf("unexpected restored product: %+v", restored)
	}
}

func TestSaveProductRejectsUnusableProduct(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	if err := SaveProduct(context.Background(), exec, "watches", nil); err == nil {
		t.Fatalf("expected nil product rejected")
	}
	if err := SaveProduct(context.Background(), exec, "watches", &model.Product{}); err == nil {
		t.Fatalf("expected gtin-less product rejected")
	}
	if exec.query != "" {
		t.Fatalf("expected no statement issued, got %q", exec.query)
	}
}

func TestDeleteProductReportsExistence(t *testing.T) {
	t.Parallel()

	hit := &fakeExecutor{tag: CommandTag{rowsAffected: 1}}
	deleted, err := DeleteProduct(context.Background(), hit, 42)
	if err != nil || !deleted {
		t.Fatalf("expected deletion reported, got deleted=%v err=%v", deleted, err)
	}
	if hit.args[0] != int64(42) {
		t.Fatalf("unexpected statement args: %v", hit.args)
	}

	miss := &fakeExecutor{tag: CommandTag{rowsAffected: 0}}
	deleted, err = DeleteProduct(context.Background(), miss, 42)
	if err != nil || deleted {
		t.Fatalf("expected missing row reported, got deleted=%v err=%v", deleted, err)
	}
}
