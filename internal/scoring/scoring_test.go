package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/open4good/open4goods-sub001/internal/media"
	"github.com/open4good/open4goods-sub001/internal/model"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCompletenessWithRequiredAttributes(t *testing.T) {
	t.Parallel()

	p := model.NewProduct(1, time.Now().UTC())
	p.Attribute("COLOR").AddSource("shopA", "black")
	p.Attribute("WEIGHT").AddSource("shopA", "")

	got := Completeness(p, []string{"COLOR", "WEIGHT", "DIAMETER", "STRAP"})
	if !almostEqual(got, 0.25) {
		t.Fatalf("expected 0.25, got %v", got)
	}
}

func TestCompletenessWithoutRequirementsUsesReferentiel(t *testing.T) {
	t.Parallel()

	p := model.NewProduct(1, time.Now().UTC())
	if got := Completeness(p, nil); got != 0 {
		t.Fatalf("expected 0 for empty product, got %v", got)
	}

	p.SetReferentiel(model.ReferentielBrand, "CASIO")
	if got := Completeness(p, nil); !almostEqual(got, 0.5) {
		t.Fatalf("expected 0.5 with brand only, got %v", got)
	}

	p.SetReferentiel(model.ReferentielModel, "WR100")
	if got := Completeness(p, nil); !almostEqual(got, 1) {
		t.Fatalf("expected 1 with brand and model, got %v", got)
	}
}

func TestMediaScoreCountsActiveImages(t *testing.T) {
	t.Parallel()

	p := model.NewProduct(1, time.Now().UTC())
	if got := Media(p); got != 0 {
		t.Fatalf("expected 0 without resources, got %v", got)
	}

	p.AddResource(&model.Resource{URL: "a", Kind: model.KindImage})
	evicted := &model.Resource{URL: "b", Kind: model.KindImage}
	evicted.Evict(model.StatusTooSmall)
	p.AddResource(evicted)
	p.AddResource(&model.Resource{URL: "c", Kind: model.KindPDF})

	if got := Media(p); !almostEqual(got, 0.2) {
		t.Fatalf("expected one of five active images, got %v", got)
	}
}

func TestMediaScoreCoverBonus(t *testing.T) {
	t.Parallel()

	p := model.NewProduct(1, time.Now().UTC())
	p.AddResource(&model.Resource{URL: "a", Kind: model.KindImage})

	p.CoverPath = media.PlaceholderCover
	withoutBonus := Media(p)

	p.CoverPath = "a"
	withBonus := Media(p)

	if !almostEqual(withBonus, withoutBonus*0.8+0.2) {
		t.Fatalf("unexpected cover bonus: %v -> %v", withoutBonus, withBonus)
	}
}

func TestMediaScoreSaturates(t *testing.T) {
	t.Parallel()

	p := model.NewProduct(1, time.Now().UTC())
	for _, url := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		p.AddResource(&model.Resource{URL: url, Kind: model.KindImage})
	}
	p.CoverPath = "a"

	if got := Media(p); got > 1 {
		t.Fatalf("media score exceeded 1: %v", got)
	}
}

func TestAggregateIsMeanOfOtherScores(t *testing.T) {
	t.Parallel()

	p := model.NewProduct(1, time.Now().UTC())
	if got := Aggregate(p); got != 0 {
		t.Fatalf("expected 0 without scores, got %v", got)
	}

	p.Scores[ScoreCompleteness] = 0.4
	p.Scores[ScoreMedia] = 0.8
	p.Scores[ScoreAggregate] = 99 // stale value must not feed itself

	if got := Aggregate(p); !almostEqual(got, 0.6) {
		t.Fatalf("expected 0.6, got %v", got)
	}
}
