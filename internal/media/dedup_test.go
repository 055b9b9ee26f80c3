package media

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/model"
)

type stubEmbedder struct {
	vector []float64
	err    error
	calls  atomic.Int64
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.vector, nil
}

func pngPayload(t *testing.T, c color.RGBA, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func mediaServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload, ok := payloads[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func testDedupVertical() *config.Vertical {
	return &config.Vertical{
		Name:                "watches",
		MinPixels:           1,
		SimilarityThreshold: 0.8,
	}
}

func newTestDeduplicator(t *testing.T, vertical *config.Vertical, embedder EmbeddingProvider) *Deduplicator {
	t.Helper()
	fetcher := NewFetcher(t.TempDir(), time.Second, 5*time.Second)
	return NewDeduplicator(vertical, fetcher, embedder, zerolog.Nop())
}

func productWithResources(urls ...string) *model.Product {
	p := model.NewProduct(1, time.Now().UTC())
	for _, url := range urls {
		p.AddResource(&model.Resource{URL: url})
	}
	return p
}

func TestProcessEnrichesImagesAndElectsCover(t *testing.T) {
	t.Parallel()

	server := mediaServer(t, map[string][]byte{
		"/red.png":  pngPayload(t, color.RGBA{R: 255, A: 255}, 32),
		"/blue.png": pngPayload(t, color.RGBA{B: 255, A: 255}, 32),
	})

	embedder := &stubEmbedder{vector: []float64{1, 0}}
	d := newTestDeduplicator(t, testDedupVertical(), embedder)

	p := productWithResources(server.URL+"/red.png", server.URL+"/blue.png")
	if err := d.Process(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, r := range p.Resources {
		if r.Evicted {
			t.Fatalf("resource %s unexpectedly evicted: %s", r.URL, r.Status)
		}
		if !r.Processed {
			t.Fatalf("resource %s not marked processed", r.URL)
		}
		if r.Kind != model.KindImage || r.MimeType != "image/png" {
			t.Fatalf("resource %s misclassified: kind=%s mime=%s", r.URL, r.Kind, r.MimeType)
		}
		if r.MD5 == "" || r.Image == nil || r.Image.Width != 32 {
			t.Fatalf("resource %s not enriched: %+v", r.URL, r)
		}
		if r.Group == 0 {
			t.Fatalf("resource %s not clustered", r.URL)
		}
	}

	// Identical embeddings put both images in one cluster; the first
	// resource wins the equal-resolution tie and becomes the cover.
	if p.CoverPath != server.URL+"/red.png" {
		t.Fatalf("unexpected cover: %q", p.CoverPath)
	}
}

func TestProcessEvictsDuplicateChecksums(t *testing.T) {
	t.Parallel()

	payload := pngPayload(t, color.RGBA{G: 255, A: 255}, 32)
	server := mediaServer(t, map[string][]byte{
		"/one.png": payload,
		"/two.png": payload,
	})

	d := newTestDeduplicator(t, testDedupVertical(), &stubEmbedder{vector: []float64{1, 0}})
	p := productWithResources(server.URL+"/one.png", server.URL+"/two.png")
	if err := d.Process(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first := p.ResourceByURL(server.URL + "/one.png")
	second := p.ResourceByURL(server.URL + "/two.png")
	if first.Evicted {
		t.Fatalf("first occurrence must survive, got status %s", first.Status)
	}
	if !second.Evicted || second.Status != model.StatusMD5Duplicate {
		t.Fatalf("expected duplicate eviction, got evicted=%v status=%s", second.Evicted, second.Status)
	}
}

func TestProcessEvictsBlacklistedChecksum(t *testing.T) {
	t.Parallel()

	payload := pngPayload(t, color.RGBA{R: 255, G: 255, A: 255}, 32)
	sum := md5.Sum(payload)

	server := mediaServer(t, map[string][]byte{"/banned.png": payload})

	vertical := testDedupVertical()
	vertical.MD5Blacklist = []string{hex.EncodeToString(sum[:])}

	d := newTestDeduplicator(t, vertical, &stubEmbedder{vector: []float64{1, 0}})
	p := productWithResources(server.URL + "/banned.png")
	if err := d.Process(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := p.Resources[0]
	if !r.Evicted || r.Status != model.StatusMD5Exclusion {
		t.Fatalf("expected blacklist eviction, got evicted=%v status=%s", r.Evicted, r.Status)
	}
	if p.CoverPath != PlaceholderCover {
		t.Fatalf("expected placeholder cover, got %q", p.CoverPath)
	}
}

func TestProcessEvictsTooSmallImages(t *testing.T) {
	t.Parallel()

	server := mediaServer(t, map[string][]byte{
		"/tiny.png": pngPayload(t, color.RGBA{B: 128, A: 255}, 8),
	})

	vertical := testDedupVertical()
	vertical.MinPixels = 10000

	d := newTestDeduplicator(t, vertical, &stubEmbedder{vector: []float64{1, 0}})
	p := productWithResources(server.URL + "/tiny.png")
	if err := d.Process(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := p.Resources[0]
	if !r.Evicted || r.Status != model.StatusTooSmall {
		t.Fatalf("expected size eviction, got evicted=%v status=%s", r.Evicted, r.Status)
	}
}

func TestProcessEvictsUnfetchableResources(t *testing.T) {
	t.Parallel()

	server := mediaServer(t, map[string][]byte{})

	d := newTestDeduplicator(t, testDedupVertical(), &stubEmbedder{vector: []float64{1, 0}})
	p := productWithResources(server.URL + "/gone.png")
	if err := d.Process(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := p.Resources[0]
	if !r.Evicted || r.Status != model.StatusFetchFailed {
		t.Fatalf("expected fetch eviction, got evicted=%v status=%s", r.Evicted, r.Status)
	}
}

func TestProcessSurvivesEmbeddingOutage(t *testing.T) {
	t.Parallel()

	server := mediaServer(t, map[string][]byte{
		"/a.png": pngPayload(t, color.RGBA{R: 255, A: 255}, 32),
	})

	d := newTestDeduplicator(t, testDedupVertical(), &stubEmbedder{err: fmt.Errorf("service down")})
	p := productWithResources(server.URL + "/a.png")
	if err := d.Process(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := p.Resources[0]
	if r.Evicted {
		t.Fatalf("embedding outage must not evict, got status %s", r.Status)
	}
	if p.CoverPath != r.URL {
		t.Fatalf("expected singleton cover, got %q", p.CoverPath)
	}
}

func TestProcessIsIdempotent(t *testing.T) {
	t.Parallel()

	server := mediaServer(t, map[string][]byte{
		"/a.png": pngPayload(t, color.RGBA{R: 255, A: 255}, 32),
	})

	embedder := &stubEmbedder{vector: []float64{1, 0}}
	d := newTestDeduplicator(t, testDedupVertical(), embedder)
	p := productWithResources(server.URL + "/a.png")

	for i := 0; i < 2; i++ {
		if err := d.Process(context.Background(), p); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}

	if got := embedder.calls.Load(); got != 1 {
		t.Fatalf("expected a single enrichment pass, got %d embed calls", got)
	}
	if p.CoverPath != server.URL+"/a.png" {
		t.Fatalf("unexpected cover after re-run: %q", p.CoverPath)
	}
}
