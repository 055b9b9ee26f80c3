package media

import (
	"context"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/open4good/open4goods-sub001/internal/config"
	"github.com/open4good/open4goods-sub001/internal/model"
)

// fetchConcurrency bounds parallel downloads within one product.
const fetchConcurrency = 4

// Deduplicator runs the full media treatment of a product: fetch into the
// local cache, checksum, mime sniffing, per-kind enrichment, eviction
// filters, visual clustering and cover election. Every step records its
// outcome on the resource itself; a faulty resource is evicted with a
// status, never dropped and never fatal for the product.
type Deduplicator struct {
	vertical *config.Vertical
	fetcher  *Fetcher
	embedder EmbeddingProvider
	logger   zerolog.Logger
}

func NewDeduplicator(vertical *config.Vertical, fetcher *Fetcher, embedder EmbeddingProvider, logger zerolog.Logger) *Deduplicator {
	return &Deduplicator{
		vertical: vertical,
		fetcher:  fetcher,
		embedder: embedder,
		logger:   logger,
	}
}

// Process treats all resources of a product. Enrichment of an already
// processed resource is skipped, but eviction filters, clustering and
// cover election always re-run over the full resource set, so the call is
// idempotent.
func (d *Deduplicator) Process(ctx context.Context, p *model.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.enrichAll(ctx, p.Resources)
	d.applyEvictionFilters(p.Resources)

	images := make([]*model.Resource, 0, len(p.Resources))
	for _, r := range p.Resources {
		if !r.Evicted && r.Kind == model.KindImage {
			images = append(images, r)
		}
	}

	clusters := ClusterImages(images, d.vertical.SimilarityThreshold)
	ScoreConsistency(clusters)
	p.CoverPath = ElectCover(clusters)

	d.logger.Info().
		Int64("gtin", p.GTIN).
		Int("resources", len(p.Resources)).
		Int("images", len(images)).
		Int("clusters", len(clusters)).
		Str("cover", p.CoverPath).
		Msg("media treatment complete")
	return nil
}

// enrichAll fetches and enriches unprocessed resources, a bounded number
// in parallel. Each goroutine only ever touches its own resource.
func (d *Deduplicator) enrichAll(ctx context.Context, resources []*model.Resource) {
	var wg sync.WaitGroup
	slots := make(chan struct{}, fetchConcurrency)

	for _, r := range resources {
		if r == nil || r.Evicted || r.Processed {
			continue
		}
		wg.Add(1)
		slots <- struct{}{}
		go func(r *model.Resource) {
			defer wg.Done()
			defer func() { <-slots }()
			d.enrichOne(ctx, r)
		}(r)
	}
	wg.Wait()
}

func (d *Deduplicator) enrichOne(ctx context.Context, r *model.Resource) {
	path, size, err := d.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		d.logger.Warn().Str("url", r.URL).Err(err).Msg("resource fetch failed")
		r.Evict(model.StatusFetchFailed)
		return
	}
	r.CacheKey = d.fetcher.CacheKey(r.URL)
	r.FileSize = size

	sum, err := MD5File(path)
	if err != nil {
		d.logger.Warn().Str("url", r.URL).Err(err).Msg("resource checksum failed")
		r.Evict(model.StatusMD5ChecksumFail)
		return
	}
	r.MD5 = sum

	mime, err := mimetype.DetectFile(path)
	if err != nil || mime == nil || mime.String() == "" {
		d.logger.Warn().Str("url", r.URL).Msg("resource mime type undetectable")
		r.Evict(model.StatusNoMimeType)
		return
	}
	r.MimeType = mime.String()
	r.Kind = classifyMime(r.MimeType)

	switch r.Kind {
	case model.KindImage:
		if !d.enrichImage(ctx, r, path) {
			return
		}
	case model.KindPDF:
		if !d.enrichPDF(r, path) {
			return
		}
	}
	r.Processed = true
}

func (d *Deduplicator) enrichImage(ctx context.Context, r *model.Resource, path string) bool {
	width, height, err := ImageDimensions(path)
	if err != nil {
		d.logger.Warn().Str("url", r.URL).Err(err).Msg("image dimensions unreadable")
		r.Evict(model.StatusCannotAnalyse)
		return false
	}
	r.Image = &model.ImageInfo{Width: width, Height: height}

	img, err := DecodeImageFile(path)
	if err != nil {
		d.logger.Warn().Str("url", r.URL).Err(err).Msg("image decode failed")
		r.Evict(model.StatusCannotAnalyse)
		return false
	}
	r.Image.PerceptualHash = DifferenceHash(img)

	// An unavailable embedding service degrades clustering to singleton
	// clusters instead of failing the resource.
	embedding, err := d.embedder.Embed(ctx, path)
	if err != nil {
		d.logger.Warn().Str("url", r.URL).Err(err).Msg("image embedding unavailable")
	} else {
		r.Image.Embedding = embedding
	}
	return true
}

func (d *Deduplicator) enrichPDF(r *model.Resource, path string) bool {
	analysis, err := AnalyzePDF(path)
	if err != nil {
		d.logger.Warn().Str("url", r.URL).Err(err).Msg("pdf analysis failed")
		r.Evict(model.StatusCannotAnalyse)
		return false
	}
	r.PDF = &analysis.Info
	return true
}

// applyEvictionFilters runs the ordered checksum filters over the stable
// resource order of the product: blacklist first, then exact duplicates
// (first occurrence wins), then the minimum resolution filter.
func (d *Deduplicator) applyEvictionFilters(resources []*model.Resource) {
	seen := make(map[string]*model.Resource)
	for _, r := range resources {
		if r == nil || r.Evicted || r.MD5 == "" {
			continue
		}

		if d.vertical.BlacklistedMD5(r.MD5) {
			d.logger.Debug().Str("url", r.URL).Str("md5", r.MD5).Msg("resource md5 blacklisted")
			r.Evict(model.StatusMD5Exclusion)
			continue
		}

		if _, dup := seen[r.MD5]; dup {
			r.Evict(model.StatusMD5Duplicate)
			continue
		}
		seen[r.MD5] = r

		if r.Kind == model.KindImage && r.PixelCount() < d.vertical.MinPixels {
			r.Evict(model.StatusTooSmall)
		}
	}
}

func classifyMime(mime string) model.ResourceKind {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return model.KindImage
	case mime == "application/pdf":
		return model.KindPDF
	case strings.HasPrefix(mime, "video/"):
		return model.KindVideo
	default:
		return model.KindUnknown
	}
}
