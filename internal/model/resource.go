package model

import "time"

// Resource eviction statuses. An evicted resource stays attached to its
// product with the reason recorded; it is only excluded from presentation.
const (
	StatusMD5ChecksumFail = "MD5_CHECKSUM_FAIL"
	StatusNoMimeType      = "NO_MIME_TYPE"
	StatusCannotAnalyse   = "CANNOT_ANALYSE"
	StatusMD5Exclusion    = "MD5_EXCLUSION"
	StatusMD5Duplicate    = "MD5_DUPLICATE"
	StatusTooSmall        = "TOO_SMALL"
	StatusFetchFailed     = "FETCH_FAILED"
)

// Hard resource tags.
const (
	TagPrimary = "PRIMARY"
)

// ResourceKind classifies a media resource by its sniffed content type.
type ResourceKind string

const (
	KindUnknown ResourceKind = ""
	KindImage   ResourceKind = "image"
	KindPDF     ResourceKind = "pdf"
	KindVideo   ResourceKind = "video"
)

// ImageInfo holds image-specific enrichment data.
type ImageInfo struct {
	Width          int       `json:"width"`
	Height         int       `json:"height"`
	PerceptualHash string    `json:"phash,omitempty"`
	Embedding      []float64 `json:"embedding,omitempty"`
	Consistency    float64   `json:"consistency"`
}

// PixelCount is the resolution used for size filtering and cluster member
// ordering.
func (i *ImageInfo) PixelCount() int {
	if i == nil {
		return 0
	}
	return i.Width * i.Height
}

// PDFInfo holds document-specific enrichment data.
type PDFInfo struct {
	PageCount    int       `json:"page_count"`
	Title        string    `json:"title,omitempty"`
	Author       string    `json:"author,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	Language     string    `json:"language,omitempty"`
	Multilingual bool      `json:"multilingual,omitempty"`
}

// Resource is one media asset belonging to a Product.
type Resource struct {
	URL      string       `json:"url"`
	CacheKey string       `json:"cache_key,omitempty"`
	MD5      string       `json:"md5,omitempty"`
	MimeType string       `json:"mime_type,omitempty"`
	FileSize int64        `json:"file_size,omitempty"`
	Kind     ResourceKind `json:"kind,omitempty"`

	Evicted bool   `json:"evicted"`
	Status  string `json:"status,omitempty"`

	// Group is the cluster id; only meaningful while Evicted is false.
	Group int `json:"group,omitempty"`

	HardTags []string `json:"hard_tags,omitempty"`
	SoftTags []string `json:"soft_tags,omitempty"`

	Image *ImageInfo `json:"image,omitempty"`
	PDF   *PDFInfo   `json:"pdf,omitempty"`

	Processed bool `json:"processed,omitempty"`
}

// Evict marks the resource as excluded from presentation with a reason.
func (r *Resource) Evict(status string) {
	if r == nil {
		return
	}
	r.Evicted = true
	r.Status = status
	r.Group = 0
}

// HasTag reports whether the resource carries the given hard tag.
func (r *Resource) HasTag(tag string) bool {
	if r == nil {
		return false
	}
	for _, t := range r.HardTags {
		if t == tag {
			return true
		}
	}
	return false
}

// PixelCount returns the image pixel count, or 0 for non-image resources.
func (r *Resource) PixelCount() int {
	if r == nil || r.Image == nil {
		return 0
	}
	return r.Image.PixelCount()
}
