package model

import "time"

// Observation is one source's raw report about one product. It is created
// per ingestion event, consumed by the pipeline, then discarded.
type Observation struct {
	GTIN        int64             `json:"gtin"`
	Source      string            `json:"source"`
	URL         string            `json:"url,omitempty"`
	FetchedAt   time.Time         `json:"fetched_at"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Price       *Price            `json:"price,omitempty"`
	MediaURLs   []MediaURL        `json:"media_urls,omitempty"`
}

// Price is an optional offer price carried by an Observation.
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// MediaURL is one candidate media asset reported by a source.
type MediaURL struct {
	URL     string `json:"url"`
	Primary bool   `json:"primary,omitempty"`
}

// Attribute returns the trimmed raw value of a named attribute, and whether
// a non-empty value was reported.
func (o *Observation) Attribute(name string) (string, bool) {
	if o == nil || len(o.Attributes) == 0 {
		return "", false
	}
	value, ok := o.Attributes[name]
	if !ok {
		return "", false
	}
	return value, value != ""
}
