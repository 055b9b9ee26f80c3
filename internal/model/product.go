package model

import (
	"strings"
	"time"
)

// Canonical referentiel attribute keys.
const (
	ReferentielBrand = "BRAND"
	ReferentielModel = "MODEL"
)

// AlternateID is a raw brand/model string that lost the canonical election,
// retained with the names of the sources that reported it.
type AlternateID struct {
	Value   string   `json:"value"`
	Kind    string   `json:"kind"`
	Sources []string `json:"sources,omitempty"`
}

// Product is the canonical record for one physical product, keyed by its
// immutable GTIN. It is mutated exclusively by pipeline stages and never
// concurrently for the same identity.
type Product struct {
	GTIN int64 `json:"gtin"`

	Referentiel map[string]string     `json:"referentiel,omitempty"`
	Attributes  map[string]*Attribute `json:"attributes,omitempty"`
	AlternateIDs []AlternateID        `json:"alternate_ids,omitempty"`
	Resources    []*Resource          `json:"resources,omitempty"`
	Scores       map[string]float64   `json:"scores,omitempty"`

	CoverPath string `json:"cover_path,omitempty"`

	CreationDate time.Time `json:"creation_date"`
	LastChange   time.Time `json:"last_change"`
}

// NewProduct creates an empty canonical record for a GTIN.
func NewProduct(gtin int64, now time.Time) *Product {
	return &Product{
		GTIN:         gtin,
		Referentiel:  map[string]string{},
		Attributes:   map[string]*Attribute{},
		Scores:       map[string]float64{},
		CreationDate: now,
		LastChange:   now,
	}
}

// Attribute returns the named attribute, creating it on first use.
func (p *Product) Attribute(name string) *Attribute {
	if p.Attributes == nil {
		p.Attributes = map[string]*Attribute{}
	}
	attr, ok := p.Attributes[name]
	if !ok {
		attr = &Attribute{Name: name}
		p.Attributes[name] = attr
	}
	return attr
}

// ReferentielValue returns the canonical value for a referentiel key.
func (p *Product) ReferentielValue(key string) string {
	if p == nil || p.Referentiel == nil {
		return ""
	}
	return p.Referentiel[key]
}

// SetReferentiel sets a canonical referentiel value.
func (p *Product) SetReferentiel(key, value string) {
	if p.Referentiel == nil {
		p.Referentiel = map[string]string{}
	}
	p.Referentiel[key] = value
}

// AddAlternateID records a losing candidate with provenance. Repeated calls
// for the same value and kind merge source names instead of duplicating the
// entry.
func (p *Product) AddAlternateID(value, kind string, sources ...string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	for i := range p.AlternateIDs {
		if p.AlternateIDs[i].Value == value && p.AlternateIDs[i].Kind == kind {
			p.AlternateIDs[i].Sources = mergeSources(p.AlternateIDs[i].Sources, sources)
			return
		}
	}
	p.AlternateIDs = append(p.AlternateIDs, AlternateID{
		Value:   value,
		Kind:    kind,
		Sources: mergeSources(nil, sources),
	})
}

// ResourceByURL returns the resource with the given URL, if present.
func (p *Product) ResourceByURL(url string) *Resource {
	for _, r := range p.Resources {
		if r.URL == url {
			return r
		}
	}
	return nil
}

// AddResource appends a candidate resource unless the URL is already known.
func (p *Product) AddResource(r *Resource) {
	if r == nil || strings.TrimSpace(r.URL) == "" {
		return
	}
	if p.ResourceByURL(r.URL) != nil {
		return
	}
	p.Resources = append(p.Resources, r)
}

// ActiveResources returns the non-evicted resources in input order.
func (p *Product) ActiveResources() []*Resource {
	active := make([]*Resource, 0, len(p.Resources))
	for _, r := range p.Resources {
		if !r.Evicted {
			active = append(active, r)
		}
	}
	return active
}

// Touch updates the last-change timestamp.
func (p *Product) Touch(now time.Time) {
	p.LastChange = now
}

func mergeSources(existing, incoming []string) []string {
	merged := existing
	for _, source := range incoming {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		seen := false
		for _, have := range merged {
			if have == source {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, source)
		}
	}
	return merged
}
