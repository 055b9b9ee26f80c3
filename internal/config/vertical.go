package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed vertical.schema.json
var verticalSchemaJSON string

// Vertical defaults applied when a field is absent from the document.
const (
	DefaultUIDMinLength        = 3
	DefaultUIDMaxLength        = 24
	DefaultMinPixels           = 10000
	DefaultSimilarityThreshold = 0.80
)

// Vertical is one product category's configuration: sanitization noise
// tokens, UID extraction bounds, media eviction thresholds and the stage
// list the pipeline runs for products of this category.
type Vertical struct {
	Name                string   `json:"vertical"`
	NoiseTokens         []string `json:"noise_tokens,omitempty"`
	UIDMinLength        int      `json:"uid_min_length,omitempty"`
	UIDMaxLength        int      `json:"uid_max_length,omitempty"`
	MD5Blacklist        []string `json:"md5_blacklist,omitempty"`
	MinPixels           int      `json:"min_pixels,omitempty"`
	SimilarityThreshold float64  `json:"similarity_threshold,omitempty"`
	RequiredAttributes  []string `json:"required_attributes,omitempty"`
	ForceReferentiel    bool     `json:"force_referentiel,omitempty"`
	Stages              []string `json:"stages"`
}

// BlacklistedMD5 reports whether a checksum is on the vertical's exclusion
// list.
func (v *Vertical) BlacklistedMD5(md5 string) bool {
	if v == nil {
		return false
	}
	needle := strings.ToLower(strings.TrimSpace(md5))
	for _, entry := range v.MD5Blacklist {
		if strings.ToLower(entry) == needle {
			return true
		}
	}
	return false
}

var (
	verticalCompileOnce sync.Once
	verticalSchema      *jsonschema.Schema
	verticalSchemaErr   error
)

// ParseVertical validates one vertical configuration document against the
// embedded schema and applies defaults.
func ParseVertical(payload []byte) (*Vertical, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("decode vertical JSON: %w", err)
	}

	schema, err := loadVerticalSchema()
	if err != nil {
		return nil, fmt.Errorf("load vertical schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("vertical schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize vertical JSON: %w", err)
	}

	var vertical Vertical
	if err := json.Unmarshal(normalized, &vertical); err != nil {
		return nil, fmt.Errorf("unmarshal vertical: %w", err)
	}

	vertical.Name = strings.ToLower(strings.TrimSpace(vertical.Name))
	if vertical.UIDMinLength <= 0 {
		vertical.UIDMinLength = DefaultUIDMinLength
	}
	if vertical.UIDMaxLength <= 0 {
		vertical.UIDMaxLength = DefaultUIDMaxLength
	}
	if vertical.UIDMinLength > vertical.UIDMaxLength {
		return nil, fmt.Errorf("uid_min_length (%d) cannot exceed uid_max_length (%d)", vertical.UIDMinLength, vertical.UIDMaxLength)
	}
	if vertical.MinPixels <= 0 {
		vertical.MinPixels = DefaultMinPixels
	}
	if vertical.SimilarityThreshold <= 0 {
		vertical.SimilarityThreshold = DefaultSimilarityThreshold
	}
	return &vertical, nil
}

// LoadVerticals reads every *.json document in a directory into a map
// keyed by vertical name. An invalid document fails the whole load.
func LoadVerticals(dir string) (map[string]*Vertical, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read vertical config dir %q: %w", dir, err)
	}

	verticals := make(map[string]*Vertical)
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		payload, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read vertical config %q: %w", path, err)
		}
		vertical, err := ParseVertical(payload)
		if err != nil {
			return nil, fmt.Errorf("vertical config %q: %w", path, err)
		}
		if _, exists := verticals[vertical.Name]; exists {
			return nil, fmt.Errorf("vertical %q is defined twice", vertical.Name)
		}
		verticals[vertical.Name] = vertical
	}
	return verticals, nil
}

func loadVerticalSchema() (*jsonschema.Schema, error) {
	verticalCompileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("vertical.schema.json", strings.NewReader(verticalSchemaJSON)); err != nil {
			verticalSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("vertical.schema.json")
		if err != nil {
			verticalSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		verticalSchema = schema
	})

	if verticalSchemaErr != nil {
		return nil, verticalSchemaErr
	}
	if verticalSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return verticalSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("document is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("document contains trailing content")
	}
	return value, nil
}
