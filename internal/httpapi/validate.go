package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed observation.schema.json
var observationSchemaJSON string

var (
	observationCompileOnce sync.Once
	observationSchema      *jsonschema.Schema
	observationSchemaErr   error
)

// validateObservationPayload checks an ingestion body against the embedded
// schema before it is bound into the model. Schema violations are caller
// faults and map to 400 responses.
func validateObservationPayload(payload []byte) error {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return fmt.Errorf("decode observation JSON: %w", err)
	}

	schema, err := loadObservationSchema()
	if err != nil {
		return fmt.Errorf("load observation schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return err
	}
	return nil
}

func loadObservationSchema() (*jsonschema.Schema, error) {
	observationCompileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("observation.schema.json", strings.NewReader(observationSchemaJSON)); err != nil {
			observationSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, err := compiler.Compile("observation.schema.json")
		if err != nil {
			observationSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		observationSchema = schema
	})

	if observationSchemaErr != nil {
		return nil, observationSchemaErr
	}
	if observationSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return observationSchema, nil
}

// decodeObservationArray splits a bulk ingestion body into its raw
// observation elements, each validated against the schema separately so
// fault reports can name the offending index.
func decodeObservationArray(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	var items []json.RawMessage
	if err := decoder.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode observation array: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("body contains trailing content")
	}
	return items, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("body is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("body contains trailing content")
	}
	return value, nil
}
