package source

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed catalog_schema.json
var catalogSchemaJSON string

// Catalog is a user-supplied JSON file of extra RSS sources, loaded on
// top of the built-in set.
type Catalog struct {
	Sources []CatalogSource `json:"sources"`
}

// CatalogSource is one feed entry from a catalog file.
type CatalogSource struct {
	Name             string `json:"name"`
	URL              string `json:"url"`
	MaxItems         int    `json:"max_items,omitempty"`
	FullTextMinRunes int    `json:"full_text_min_runes,omitempty"`
}

var (
	catalogSchemaOnce sync.Once
	catalogSchema     *jsonschema.Schema
	catalogSchemaErr  error
)

// LoadCatalog parses and schema-validates a catalog file and registers
// its sources. Catalog entries shadow built-ins with the same key.
func (r *Registry) LoadCatalog(path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read catalog: %w", err)
	}

	catalog, err := ParseCatalog(raw)
	if err != nil {
		return 0, fmt.Errorf("catalog %s: %w", path, err)
	}

	for _, entry := range catalog.Sources {
		name, url := entry.Name, entry.URL
		opts := RSSOptions{
			MaxItems:         entry.MaxItems,
			FullTextMinRunes: entry.FullTextMinRunes,
			FetchTimeout:     r.defaults.FetchTimeout,
		}
		// An entry without its own threshold inherits the registry-wide
		// one.
		if opts.FullTextMinRunes == 0 {
			opts.FullTextMinRunes = r.defaults.FullTextMinRunes
		}
		r.Register(DeriveKey(name), func() (Adapter, error) {
			return NewRSS(name, url, opts), nil
		})
	}

	r.logger.Info().Str("path", path).Int("sources", len(catalog.Sources)).Msg("loaded source catalog")
	return len(catalog.Sources), nil
}

// ParseCatalog decodes and validates catalog JSON without registering
// anything.
func ParseCatalog(raw []byte) (*Catalog, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode catalog JSON: %w", err)
	}

	schema, err := loadCatalogSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("normalize catalog JSON: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(normalized, &catalog); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(catalog.Sources))
	for i, entry := range catalog.Sources {
		key := DeriveKey(entry.Name)
		if key == "" {
			return nil, fmt.Errorf("sources[%d]: name %q yields an empty key", i, entry.Name)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("sources[%d]: duplicate source key %q", i, key)
		}
		seen[key] = struct{}{}
	}

	return &catalog, nil
}

func loadCatalogSchema() (*jsonschema.Schema, error) {
	catalogSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("catalog_schema.json", strings.NewReader(catalogSchemaJSON)); err != nil {
			catalogSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("catalog_schema.json")
		if err != nil {
			catalogSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		catalogSchema = schema
	})

	if catalogSchemaErr != nil {
		return nil, catalogSchemaErr
	}
	if catalogSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return catalogSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("catalog contains trailing content")
	}

	return value, nil
}
