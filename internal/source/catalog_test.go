package source

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseCatalog_Valid(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"sources": [
			{"name": "Example Feed", "url": "https://example.com/rss", "max_items": 10},
			{"name": "Other Blog", "url": "http://other.test/feed.xml", "full_text_min_runes": 400}
		]
	}`)

	catalog, err := ParseCatalog(raw)
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(catalog.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(catalog.Sources))
	}
	if catalog.Sources[0].MaxItems != 10 {
		t.Fatalf("max_items not decoded: %+v", catalog.Sources[0])
	}
}

func TestParseCatalog_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
	}{
		{"empty input", ""},
		{"missing sources", `{}`},
		{"missing url", `{"sources":[{"name":"X"}]}`},
		{"bad url scheme", `{"sources":[{"name":"X","url":"ftp://x.test/feed"}]}`},
		{"unknown field", `{"sources":[{"name":"X","url":"https://x.test","shady":true}]}`},
		{"duplicate key", `{"sources":[{"name":"Same Name","url":"https://a.test"},{"name":"same name","url":"https://b.test"}]}`},
		{"trailing content", `{"sources":[]} {}`},
	}

	for _, tc := range cases {
		if _, err := ParseCatalog([]byte(tc.raw)); err == nil {
			t.Fatalf("%s: expected rejection", tc.name)
		}
	}
}

func TestLoadCatalog_RegistersSources(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.json")
	raw := []byte(`{"sources":[{"name":"Example Feed","url":"https://example.com/rss"}]}`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	registry := NewRegistry(Defaults{}, zerolog.Nop())
	count, err := registry.LoadCatalog(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 loaded source, got %d", count)
	}

	adapter, err := registry.Create("example")
	if err != nil {
		t.Fatalf("catalog source not registered: %v", err)
	}
	if adapter.Name() != "Example Feed" {
		t.Fatalf("unexpected adapter name %q", adapter.Name())
	}
}

func TestLoadCatalog_AppliesRegistryDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.json")
	raw := []byte(`{"sources":[
		{"name":"Plain","url":"https://plain.test/rss"},
		{"name":"Tuned","url":"https://tuned.test/rss","full_text_min_runes":50}
	]}`)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	registry := NewRegistry(Defaults{
		FetchTimeout:     7 * time.Second,
		FullTextMinRunes: 200,
	}, zerolog.Nop())
	if _, err := registry.LoadCatalog(path); err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	adapter, err := registry.Create("plain")
	if err != nil {
		t.Fatalf("create plain: %v", err)
	}
	plain := adapter.(*RSS)
	if plain.opts.FetchTimeout != 7*time.Second || plain.opts.FullTextMinRunes != 200 {
		t.Fatalf("registry defaults not inherited: %+v", plain.opts)
	}

	adapter, err = registry.Create("tuned")
	if err != nil {
		t.Fatalf("create tuned: %v", err)
	}
	tuned := adapter.(*RSS)
	if tuned.opts.FullTextMinRunes != 50 {
		t.Fatalf("per-entry threshold should win over the default: %+v", tuned.opts)
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Defaults{}, zerolog.Nop())
	if _, err := registry.LoadCatalog(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
