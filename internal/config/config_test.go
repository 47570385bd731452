package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	return Config{
		Environment:         "local",
		LogLevel:            "info",
		DatabaseURL:         "postgres://localhost:5432/driftnet",
		DBMinConns:          1,
		DBMaxConns:          8,
		QdrantAddr:          "127.0.0.1:6334",
		QdrantCollection:    "news_records",
		EmbedEndpoint:       "http://127.0.0.1:8844/v1/embeddings",
		EmbedModel:          "text-embedding-3-small",
		EmbedDimensions:     1536,
		SimilarityThreshold: 0.85,
		DedupCandidates:     5,
		PipelineWorkers:     4,
		RetentionDays:       30,
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"missing database url", func(c *Config) { c.DatabaseURL = "  " }, "DATABASE_URL"},
		{"min conns above max", func(c *Config) { c.DBMinConns = 9 }, "DN_DB_MIN_CONNS"},
		{"missing qdrant addr", func(c *Config) { c.QdrantAddr = "" }, "QDRANT_ADDR"},
		{"missing collection", func(c *Config) { c.QdrantCollection = "" }, "QDRANT_COLLECTION"},
		{"missing embed endpoint", func(c *Config) { c.EmbedEndpoint = "" }, "EMBED_ENDPOINT"},
		{"zero dimensions", func(c *Config) { c.EmbedDimensions = 0 }, "EMBED_DIMENSIONS"},
		{"threshold above one", func(c *Config) { c.SimilarityThreshold = 1.2 }, "SIMILARITY_THRESHOLD"},
		{"threshold zero", func(c *Config) { c.SimilarityThreshold = 0 }, "SIMILARITY_THRESHOLD"},
		{"zero candidates", func(c *Config) { c.DedupCandidates = 0 }, "DEDUP_CANDIDATES"},
		{"zero workers", func(c *Config) { c.PipelineWorkers = 0 }, "PIPELINE_WORKERS"},
		{"zero retention", func(c *Config) { c.RetentionDays = 0 }, "RETENTION_DAYS"},
	}

	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Fatalf("%s: error %q does not mention %s", tc.name, err.Error(), tc.wantMsg)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/driftnet")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load with defaults failed: %v", err)
	}
	if cfg.EmbedDimensions != 1536 {
		t.Fatalf("unexpected default dimensions: %d", cfg.EmbedDimensions)
	}
	if cfg.SimilarityThreshold != 0.85 {
		t.Fatalf("unexpected default threshold: %v", cfg.SimilarityThreshold)
	}
	if cfg.QdrantCollection != "news_records" {
		t.Fatalf("unexpected default collection: %q", cfg.QdrantCollection)
	}
	if cfg.RetentionDays != 30 {
		t.Fatalf("unexpected default retention: %d", cfg.RetentionDays)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}
