package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"DN_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DN_DB_MAX_CONNS" default:"8"`

	QdrantAddr       string `envconfig:"QDRANT_ADDR" default:"127.0.0.1:6334"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"news_records"`

	EmbedEndpoint   string        `envconfig:"EMBED_ENDPOINT" default:"http://127.0.0.1:8844/v1/embeddings"`
	EmbedModel      string        `envconfig:"EMBED_MODEL" default:"text-embedding-3-small"`
	EmbedDimensions int           `envconfig:"EMBED_DIMENSIONS" default:"1536"`
	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"45s"`

	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
	DedupCandidates     int     `envconfig:"DEDUP_CANDIDATES" default:"5"`

	PipelineWorkers int           `envconfig:"PIPELINE_WORKERS" default:"4"`
	FetchTimeout    time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	RetentionDays   int           `envconfig:"RETENTION_DAYS" default:"30"`

	FullTextMinRunes int  `envconfig:"FULLTEXT_MIN_RUNES" default:"0"`
	DetectLanguage   bool `envconfig:"DETECT_LANGUAGE" default:"true"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DN_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DN_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DN_DB_MIN_CONNS (%d) cannot exceed DN_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.QdrantAddr) == "" {
		return fmt.Errorf("QDRANT_ADDR is required")
	}
	if strings.TrimSpace(c.QdrantCollection) == "" {
		return fmt.Errorf("QDRANT_COLLECTION is required")
	}
	if strings.TrimSpace(c.EmbedEndpoint) == "" {
		return fmt.Errorf("EMBED_ENDPOINT is required")
	}
	if c.EmbedDimensions < 1 {
		return fmt.Errorf("EMBED_DIMENSIONS must be >= 1")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.DedupCandidates < 1 {
		return fmt.Errorf("DEDUP_CANDIDATES must be >= 1")
	}
	if c.PipelineWorkers < 1 {
		return fmt.Errorf("PIPELINE_WORKERS must be >= 1")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be >= 1")
	}
	return nil
}
