package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/cli"
	"horse.fit/driftnet/internal/config"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/dedup"
	"horse.fit/driftnet/internal/logging"
	"horse.fit/driftnet/internal/source"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func truncateForTable(value string, maxLen int) string {
	trimmed := strings.TrimSpace(value)
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	runes := []rune(trimmed)
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func formatUTCTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

// loadConfigAndLogger applies the --env file, loads configuration and
// builds the logger.
func loadConfigAndLogger(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Logger{}, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// connectReadPool is for commands that only read the store.
func connectReadPool(timeout time.Duration, envLoader *cli.EnvLoader) (context.Context, context.CancelFunc, *db.Pool, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return ctx, cancel, pool, nil
}

// buildDetector wires the embedder, the vector index and the store into
// a detector, ensuring the Qdrant collection exists. The returned index
// must be closed by the caller.
func buildDetector(ctx context.Context, cfg *config.Config, pool *db.Pool, logger zerolog.Logger) (*dedup.Detector, *dedup.QdrantIndex, error) {
	embedder, err := dedup.NewHTTPEmbedder(dedup.HTTPEmbedderOptions{
		Endpoint:   cfg.EmbedEndpoint,
		Model:      cfg.EmbedModel,
		Dimensions: cfg.EmbedDimensions,
		Timeout:    cfg.EmbedTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build embedder: %w", err)
	}

	index, err := dedup.NewQdrantIndex(cfg.QdrantAddr, cfg.QdrantCollection)
	if err != nil {
		return nil, nil, fmt.Errorf("connect qdrant: %w", err)
	}
	if err := index.EnsureCollection(ctx, cfg.EmbedDimensions); err != nil {
		_ = index.Close()
		return nil, nil, fmt.Errorf("ensure collection: %w", err)
	}

	detector := dedup.NewDetector(pool, embedder, index, dedup.Options{
		Threshold:  float32(cfg.SimilarityThreshold),
		Candidates: cfg.DedupCandidates,
	}, logger)
	return detector, index, nil
}

// dedupIndex connects the vector index alone, for commands that never
// embed anything.
func dedupIndex(ctx context.Context, cfg *config.Config) (*dedup.QdrantIndex, error) {
	index, err := dedup.NewQdrantIndex(cfg.QdrantAddr, cfg.QdrantCollection)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	if err := index.EnsureCollection(ctx, cfg.EmbedDimensions); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}
	return index, nil
}

// buildRegistry discovers the built-in sources and layers an optional
// catalog file on top. Fetch tuning from the config reaches every
// adapter the registry constructs.
func buildRegistry(catalogPath string, cfg *config.Config, logger zerolog.Logger) (*source.Registry, error) {
	registry := source.NewRegistry(source.Defaults{
		FetchTimeout:     cfg.FetchTimeout,
		FullTextMinRunes: cfg.FullTextMinRunes,
	}, logger)
	registry.Discover()

	if strings.TrimSpace(catalogPath) != "" {
		if _, err := registry.LoadCatalog(catalogPath); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
