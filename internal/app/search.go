package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/driftnet/internal/cli"
	"horse.fit/driftnet/internal/db"
)

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	limit := fs.Int("limit", 10, "Maximum number of results")
	minScore := fs.Float64("min-score", 0, "Minimum cosine score (default: detector threshold)")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(os.Stderr, "search requires a query, e.g.: driftnet search new model release")
		return 2
	}
	if *limit <= 0 {
		fmt.Fprintln(os.Stderr, "--limit must be positive")
		return 2
	}
	if *minScore < 0 || *minScore > 1 {
		fmt.Fprintln(os.Stderr, "--min-score must be between 0 and 1")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	cfg, logger, err := loadConfigAndLogger(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("search failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	detector, index, err := buildDetector(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("search failed to build dedup stack")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer index.Close()

	hits, err := detector.SearchByText(ctx, query, *limit, float32(*minScore))
	if err != nil {
		logger.Error().Err(err).Msg("search failed")
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		return 1
	}

	ids := make([]int64, 0, len(hits))
	scores := make(map[int64]float32, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.ID)
		scores[hit.ID] = hit.Score
	}

	records, err := pool.ListRecordsByIDs(ctx, ids)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve results: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		type result struct {
			Score  float32   `json:"score"`
			Record db.Record `json:"record"`
		}
		results := make([]result, 0, len(records))
		for _, record := range records {
			results = append(results, result{Score: scores[record.ID], Record: record})
		}
		if err := printJSON(map[string]any{"query": query, "results": results}); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			fmt.Sprintf("%.4f", scores[record.ID]),
			fmt.Sprintf("%d", record.ID),
			truncateForTable(record.Title, 60),
			record.Source,
			formatUTCTimestamp(record.PublishedAt),
		})
	}
	if err := writeTable([]string{"score", "id", "title", "source", "published_at"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
