package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"horse.fit/driftnet/internal/cli"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/normalize"
	"horse.fit/driftnet/internal/pipeline"
)

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	sourcesFlag := fs.String("sources", "", "Comma-separated source keys (default: all registered)")
	catalogPath := fs.String("catalog", "", "Path to an extra source catalog JSON file")
	workers := fs.Int("workers", 0, "Concurrent source fetches (default: PIPELINE_WORKERS)")
	timeout := fs.Duration("timeout", 15*time.Minute, "Overall run timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "run does not accept positional arguments")
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
		logger.Error().Err(err).Msg("run failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	detector, index, err := buildDetector(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("run failed to build dedup stack")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer index.Close()

	registry, err := buildRegistry(*catalogPath, cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	pipelineWorkers := *workers
	if pipelineWorkers <= 0 {
		pipelineWorkers = cfg.PipelineWorkers
	}

	svc := pipeline.NewService(
		pool,
		index,
		registry,
		detector,
		normalize.New(logger, cfg.DetectLanguage),
		pipeline.Options{Workers: pipelineWorkers},
		logger,
	)

	result, err := svc.Run(ctx, splitSources(*sourcesFlag))
	if err != nil {
		logger.Error().Err(err).Msg("pipeline run failed")
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	keys := make([]string, 0, len(result.PerSource))
	for key := range result.PerSource {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys)+1)
	for _, key := range keys {
		rows = append(rows, []string{key, fmt.Sprintf("%d", result.PerSource[key])})
	}
	rows = append(rows, []string{"TOTAL", fmt.Sprintf("%d", result.Total())})

	if err := writeTable([]string{"source", "new_records"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	fmt.Printf("\nfetched=%d stored=%d duplicates=%d skipped=%d failed=%d\n",
		result.Fetched, result.Stored, result.Duplicates, result.Skipped, result.Failed)
	return 0
}

func splitSources(raw string) []string {
	var sources []string
	for _, part := range strings.Split(raw, ",") {
		if key := strings.TrimSpace(part); key != "" {
			sources = append(sources, key)
		}
	}
	return sources
}
