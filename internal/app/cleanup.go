package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/driftnet/internal/cli"
	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/normalize"
	"horse.fit/driftnet/internal/pipeline"
	"horse.fit/driftnet/internal/source"
)

func runCleanup(args []string) int {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	days := fs.Int("days", 0, "Retention window in days (default: RETENTION_DAYS)")
	timeout := fs.Duration("timeout", 10*time.Minute, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "cleanup does not accept positional arguments")
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

	retentionDays := *days
	if retentionDays <= 0 {
		retentionDays = cfg.RetentionDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cleanup failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	index, err := dedupIndex(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cleanup failed to connect to vector index")
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer index.Close()

	// Cleanup never fetches or dedups; the registry and detector stay
	// empty shells.
	svc := pipeline.NewService(
		pool,
		index,
		source.NewRegistry(source.Defaults{}, logger),
		nil,
		normalize.New(logger, false),
		pipeline.Options{},
		logger,
	)

	result, err := svc.CleanupOlderThan(ctx, retentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("retention sweep failed")
		fmt.Fprintf(os.Stderr, "Cleanup failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("deleted %d records older than %d days (%d vector removals failed)\n",
		result.Deleted, retentionDays, result.VectorFailures)
	return 0
}
