package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/driftnet/internal/cli"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "stats does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	stats, err := pool.QueryCorpusStats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query corpus stats: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(stats.Sources)+1)
	for _, row := range stats.Sources {
		rows = append(rows, []string{
			row.Source,
			fmt.Sprintf("%d", row.Total),
			fmt.Sprintf("%d", row.Unique),
			fmt.Sprintf("%d", row.Total-row.Unique),
		})
	}
	rows = append(rows, []string{
		"TOTAL",
		fmt.Sprintf("%d", stats.TotalRecords),
		fmt.Sprintf("%d", stats.UniqueRecords),
		fmt.Sprintf("%d", stats.Duplicates),
	})

	if err := writeTable([]string{"source", "total", "unique", "duplicates"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	fmt.Printf("\nduplicate_rate=%.2f%%\n", stats.DuplicateRate)
	return 0
}
