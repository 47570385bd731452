// Package app implements the driftnet CLI: ingestion runs, retention
// sweeps and the read-only status surface.
package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "run":
		return runPipeline(args[1:])
	case "cleanup":
		return runCleanup(args[1:])
	case "stats":
		return runStats(args[1:])
	case "sources":
		return runSources(args[1:])
	case "search":
		return runSearch(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "driftnet CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  driftnet <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health   Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  run      Ingest sources through the dedup pipeline")
	fmt.Fprintln(os.Stderr, "  cleanup  Remove records older than the retention window")
	fmt.Fprintln(os.Stderr, "  stats    Show corpus totals and per-source counts")
	fmt.Fprintln(os.Stderr, "  sources  List registered sources")
	fmt.Fprintln(os.Stderr, "  search   Find records semantically similar to a query")
	fmt.Fprintln(os.Stderr, "  serve    Start the Echo status server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"driftnet <command> -h\" for command-specific flags.")
}
