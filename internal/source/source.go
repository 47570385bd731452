// Package source defines feed adapters and the catalog that creates them.
package source

import (
	"context"
)

// RawRecord is one article as an adapter saw it, before normalization.
// Fields holds body candidates under conventional keys (content, summary,
// description); values may be strings, lists, or maps depending on how
// sloppy the upstream feed is.
type RawRecord struct {
	Title     string
	Fields    map[string]any
	Link      string
	Published string
	Author    string
}

// Adapter fetches raw records from one upstream feed. Adapters are
// stateless and instantiated per pipeline run.
type Adapter interface {
	// Name is the human-readable source name stored on records,
	// e.g. "OpenAI Blog".
	Name() string
	Fetch(ctx context.Context) ([]RawRecord, error)
}

// Factory builds a fresh adapter instance.
type Factory func() (Adapter, error)
