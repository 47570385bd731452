package source

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"

	"horse.fit/driftnet/internal/ratelimit"
	"horse.fit/driftnet/internal/reader"
)

const defaultMaxItems = 50

// RSSOptions tunes one RSS adapter.
type RSSOptions struct {
	// MaxItems caps how many entries a single Fetch returns. Zero means
	// the default of 50.
	MaxItems int

	// FullTextMinRunes triggers a full-text fetch of the article page
	// when the feed body is shorter than this many runes. Zero disables
	// the upgrade.
	FullTextMinRunes int

	// FetchTimeout bounds one feed download. Zero means 30 seconds.
	FetchTimeout time.Duration

	// Limiter, when set, gates feed downloads.
	Limiter *ratelimit.Limiter
}

// RSS pulls records from a single RSS or Atom feed.
type RSS struct {
	name    string
	feedURL string
	opts    RSSOptions
	parser  *gofeed.Parser
}

// NewRSS builds an adapter for one feed URL. The name is the display
// source name stored on records.
func NewRSS(name, feedURL string, opts RSSOptions) *RSS {
	if opts.MaxItems <= 0 {
		opts.MaxItems = defaultMaxItems
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 30 * time.Second
	}
	return &RSS{
		name:    name,
		feedURL: feedURL,
		opts:    opts,
		parser:  gofeed.NewParser(),
	}
}

func (r *RSS) Name() string { return r.name }

func (r *RSS) Fetch(ctx context.Context) ([]RawRecord, error) {
	if err := waitForSlot(ctx, r.opts.Limiter); err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, r.opts.FetchTimeout)
	defer cancel()

	feed, err := r.parser.ParseURLWithContext(r.feedURL, fetchCtx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", r.feedURL, err)
	}

	records := make([]RawRecord, 0, min(len(feed.Items), r.opts.MaxItems))
	for _, item := range feed.Items {
		if len(records) >= r.opts.MaxItems {
			break
		}
		if item == nil {
			continue
		}

		record := RawRecord{
			Title: item.Title,
			Link:  item.Link,
			Fields: map[string]any{
				"content":     item.Content,
				"description": item.Description,
			},
			Published: item.Published,
		}
		if record.Published == "" && item.PublishedParsed != nil {
			record.Published = item.PublishedParsed.UTC().Format(time.RFC3339)
		}
		if item.Author != nil {
			record.Author = item.Author.Name
		}

		r.maybeUpgradeBody(ctx, &record)
		records = append(records, record)
	}

	return records, nil
}

// maybeUpgradeBody replaces a thin feed body with the article page text.
// Failures leave the feed body untouched.
func (r *RSS) maybeUpgradeBody(ctx context.Context, record *RawRecord) {
	if r.opts.FullTextMinRunes <= 0 || record.Link == "" {
		return
	}

	body, _ := record.Fields["content"].(string)
	if body == "" {
		body, _ = record.Fields["description"].(string)
	}
	if utf8.RuneCountInString(body) >= r.opts.FullTextMinRunes {
		return
	}

	text, err := reader.FetchText(ctx, record.Link)
	if err != nil || utf8.RuneCountInString(text) <= utf8.RuneCountInString(body) {
		return
	}
	record.Fields["content"] = text
}

// waitForSlot blocks until the limiter admits a request, sleeping out
// the advertised wait when the window is full.
func waitForSlot(ctx context.Context, limiter *ratelimit.Limiter) error {
	if limiter == nil {
		return nil
	}
	for !limiter.Allow() {
		wait := limiter.WaitTime()
		if wait <= 0 {
			wait = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
