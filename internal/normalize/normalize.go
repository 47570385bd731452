// Package normalize converts loosely-structured raw feed entries into
// canonical title/body/url/timestamp form.
package normalize

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/source"
)

// ErrInvalidRecord reports a raw entry missing its title or link. Such
// entries are dropped, not treated as failures.
var ErrInvalidRecord = errors.New("record is missing a title or link")

// bodyFieldOrder is the preference order for body candidates. Feeds
// disagree about where the article text lives.
var bodyFieldOrder = [...]string{"content", "summary", "description"}

var timeLayouts = [...]string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// Result is a normalized raw entry, ready for dedup and persistence.
type Result struct {
	Title       string
	Content     string
	URL         string
	Author      string
	Language    string
	PublishedAt time.Time
}

// Normalizer cleans raw records. Pure apart from logging and the clock.
type Normalizer struct {
	logger         zerolog.Logger
	detectLanguage bool
	now            func() time.Time
}

func New(logger zerolog.Logger, detectLanguage bool) *Normalizer {
	return &Normalizer{
		logger:         logger,
		detectLanguage: detectLanguage,
		now:            time.Now,
	}
}

// Normalize validates and cleans one raw entry. Returns ErrInvalidRecord
// when title or link is missing after cleaning.
func (n *Normalizer) Normalize(raw source.RawRecord) (*Result, error) {
	title := CleanText(raw.Title)
	url := strings.TrimSpace(raw.Link)
	if title == "" || url == "" {
		return nil, ErrInvalidRecord
	}

	content := ExtractBody(raw.Fields)

	result := &Result{
		Title:       title,
		Content:     content,
		URL:         url,
		Author:      CleanText(raw.Author),
		PublishedAt: n.parseTime(raw.Published),
	}

	if n.detectLanguage {
		result.Language = DetectLanguage(content + " " + title)
	}

	return result, nil
}

func (n *Normalizer) parseTime(raw string) time.Time {
	parsed, ok := ParseTime(raw)
	if ok {
		return parsed
	}
	if strings.TrimSpace(raw) != "" {
		n.logger.Warn().Str("value", raw).Msg("could not parse published timestamp, using current time")
	}
	return n.now().UTC()
}

// ParseTime tries ISO-8601 with offset, bare ISO-8601, then the RFC 1123
// date formats common in RSS. The second return is false when nothing
// matched; callers substitute the current time rather than failing.
func ParseTime(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

// CleanText collapses all runs of whitespace to single spaces.
func CleanText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ExtractBody tries body fields in fixed preference order, defensively
// unwrapping list- and struct-shaped values feed parsers sometimes emit.
func ExtractBody(fields map[string]any) string {
	for _, key := range bodyFieldOrder {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if text := CleanText(unwrapBodyValue(value)); text != "" {
			return text
		}
	}
	return ""
}

func unwrapBodyValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []any:
		if len(v) == 0 {
			return ""
		}
		return unwrapBodyValue(v[0])
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case map[string]any:
		return unwrapBodyValue(v["value"])
	default:
		return ""
	}
}
