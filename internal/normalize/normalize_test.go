package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/source"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"  hello   world ", "hello world"},
		{"line\none\t two", "line one two"},
		{"\n\t  ", ""},
		{"already clean", "already clean"},
	}
	for _, tc := range cases {
		if got := CleanText(tc.in); got != tc.want {
			t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractBody_PreferenceOrder(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"description": "last choice",
		"summary":     "middle choice",
		"content":     "first choice",
	}
	if got := ExtractBody(fields); got != "first choice" {
		t.Fatalf("expected content field to win, got %q", got)
	}

	delete(fields, "content")
	if got := ExtractBody(fields); got != "middle choice" {
		t.Fatalf("expected summary fallback, got %q", got)
	}

	delete(fields, "summary")
	if got := ExtractBody(fields); got != "last choice" {
		t.Fatalf("expected description fallback, got %q", got)
	}
}

func TestExtractBody_SkipsEmptyCandidates(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"content":     "   ",
		"summary":     "",
		"description": "actual  text",
	}
	if got := ExtractBody(fields); got != "actual text" {
		t.Fatalf("expected non-empty fallback, got %q", got)
	}
}

func TestExtractBody_UnwrapsShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		fields map[string]any
		want   string
	}{
		{"list of strings", map[string]any{"content": []string{"first", "second"}}, "first"},
		{"list of any", map[string]any{"content": []any{"wrapped  body"}}, "wrapped body"},
		{"map with value", map[string]any{"content": map[string]any{"value": "inner text"}}, "inner text"},
		{"nested list map", map[string]any{"content": []any{map[string]any{"value": "deep"}}}, "deep"},
		{"empty list", map[string]any{"content": []any{}}, ""},
		{"unsupported type", map[string]any{"content": 42}, ""},
		{"nil fields", nil, ""},
	}
	for _, tc := range cases {
		if got := ExtractBody(tc.fields); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestParseTime(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-01T10:30:00Z", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2026-03-01T12:30:00+02:00", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2026-03-01T10:30:00", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"Sun, 01 Mar 2026 10:30:00 +0000", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"Sun, 01 Mar 2026 10:30:00 UTC", time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseTime(tc.in)
		if !ok {
			t.Fatalf("ParseTime(%q) did not match any layout", tc.in)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTime(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "  ", "yesterday", "2026/03/01"} {
		if _, ok := ParseTime(bad); ok {
			t.Fatalf("ParseTime(%q) should not match", bad)
		}
	}
}

func TestNormalize_FallsBackToNowForBadTimestamp(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	n := New(zerolog.Nop(), false)
	n.now = func() time.Time { return fixed }

	result, err := n.Normalize(source.RawRecord{
		Title:     "A headline",
		Link:      "https://example.com/a",
		Published: "not a date",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.PublishedAt.Equal(fixed) {
		t.Fatalf("expected current-time fallback, got %v", result.PublishedAt)
	}
}

func TestNormalize_DropsInvalidRecords(t *testing.T) {
	t.Parallel()

	n := New(zerolog.Nop(), false)

	cases := []source.RawRecord{
		{Title: "", Link: "https://example.com"},
		{Title: "   ", Link: "https://example.com"},
		{Title: "Headline", Link: ""},
		{Title: "Headline", Link: "   "},
	}
	for i, raw := range cases {
		if _, err := n.Normalize(raw); !errors.Is(err, ErrInvalidRecord) {
			t.Fatalf("case %d: expected ErrInvalidRecord, got %v", i, err)
		}
	}
}

func TestNormalize_CleansFields(t *testing.T) {
	t.Parallel()

	n := New(zerolog.Nop(), false)

	result, err := n.Normalize(source.RawRecord{
		Title:     "  Spaced\n  Headline ",
		Link:      " https://example.com/x ",
		Author:    " Jane  Doe ",
		Published: "2026-03-01T10:30:00Z",
		Fields:    map[string]any{"summary": " body   text "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Title != "Spaced Headline" {
		t.Fatalf("title not cleaned: %q", result.Title)
	}
	if result.URL != "https://example.com/x" {
		t.Fatalf("url not trimmed: %q", result.URL)
	}
	if result.Author != "Jane Doe" {
		t.Fatalf("author not cleaned: %q", result.Author)
	}
	if result.Content != "body text" {
		t.Fatalf("body not extracted: %q", result.Content)
	}
}
