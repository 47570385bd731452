package reader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCleanText(t *testing.T) {
	t.Parallel()

	got := CleanText("  First   line \r\n\r\n Second\tline  \n\n\n Third ")
	want := "First line\n\nSecond line\n\nThird"
	if got != want {
		t.Fatalf("unexpected cleaned text: got %q want %q", got, want)
	}

	if got := CleanText("   \n \r\n "); got != "" {
		t.Fatalf("expected empty result for whitespace input, got %q", got)
	}
}

func TestFetchText_PlainText(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("  model  release   notes \n\n details "))
	}))
	defer srv.Close()

	text, err := FetchText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected fetch error: %v", err)
	}
	if !strings.Contains(text, "model release notes") {
		t.Fatalf("unexpected extracted text: %q", text)
	}
}

func TestFetchText_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	if _, err := FetchText(context.Background(), srv.URL); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}

func TestFetchText_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := FetchText(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank URL")
	}
}
