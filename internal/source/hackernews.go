package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"horse.fit/driftnet/internal/ratelimit"
)

const (
	hackerNewsBaseURL  = "https://hacker-news.firebaseio.com/v0"
	hackerNewsMaxItems = 30
)

// HackerNews pulls top stories from the Firebase API. The API has no
// single-call feed, so each story is fetched individually behind a
// sliding-window limiter.
type HackerNews struct {
	baseURL  string
	maxItems int
	limiter  *ratelimit.Limiter
	client   *http.Client
}

type hnStory struct {
	ID    int64  `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
	By    string `json:"by"`
	Text  string `json:"text"`
	Time  int64  `json:"time"`
}

// NewHackerNews builds the Hacker News adapter. A nil limiter disables
// request pacing, which is only sensible in tests; a non-positive
// timeout means 15 seconds.
func NewHackerNews(limiter *ratelimit.Limiter, fetchTimeout time.Duration) *HackerNews {
	if fetchTimeout <= 0 {
		fetchTimeout = 15 * time.Second
	}
	return &HackerNews{
		baseURL:  hackerNewsBaseURL,
		maxItems: hackerNewsMaxItems,
		limiter:  limiter,
		client:   &http.Client{Timeout: fetchTimeout},
	}
}

func (h *HackerNews) Name() string { return "Hacker News" }

func (h *HackerNews) Fetch(ctx context.Context) ([]RawRecord, error) {
	var ids []int64
	if err := h.getJSON(ctx, h.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}

	records := make([]RawRecord, 0, h.maxItems)
	for _, id := range ids {
		if len(records) >= h.maxItems {
			break
		}

		var story hnStory
		if err := h.getJSON(ctx, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), &story); err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			continue
		}
		if story.Type != "story" || story.Title == "" || story.URL == "" {
			continue
		}

		records = append(records, RawRecord{
			Title: story.Title,
			Link:  story.URL,
			Fields: map[string]any{
				"description": story.Text,
			},
			Published: time.Unix(story.Time, 0).UTC().Format(time.RFC3339),
			Author:    story.By,
		})
	}

	return records, nil
}

func (h *HackerNews) getJSON(ctx context.Context, url string, out any) error {
	if err := waitForSlot(ctx, h.limiter); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
