package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/dedup"
)

type fakeStore struct {
	stats      *db.CorpusStats
	statsErr   error
	recent     []db.Record
	recentErr  error
	byIDs      map[int64]db.Record
	lastLimit  int
	lastUnique bool
}

func (s *fakeStore) QueryCorpusStats(context.Context) (*db.CorpusStats, error) {
	return s.stats, s.statsErr
}

func (s *fakeStore) ListRecentRecords(_ context.Context, limit int, uniqueOnly bool) ([]db.Record, error) {
	s.lastLimit = limit
	s.lastUnique = uniqueOnly
	return s.recent, s.recentErr
}

func (s *fakeStore) ListRecordsByIDs(_ context.Context, ids []int64) ([]db.Record, error) {
	records := make([]db.Record, 0, len(ids))
	for _, id := range ids {
		if record, ok := s.byIDs[id]; ok {
			records = append(records, record)
		}
	}
	return records, nil
}

type fakeSearcher struct {
	hits []dedup.Hit
	err  error
}

func (f *fakeSearcher) SearchByText(context.Context, string, int, float32) ([]dedup.Hit, error) {
	return f.hits, f.err
}

func doRequest(t *testing.T, store Store, searcher Searcher, target string) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	server := NewServer(store, searcher, zerolog.Nop(), Options{})
	e := server.buildEcho()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body jsendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec, body
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	rec, body := doRequest(t, &fakeStore{}, &fakeSearcher{}, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if body.Status != "success" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHandleStats(t *testing.T) {
	t.Parallel()

	store := &fakeStore{stats: &db.CorpusStats{
		TotalRecords:  10,
		UniqueRecords: 8,
		Duplicates:    2,
		DuplicateRate: 20,
	}}

	rec, body := doRequest(t, store, &fakeSearcher{}, "/api/stats")
	if rec.Code != http.StatusOK || body.Status != "success" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}

	data, ok := body.Data.(map[string]any)
	if !ok {
		t.Fatalf("unexpected data shape: %T", body.Data)
	}
	if data["total_records"].(float64) != 10 {
		t.Fatalf("unexpected totals: %v", data)
	}
}

func TestHandleStats_StoreFailure(t *testing.T) {
	t.Parallel()

	store := &fakeStore{statsErr: errors.New("down")}
	rec, body := doRequest(t, store, &fakeSearcher{}, "/api/stats")
	if rec.Code != http.StatusInternalServerError || body.Status != "error" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
}

func TestHandleRecords_LimitHandling(t *testing.T) {
	t.Parallel()

	store := &fakeStore{recent: []db.Record{{ID: 1, Title: "A"}}}

	rec, _ := doRequest(t, store, &fakeSearcher{}, "/api/records?limit=5&unique_only=true")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if store.lastLimit != 5 || !store.lastUnique {
		t.Fatalf("query params not applied: limit=%d unique=%v", store.lastLimit, store.lastUnique)
	}

	rec, _ = doRequest(t, store, &fakeSearcher{}, "/api/records")
	if rec.Code != http.StatusOK || store.lastLimit != defaultRecordLimit {
		t.Fatalf("default limit not applied: %d", store.lastLimit)
	}

	rec, body := doRequest(t, store, &fakeSearcher{}, "/api/records?limit=-1")
	if rec.Code != http.StatusBadRequest || body.Status != "fail" {
		t.Fatalf("negative limit should fail: %d %+v", rec.Code, body)
	}

	rec, _ = doRequest(t, store, &fakeSearcher{}, "/api/records?limit=10000")
	if store.lastLimit != maxRecordLimit {
		t.Fatalf("limit should be capped at %d, got %d", maxRecordLimit, store.lastLimit)
	}
	_ = rec
}

func TestHandleSearch(t *testing.T) {
	t.Parallel()

	store := &fakeStore{byIDs: map[int64]db.Record{
		4: {ID: 4, Title: "First"},
		5: {ID: 5, Title: "Second"},
	}}
	searcher := &fakeSearcher{hits: []dedup.Hit{{ID: 5, Score: 0.87}, {ID: 4, Score: 0.92}}}

	rec, body := doRequest(t, store, searcher, "/api/search?q=model+release")
	if rec.Code != http.StatusOK || body.Status != "success" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}

	data := body.Data.(map[string]any)
	results := data["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// Ordered by score descending regardless of store order.
	first := results[0].(map[string]any)
	if first["score"].(float64) < results[1].(map[string]any)["score"].(float64) {
		t.Fatalf("results not sorted by score: %v", results)
	}
}

func TestHandleSearch_Validation(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	searcher := &fakeSearcher{}

	rec, body := doRequest(t, store, searcher, "/api/search")
	if rec.Code != http.StatusBadRequest || body.Status != "fail" {
		t.Fatalf("missing q should fail: %d %+v", rec.Code, body)
	}

	rec, _ = doRequest(t, store, searcher, "/api/search?q=x&min_score=1.5")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out-of-range min_score should fail: %d", rec.Code)
	}
}

func TestHandleSearch_SearcherFailure(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{err: errors.New("embedder down")}
	rec, body := doRequest(t, &fakeStore{}, searcher, "/api/search?q=x")
	if rec.Code != http.StatusInternalServerError || body.Status != "error" {
		t.Fatalf("unexpected response: %d %+v", rec.Code, body)
	}
}
