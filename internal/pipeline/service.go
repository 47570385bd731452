// Package pipeline orchestrates one ingestion run: fetch from each
// source, normalize, dedup, persist, index.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/db"
	"horse.fit/driftnet/internal/dedup"
	"horse.fit/driftnet/internal/globaltime"
	"horse.fit/driftnet/internal/normalize"
	"horse.fit/driftnet/internal/source"
)

type detector interface {
	Check(ctx context.Context, title, content string) (*dedup.Decision, error)
}

// RunResult summarizes one pipeline run. PerSource maps registry keys
// to how many new canonical records that source produced; a failed
// source contributes zero rather than aborting the run.
type RunResult struct {
	PerSource  map[string]int
	Fetched    int
	Stored     int
	Duplicates int
	Skipped    int
	Failed     int
}

// Total is the sum of new canonical records across sources.
func (r RunResult) Total() int {
	total := 0
	for _, n := range r.PerSource {
		total += n
	}
	return total
}

// Options tunes a pipeline service.
type Options struct {
	// Workers bounds concurrent source fetches. Zero means 4.
	Workers int
}

// Service wires the registry, normalizer, detector, store and index
// into runnable ingestion.
type Service struct {
	store      Store
	index      dedup.VectorIndex
	registry   *source.Registry
	detector   detector
	normalizer *normalize.Normalizer
	workers    int
	logger     zerolog.Logger
}

// Store is the relational persistence the pipeline needs, satisfied by
// *db.Pool.
type Store interface {
	ExistsByURL(ctx context.Context, url string) (bool, error)
	InsertRecord(ctx context.Context, record *db.Record) error
	SetRecordEmbedding(ctx context.Context, id int64, embedding []float32) error
	ListRecordIDsOlderThan(ctx context.Context, cutoff time.Time) ([]int64, error)
	DeleteRecord(ctx context.Context, id int64) error
}

func NewService(
	store Store,
	index dedup.VectorIndex,
	registry *source.Registry,
	det detector,
	normalizer *normalize.Normalizer,
	opts Options,
	logger zerolog.Logger,
) *Service {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Service{
		store:      store,
		index:      index,
		registry:   registry,
		detector:   det,
		normalizer: normalizer,
		workers:    workers,
		logger:     logger,
	}
}

// Run ingests the named sources. An empty list means every registered
// source. Source failures are isolated: the failing source logs and
// reports zero while the others proceed.
func (s *Service) Run(ctx context.Context, sources []string) (*RunResult, error) {
	if len(sources) == 0 {
		sources = s.registry.Names()
	}

	result := &RunResult{PerSource: make(map[string]int, len(sources))}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	sem := make(chan struct{}, s.workers)

	for _, name := range sources {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(name string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				result.PerSource[name] = 0
				mu.Unlock()
				return
			}

			stats := s.runSource(ctx, name)

			mu.Lock()
			result.PerSource[name] = stats.stored
			result.Fetched += stats.fetched
			result.Stored += stats.stored
			result.Duplicates += stats.duplicates
			result.Skipped += stats.skipped
			result.Failed += stats.failed
			mu.Unlock()
		}(name)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return result, err
	}

	s.logger.Info().
		Int("fetched", result.Fetched).
		Int("stored", result.Stored).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("pipeline run complete")
	return result, nil
}

type sourceStats struct {
	fetched    int
	stored     int
	duplicates int
	skipped    int
	failed     int
}

func (s *Service) runSource(ctx context.Context, name string) sourceStats {
	var stats sourceStats

	logger := s.logger.With().Str("source", name).Logger()

	adapter, err := s.registry.Create(name)
	if err != nil {
		logger.Error().Err(err).Msg("source unavailable")
		return stats
	}

	records, err := adapter.Fetch(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("fetch failed")
		return stats
	}
	stats.fetched = len(records)

	for _, raw := range records {
		if ctx.Err() != nil {
			return stats
		}

		outcome, err := s.ingestOne(ctx, adapter.Name(), raw)
		if err != nil {
			stats.failed++
			logger.Warn().Err(err).Str("url", raw.Link).Msg("record failed")
			continue
		}

		switch outcome {
		case outcomeStored:
			stats.stored++
		case outcomeDuplicate:
			stats.duplicates++
		case outcomeSkipped:
			stats.skipped++
		}
	}

	logger.Info().
		Int("fetched", stats.fetched).
		Int("stored", stats.stored).
		Int("duplicates", stats.duplicates).
		Int("skipped", stats.skipped).
		Int("failed", stats.failed).
		Msg("source ingested")
	return stats
}

type ingestOutcome int

const (
	outcomeStored ingestOutcome = iota
	outcomeDuplicate
	outcomeSkipped
)

// ingestOne takes a raw entry through normalize, dedup and persistence.
// Duplicates are stored flagged; only canonical records are indexed,
// and the embedding column is set only after the index accepted the
// vector.
func (s *Service) ingestOne(ctx context.Context, sourceName string, raw source.RawRecord) (ingestOutcome, error) {
	normalized, err := s.normalizer.Normalize(raw)
	if errors.Is(err, normalize.ErrInvalidRecord) {
		return outcomeSkipped, nil
	}
	if err != nil {
		return 0, fmt.Errorf("normalize: %w", err)
	}

	exists, err := s.store.ExistsByURL(ctx, normalized.URL)
	if err != nil {
		return 0, err
	}
	if exists {
		return outcomeSkipped, nil
	}

	decision, err := s.detector.Check(ctx, normalized.Title, normalized.Content)
	if err != nil {
		return 0, fmt.Errorf("dedup check: %w", err)
	}

	record := db.NewRecord(
		normalized.Title,
		normalized.Content,
		normalized.URL,
		sourceName,
		normalized.PublishedAt,
		globaltime.UTC(),
	)
	record.Author = normalized.Author
	record.Language = normalized.Language
	record.IsDuplicate = decision.IsDuplicate
	record.DuplicateOf = decision.CanonicalID

	if err := s.store.InsertRecord(ctx, &record); err != nil {
		if errors.Is(err, db.ErrDuplicateKey) {
			if decision.IsDuplicate {
				// A byte-identical repeat: the hash tier flagged it and
				// the unique hash constraint keeps the row out.
				return outcomeDuplicate, nil
			}
			// Lost a race with a concurrent insert of the same url or
			// hash; the winner already carries the content.
			return outcomeSkipped, nil
		}
		return 0, err
	}

	if decision.IsDuplicate {
		return outcomeDuplicate, nil
	}

	if decision.Vector != nil {
		if err := s.indexRecord(ctx, &record, decision.Vector); err != nil {
			s.logger.Warn().Err(err).Int64("record_id", record.ID).Msg("record stored but not indexed")
		}
	}
	return outcomeStored, nil
}

func (s *Service) indexRecord(ctx context.Context, record *db.Record, vector []float32) error {
	meta := dedup.Metadata{
		Title:       record.Title,
		Source:      record.Source,
		URL:         record.URL,
		PublishedAt: record.PublishedAt,
		ContentHash: record.ContentHash,
	}
	if err := s.index.Upsert(ctx, record.ID, vector, meta); err != nil {
		return fmt.Errorf("index upsert: %w", err)
	}
	if err := s.store.SetRecordEmbedding(ctx, record.ID, vector); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	return nil
}
