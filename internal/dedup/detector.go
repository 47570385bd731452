package dedup

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/driftnet/internal/db"
)

// maxCanonicalHops bounds duplicate-chain resolution so a corrupted
// chain cannot loop forever.
const maxCanonicalHops = 32

// Method labels how a duplicate was identified.
type Method string

const (
	MethodHash     Method = "hash"
	MethodSemantic Method = "semantic"
)

// Decision is the outcome of checking one candidate record.
type Decision struct {
	IsDuplicate bool
	CanonicalID *int64
	Method      Method
	Score       float32

	// Vector is the embedding computed during the semantic check. Nil
	// when the hash tier short-circuited or the embedding service was
	// unavailable; callers must not index the record in that case.
	Vector []float32
}

type recordStore interface {
	FindByContentHash(ctx context.Context, hash string) (*db.Record, error)
	GetRecord(ctx context.Context, id int64) (*db.Record, error)
}

// Detector runs the two-tier duplicate check. The hash tier is
// authoritative and cheap; the semantic tier only runs when the hash
// tier finds nothing.
type Detector struct {
	store     recordStore
	embedder  Embedder
	index     VectorIndex
	threshold float32
	k         int
	logger    zerolog.Logger
}

// Options for NewDetector. Threshold is the minimum cosine score to
// call two records duplicates; Candidates is how many neighbours the
// semantic tier examines.
type Options struct {
	Threshold  float32
	Candidates int
}

func NewDetector(store recordStore, embedder Embedder, index VectorIndex, opts Options, logger zerolog.Logger) *Detector {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 0.85
	}
	k := opts.Candidates
	if k <= 0 {
		k = 5
	}
	return &Detector{
		store:     store,
		embedder:  embedder,
		index:     index,
		threshold: threshold,
		k:         k,
		logger:    logger,
	}
}

func (d *Detector) Threshold() float32 { return d.threshold }

// Check classifies a candidate by title and content. The hash tier
// never calls the embedding service; a semantic-tier outage degrades
// to treating the candidate as unique rather than failing the record.
func (d *Detector) Check(ctx context.Context, title, content string) (*Decision, error) {
	hash := db.HashContent(title, content)

	existing, err := d.store.FindByContentHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("hash lookup: %w", err)
	}
	if existing != nil {
		canonical, err := d.resolveCanonical(ctx, existing)
		if err != nil {
			return nil, err
		}
		return &Decision{
			IsDuplicate: true,
			CanonicalID: &canonical,
			Method:      MethodHash,
			Score:       1,
		}, nil
	}

	vector, err := d.embedder.Embed(ctx, title+" "+content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn().Err(err).Msg("embedding unavailable, skipping semantic check")
		return &Decision{}, nil
	}

	hits, err := d.index.Query(ctx, vector, d.k, d.threshold)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn().Err(err).Msg("vector search unavailable, skipping semantic check")
		return &Decision{Vector: vector}, nil
	}

	for _, hit := range hits {
		if hit.Score < d.threshold {
			continue
		}
		match, err := d.store.GetRecord(ctx, hit.ID)
		if err != nil {
			return nil, fmt.Errorf("load semantic match %d: %w", hit.ID, err)
		}
		if match == nil {
			// Index and store drifted apart; the stale point gets
			// cleaned up by retention, not here.
			continue
		}
		canonical, err := d.resolveCanonical(ctx, match)
		if err != nil {
			return nil, err
		}
		return &Decision{
			IsDuplicate: true,
			CanonicalID: &canonical,
			Method:      MethodSemantic,
			Score:       hit.Score,
			Vector:      vector,
		}, nil
	}

	return &Decision{Vector: vector}, nil
}

// SearchByText embeds free text and returns index hits at or above
// minScore. A non-positive minScore falls back to the detector
// threshold.
func (d *Detector) SearchByText(ctx context.Context, text string, k int, minScore float32) ([]Hit, error) {
	if k <= 0 {
		k = d.k
	}
	if minScore <= 0 {
		minScore = d.threshold
	}

	vector, err := d.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query text: %w", err)
	}
	hits, err := d.index.Query(ctx, vector, k, minScore)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return hits, nil
}

// resolveCanonical walks duplicate_of links until it reaches a record
// that is not itself a duplicate, so new duplicates always point at the
// canonical original instead of forming chains.
func (d *Detector) resolveCanonical(ctx context.Context, record *db.Record) (int64, error) {
	current := record
	visited := map[int64]struct{}{current.ID: {}}

	for hop := 0; hop < maxCanonicalHops; hop++ {
		if !current.IsDuplicate || current.DuplicateOf == nil {
			return current.ID, nil
		}

		nextID := *current.DuplicateOf
		if _, seen := visited[nextID]; seen {
			d.logger.Error().Int64("record_id", record.ID).Int64("cycle_at", nextID).Msg("duplicate chain contains a cycle")
			return current.ID, nil
		}
		visited[nextID] = struct{}{}

		next, err := d.store.GetRecord(ctx, nextID)
		if err != nil {
			return 0, fmt.Errorf("resolve canonical for %d: %w", record.ID, err)
		}
		if next == nil {
			// Dangling pointer after a cleanup; the chain head is the
			// best canonical we have.
			return current.ID, nil
		}
		current = next
	}

	d.logger.Warn().Int64("record_id", record.ID).Msg("duplicate chain exceeded hop limit")
	return current.ID, nil
}
