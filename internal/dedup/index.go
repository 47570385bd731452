package dedup

import (
	"context"
	"time"
)

// Metadata is the payload stored alongside a vector so search hits can
// be explained without a round trip to the relational store.
type Metadata struct {
	Title       string
	Source      string
	URL         string
	PublishedAt time.Time
	ContentHash string
}

// Hit is one similarity search result.
type Hit struct {
	ID    int64
	Score float32
}

// VectorIndex stores record embeddings and answers nearest-neighbour
// queries. Point IDs are record IDs from the relational store.
type VectorIndex interface {
	Upsert(ctx context.Context, id int64, vector []float32, meta Metadata) error
	Query(ctx context.Context, vector []float32, k int, minScore float32) ([]Hit, error)
	Delete(ctx context.Context, id int64) error
}
