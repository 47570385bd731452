package dedup

import (
	"context"
	"fmt"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantIndex implements VectorIndex against a Qdrant collection over
// gRPC. Record IDs are stored as numeric point IDs.
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// NewQdrantIndex dials Qdrant at the given gRPC address.
func NewQdrantIndex(addr, collection string) (*QdrantIndex, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial qdrant %s: %w", addr, err)
	}
	return &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

// EnsureCollection creates the cosine-distance collection if it does
// not exist yet.
func (q *QdrantIndex) EnsureCollection(ctx context.Context, dims int) error {
	list, err := q.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == q.collection {
			return nil
		}
	}

	_, err = q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}
	return nil
}

func (q *QdrantIndex) Upsert(ctx context.Context, id int64, vector []float32, meta Metadata) error {
	payload := map[string]*pb.Value{
		"record_id":    {Kind: &pb.Value_IntegerValue{IntegerValue: id}},
		"title":        {Kind: &pb.Value_StringValue{StringValue: meta.Title}},
		"source":       {Kind: &pb.Value_StringValue{StringValue: meta.Source}},
		"url":          {Kind: &pb.Value_StringValue{StringValue: meta.URL}},
		"content_hash": {Kind: &pb.Value_StringValue{StringValue: meta.ContentHash}},
	}
	if !meta.PublishedAt.IsZero() {
		payload["published_date"] = &pb.Value{
			Kind: &pb.Value_StringValue{StringValue: meta.PublishedAt.UTC().Format(time.RFC3339)},
		}
	}

	wait := true
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: []*pb.PointStruct{{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Num{Num: uint64(id)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vector},
				},
			},
			Payload: payload,
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert point %d: %w", id, err)
	}
	return nil
}

func (q *QdrantIndex) Query(ctx context.Context, vector []float32, k int, minScore float32) ([]Hit, error) {
	req := &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if minScore > 0 {
		threshold := minScore
		req.ScoreThreshold = &threshold
	}

	resp, err := q.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	hits := make([]Hit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		hits = append(hits, Hit{
			ID:    int64(point.GetId().GetNum()),
			Score: point.GetScore(),
		})
	}
	return hits, nil
}

func (q *QdrantIndex) Delete(ctx context.Context, id int64) error {
	wait := true
	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Points{
				Points: &pb.PointsIdsList{
					Ids: []*pb.PointId{{
						PointIdOptions: &pb.PointId_Num{Num: uint64(id)},
					}},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete point %d: %w", id, err)
	}
	return nil
}
