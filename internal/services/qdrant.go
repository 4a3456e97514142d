package services

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// qdrantRanker scores a batch by loading its resume vectors into a shared
// collection under a throwaway batch tag and querying with the job vector.
type qdrantRanker struct {
	client         *qdrant.Client
	collectionName string
	vectorSize     uint64
	log            *zap.Logger
}

// NewQdrantRanker connects and makes sure the scoring collection exists.
func NewQdrantRanker(ctx context.Context, urlStr, apiKey, collectionName string, vectorSize int, log *zap.Logger) (Ranker, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsed.Hostname()
	useTLS := parsed.Scheme == "https"

	// gRPC port
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	ranker := &qdrantRanker{
		client:         client,
		collectionName: collectionName,
		vectorSize:     uint64(vectorSize),
		log:            log,
	}

	if err := ranker.initCollection(ctx); err != nil {
		return nil, err
	}

	return ranker, nil
}

func (q *qdrantRanker) initCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		q.log.Info("✅ Collection already exists", zap.String("collection", q.collectionName))
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("✅ Qdrant collection created", zap.String("collection", q.collectionName))
	return nil
}

// Score implements Ranker.
func (q *qdrantRanker) Score(ctx context.Context, query []float32, candidates [][]float32) ([]float64, error) {
	scores := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return scores, nil
	}

	batchTag := uuid.New().String()

	points := make([]*qdrant.PointStruct, 0, len(candidates))
	for i, candidate := range candidates {
		if len(candidate) != len(query) {
			return nil, fmt.Errorf("%w: query has %d dimensions, candidate %d has %d",
				ErrDimensionMismatch, len(query), i, len(candidate))
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.New().String()),
			Vectors: qdrant.NewVectors(candidate...),
			Payload: qdrant.NewValueMap(map[string]any{
				"batch_id": batchTag,
				"index":    int64(i),
			}),
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert points: %w", err)
	}
	defer q.deleteBatch(batchTag)

	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("batch_id", batchTag),
		},
	}

	found, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(query...),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(len(candidates))),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	for _, point := range found {
		index, ok := point.Payload["index"]
		if !ok {
			continue
		}
		i := int(index.GetIntegerValue())
		if i >= 0 && i < len(scores) {
			scores[i] = float64(point.Score)
		}
	}

	return scores, nil
}

// deleteBatch runs on its own context so cancelled requests still clean up.
func (q *qdrantRanker) deleteBatch(batchTag string) {
	_, err := q.client.Delete(context.Background(), &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{
						qdrant.NewMatch("batch_id", batchTag),
					},
				},
			},
		},
	})
	if err != nil {
		q.log.Warn("⚠️  Failed to delete scored points", zap.String("batch_id", batchTag), zap.Error(err))
	}
}
