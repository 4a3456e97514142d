package services

import (
	"context"
	"fmt"
	"math"
)

// Ranker scores every candidate vector against the query. The returned
// slice is index-aligned with candidates.
type Ranker interface {
	Score(ctx context.Context, query []float32, candidates [][]float32) ([]float64, error)
}

type cosineRanker struct{}

func NewCosineRanker() Ranker {
	return &cosineRanker{}
}

// Score implements Ranker.
func (r *cosineRanker) Score(ctx context.Context, query []float32, candidates [][]float32) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, candidate := range candidates {
		if len(candidate) != len(query) {
			return nil, fmt.Errorf("%w: query has %d dimensions, candidate %d has %d",
				ErrDimensionMismatch, len(query), i, len(candidate))
		}
		scores[i] = CosineSimilarity(query, candidate)
	}
	return scores, nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either vector has zero norm.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ToPercentage rescales a cosine similarity to [0, 100] with two decimals.
// Negative and NaN similarities score 0.
func ToPercentage(similarity float64) float64 {
	if math.IsNaN(similarity) || similarity < 0 {
		return 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return math.Round(similarity*100*100) / 100
}
