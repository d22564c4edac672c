package ai

import (
	"context"
	"math"
)

// Embedder turns free text into a vector for similarity lookups.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ChatModel produces a completion for a prompt.
type ChatModel interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CosineSimilarity scores two vectors in [-1, 1]. Mismatched or zero-length
// vectors score zero.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
