package domain

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// Embedder is the shared image vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, img image.Ref) (EmbeddingResult, error)
}

// HealthChecker verifies collaborator availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries the embedding vector and token usage through the decorator chain.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// DimensionEmbedder is a domain decorator that enforces a fixed vector dimensionality.
// Vectors from different models are not comparable, so a mismatch is a provider error.
type DimensionEmbedder struct {
	inner      Embedder
	dimensions int
}

// NewDimensionEmbedder creates a decorator that rejects vectors whose length differs from dimensions.
// dimensions <= 0 disables the check.
func NewDimensionEmbedder(inner Embedder, dimensions int) *DimensionEmbedder {
	return &DimensionEmbedder{inner: inner, dimensions: dimensions}
}

// Embed delegates to the inner embedder and validates the vector length.
func (e *DimensionEmbedder) Embed(ctx context.Context, img image.Ref) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, img)
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("dimension embed: %w", err)
	}
	if e.dimensions > 0 && len(result.Embedding) != e.dimensions {
		return EmbeddingResult{}, fmt.Errorf("expected %d dimensions, got %d: %w",
			e.dimensions, len(result.Embedding), ErrEmbeddingProviderError)
	}
	return result, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (e *DimensionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
