package embedding

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// FailClosed turns embedding failures into "no embedding" so scoring proceeds
// on the remaining signals.
type FailClosed struct {
	inner  domain.Embedder
	logger *zap.Logger
}

// NewFailClosed wraps inner. A nil inner disables embeddings entirely.
func NewFailClosed(inner domain.Embedder, logger *zap.Logger) *FailClosed {
	return &FailClosed{inner: inner, logger: logger}
}

// Vector returns the image embedding, or nil when the image is empty or the provider fails.
func (f *FailClosed) Vector(ctx context.Context, img image.Ref) []float32 {
	if f == nil || f.inner == nil || img.IsEmpty() {
		return nil
	}
	result, err := f.inner.Embed(ctx, img)
	if err != nil {
		f.logger.Warn("Embedding unavailable, continuing without it", zap.Error(err))
		return nil
	}
	return result.Embedding
}
