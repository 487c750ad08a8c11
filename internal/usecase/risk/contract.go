package risk

import (
	"context"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// Annotator confirms item category from its image when keyword evidence is missing.
type Annotator interface {
	Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error)
}
