package match

import (
	"context"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// Annotator labels candidate images on demand (used by FindMatchesWithLookup).
type Annotator interface {
	Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error)
}
