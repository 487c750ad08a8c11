package item

import (
	"context"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// Repository defines the storage contract for found items.
type Repository interface {
	List(ctx context.Context) ([]domitem.Item, error)
	Get(ctx context.Context, id string) (domitem.Item, error)
	Append(ctx context.Context, it domitem.Item) error
	Patch(ctx context.Context, id string, p patch.Patch) (domitem.Item, error)
	Remove(ctx context.Context, id string) error
}

// Annotator labels uploaded images.
type Annotator interface {
	Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error)
}

// Vectorizer returns an image embedding or nil when none is available.
type Vectorizer interface {
	Vector(ctx context.Context, img image.Ref) []float32
}
