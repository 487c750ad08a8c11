package patch

import (
	"fmt"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// MaxDescriptionSize is the maximum allowed description size in bytes.
const MaxDescriptionSize = 4096

// Fields are the user-editable item fields. Nil means unchanged.
type Fields struct {
	Title        *string
	Description  *string
	Location     *string
	DeskLocation *string
	Image        *image.Ref
	Labels       []string
}

// Patch is a partial item update.
type Patch struct {
	fields       Fields
	embedding    []float32
	embeddingOf  image.Ref
	hasEmbedding bool
}

// New validates and creates a Patch. At least one field must be provided.
func New(f Fields) (Patch, error) {
	if f.Title == nil && f.Description == nil && f.Location == nil &&
		f.DeskLocation == nil && f.Image == nil && f.Labels == nil {
		return Patch{}, fmt.Errorf("at least one field must be provided")
	}
	if f.Title != nil && *f.Title == "" {
		return Patch{}, fmt.Errorf("title must not be empty")
	}
	if f.Description != nil && len(*f.Description) > MaxDescriptionSize {
		return Patch{}, fmt.Errorf("description too large (max %d bytes)", MaxDescriptionSize)
	}
	return Patch{fields: f}, nil
}

// ForEmbedding creates a patch that attaches an embedding computed from img.
// It only applies while img is still the item's image.
func ForEmbedding(img image.Ref, vec []float32) Patch {
	return Patch{embedding: vec, embeddingOf: img, hasEmbedding: true}
}

// Title returns the new title, or nil if unchanged.
func (p Patch) Title() *string { return p.fields.Title }

// Description returns the new description, or nil if unchanged.
func (p Patch) Description() *string { return p.fields.Description }

// Location returns the new location, or nil if unchanged.
func (p Patch) Location() *string { return p.fields.Location }

// DeskLocation returns the new desk location, or nil if unchanged.
func (p Patch) DeskLocation() *string { return p.fields.DeskLocation }

// Image returns the new image reference, or nil if unchanged.
func (p Patch) Image() *image.Ref { return p.fields.Image }

// Labels returns the replacement labels, or nil if unchanged.
func (p Patch) Labels() []string { return p.fields.Labels }

// Embedding returns the embedding to attach.
func (p Patch) Embedding() []float32 { return p.embedding }

// EmbeddingImage returns the image the embedding was computed from.
func (p Patch) EmbeddingImage() image.Ref { return p.embeddingOf }

// HasEmbedding reports whether the patch attaches an embedding.
func (p Patch) HasEmbedding() bool { return p.hasEmbedding }

// HasImage reports whether the patch replaces the image.
func (p Patch) HasImage() bool { return p.fields.Image != nil }
