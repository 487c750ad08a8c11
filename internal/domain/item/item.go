package item

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Provenance records who submitted a found item.
type Provenance string

const (
	// SavedByPeer marks an item uploaded by another user.
	SavedByPeer Provenance = "peer"
	// SavedByDesk marks an item held by a lost & found desk.
	SavedByDesk Provenance = "desk"
)

// Valid reports whether p is a known provenance.
func (p Provenance) Valid() bool { return p == SavedByPeer || p == SavedByDesk }

// Fields are the descriptive attributes supplied at ingestion.
type Fields struct {
	Title        string
	Image        image.Ref
	Labels       []string
	Description  string
	Location     string
	DeskLocation string
	SavedBy      Provenance
}

// Item is a found item that lost-item queries are matched against (immutable value object).
type Item struct {
	id        string
	fields    Fields
	embedding []float32
	createdAt time.Time
}

// New validates and creates an Item. An empty SavedBy defaults to peer.
func New(id string, f Fields, createdAt time.Time) (Item, error) {
	if id == "" {
		return Item{}, fmt.Errorf("item ID is required")
	}
	if len(id) > 128 {
		return Item{}, fmt.Errorf("item ID too long (max 128)")
	}
	if !idRegex.MatchString(id) {
		return Item{}, fmt.Errorf("item ID must be alphanumeric with underscores and hyphens")
	}
	if f.Title == "" {
		return Item{}, fmt.Errorf("title is required")
	}
	if len(f.Description) > patch.MaxDescriptionSize {
		return Item{}, fmt.Errorf("description too large (max %d bytes)", patch.MaxDescriptionSize)
	}
	if f.SavedBy == "" {
		f.SavedBy = SavedByPeer
	}
	if !f.SavedBy.Valid() {
		return Item{}, fmt.Errorf("saved_by must be %q or %q, got %q", SavedByPeer, SavedByDesk, f.SavedBy)
	}
	f.Labels = cloneStrings(f.Labels)
	return Item{id: id, fields: f, createdAt: createdAt}, nil
}

// Reconstruct creates an Item without validation (storage hydration).
func Reconstruct(id string, f Fields, embedding []float32, createdAt time.Time) Item {
	return Item{id: id, fields: f, embedding: embedding, createdAt: createdAt}
}

// ID returns the item identifier.
func (i *Item) ID() string { return i.id }

// Title returns the item title.
func (i *Item) Title() string { return i.fields.Title }

// Image returns the image reference, empty when the item has no photo.
func (i *Item) Image() image.Ref { return i.fields.Image }

// HasImage reports whether the item carries an image.
func (i *Item) HasImage() bool { return !i.fields.Image.IsEmpty() }

// Labels returns the vision labels recorded at ingestion.
func (i *Item) Labels() []string { return i.fields.Labels }

// Embedding returns the image embedding, nil when not computed.
func (i *Item) Embedding() []float32 { return i.embedding }

// Description returns the free-text description.
func (i *Item) Description() string { return i.fields.Description }

// Location returns where the item was found.
func (i *Item) Location() string { return i.fields.Location }

// DeskLocation returns the desk currently holding the item.
func (i *Item) DeskLocation() string { return i.fields.DeskLocation }

// SavedBy returns the item provenance.
func (i *Item) SavedBy() Provenance { return i.fields.SavedBy }

// CreatedAt returns the ingestion time.
func (i *Item) CreatedAt() time.Time { return i.createdAt }

// Fields returns a copy of the descriptive attributes.
func (i *Item) Fields() Fields {
	f := i.fields
	f.Labels = cloneStrings(f.Labels)
	return f
}

// Apply returns a copy with the patch applied.
// Replacing the image drops the embedding. Attaching an embedding requires an image,
// and an embedding computed from another image is ignored.
func (i *Item) Apply(p patch.Patch) (Item, error) {
	out := Item{id: i.id, fields: i.Fields(), embedding: i.embedding, createdAt: i.createdAt}

	if v := p.Title(); v != nil {
		out.fields.Title = *v
	}
	if v := p.Description(); v != nil {
		out.fields.Description = *v
	}
	if v := p.Location(); v != nil {
		out.fields.Location = *v
	}
	if v := p.DeskLocation(); v != nil {
		out.fields.DeskLocation = *v
	}
	if v := p.Labels(); v != nil {
		out.fields.Labels = cloneStrings(v)
	}
	if v := p.Image(); v != nil && *v != out.fields.Image {
		out.fields.Image = *v
		out.embedding = nil
	}
	if p.HasEmbedding() {
		if out.fields.Image.IsEmpty() {
			return Item{}, fmt.Errorf("cannot attach embedding to item %q without image", i.id)
		}
		if p.EmbeddingImage() == out.fields.Image {
			out.embedding = p.Embedding()
		}
	}
	return out, nil
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}
