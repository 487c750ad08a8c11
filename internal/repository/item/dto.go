package item

import (
	"time"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
)

// itemDTO is the stored JSON shape of an item.
type itemDTO struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	Labels       []string  `json:"labels"`
	Embedding    []float32 `json:"embedding,omitempty"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	DeskLocation string    `json:"deskLocation,omitempty"`
	SavedBy      string    `json:"savedBy,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

func toDTO(it *domitem.Item) itemDTO {
	return itemDTO{
		ID:           it.ID(),
		Title:        it.Title(),
		ImageURL:     string(it.Image()),
		Labels:       it.Labels(),
		Embedding:    it.Embedding(),
		Description:  it.Description(),
		Location:     it.Location(),
		DeskLocation: it.DeskLocation(),
		SavedBy:      string(it.SavedBy()),
		Timestamp:    it.CreatedAt(),
	}
}

func fromDTO(d *itemDTO) domitem.Item {
	savedBy := domitem.Provenance(d.SavedBy)
	if savedBy == "" {
		savedBy = domitem.SavedByPeer
	}
	return domitem.Reconstruct(d.ID, domitem.Fields{
		Title:        d.Title,
		Image:        image.Ref(d.ImageURL),
		Labels:       d.Labels,
		Description:  d.Description,
		Location:     d.Location,
		DeskLocation: d.DeskLocation,
		SavedBy:      savedBy,
	}, d.Embedding, d.Timestamp)
}
