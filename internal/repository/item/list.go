package item

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/lostfound/internal/domain"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// The helpers below implement the list semantics shared by every backend.
// Callers hold the backend lock.

func indexOf(items []domitem.Item, id string) int {
	return slices.IndexFunc(items, func(it domitem.Item) bool { return it.ID() == id })
}

// prepend inserts newest-first.
func prepend(items []domitem.Item, it domitem.Item) []domitem.Item {
	out := make([]domitem.Item, 0, len(items)+1)
	out = append(out, it)
	return append(out, items...)
}

func applyPatch(items []domitem.Item, id string, p patch.Patch) (domitem.Item, error) {
	i := indexOf(items, id)
	if i < 0 {
		return domitem.Item{}, fmt.Errorf("patch %s: %w", id, domain.ErrItemNotFound)
	}
	updated, err := items[i].Apply(p)
	if err != nil {
		return domitem.Item{}, fmt.Errorf("patch %s: %w: %w", id, domain.ErrInvalidItem, err)
	}
	items[i] = updated
	return updated, nil
}

func remove(items []domitem.Item, id string) ([]domitem.Item, error) {
	i := indexOf(items, id)
	if i < 0 {
		return nil, fmt.Errorf("remove %s: %w", id, domain.ErrItemNotFound)
	}
	return slices.Delete(items, i, i+1), nil
}
