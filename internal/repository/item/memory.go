package item

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kailas-cloud/lostfound/internal/domain"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// Memory is a process-local candidate store. All operations are serialized.
type Memory struct {
	mu    sync.Mutex
	items []domitem.Item
}

// NewMemory creates a store holding seed, newest first.
func NewMemory(seed []domitem.Item) *Memory {
	return &Memory{items: slices.Clone(seed)}
}

// List returns a snapshot of all items, newest first.
func (m *Memory) List(_ context.Context) ([]domitem.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.items), nil
}

// Get returns one item by ID.
func (m *Memory) Get(_ context.Context, id string) (domitem.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOf(m.items, id)
	if i < 0 {
		return domitem.Item{}, fmt.Errorf("get %s: %w", id, domain.ErrItemNotFound)
	}
	return m.items[i], nil
}

// Append stores a new item at the head of the list.
func (m *Memory) Append(_ context.Context, it domitem.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = prepend(m.items, it)
	return nil
}

// Patch applies p to the item with the given ID and returns the result.
func (m *Memory) Patch(_ context.Context, id string, p patch.Patch) (domitem.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return applyPatch(m.items, id, p)
}

// Remove deletes the item with the given ID.
func (m *Memory) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, err := remove(m.items, id)
	if err != nil {
		return err
	}
	m.items = items
	return nil
}

// Ping always succeeds.
func (m *Memory) Ping(_ context.Context) error { return nil }
