package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kailas-cloud/lostfound/internal/db"
	"github.com/kailas-cloud/lostfound/internal/domain"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// ListKey holds the JSON-encoded candidate list.
const ListKey = domain.KeyPrefix + "items"

// store is the consumer interface for the shared list (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
}

// Redis keeps the candidate list as one JSON blob so every replica sees the
// same ordering. Each operation is a single read-modify-write under the lock;
// concurrent writers from other processes are last-write-wins.
type Redis struct {
	mu    sync.Mutex
	store store
	key   string
	seed  []domitem.Item
}

// NewRedis creates a store over s. seed is served and written on first
// mutation when the key does not exist yet.
func NewRedis(s store, seed []domitem.Item) *Redis {
	return &Redis{store: s, key: ListKey, seed: slices.Clone(seed)}
}

// List returns all items, newest first.
func (r *Redis) List(ctx context.Context) ([]domitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Get returns one item by ID.
func (r *Redis) Get(ctx context.Context, id string) (domitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := r.load(ctx)
	if err != nil {
		return domitem.Item{}, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return domitem.Item{}, fmt.Errorf("get %s: %w", id, domain.ErrItemNotFound)
	}
	return items[i], nil
}

// Append stores a new item at the head of the list.
func (r *Redis) Append(ctx context.Context, it domitem.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := r.load(ctx)
	if err != nil {
		return err
	}
	return r.save(ctx, prepend(items, it))
}

// Patch applies p to the item with the given ID and returns the result.
func (r *Redis) Patch(ctx context.Context, id string, p patch.Patch) (domitem.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := r.load(ctx)
	if err != nil {
		return domitem.Item{}, err
	}
	updated, err := applyPatch(items, id, p)
	if err != nil {
		return domitem.Item{}, err
	}
	if err := r.save(ctx, items); err != nil {
		return domitem.Item{}, err
	}
	return updated, nil
}

// Remove deletes the item with the given ID.
func (r *Redis) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	items, err := r.load(ctx)
	if err != nil {
		return err
	}
	items, err = remove(items, id)
	if err != nil {
		return err
	}
	return r.save(ctx, items)
}

// Ping checks the underlying store.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping item store: %w", err)
	}
	return nil
}

func (r *Redis) load(ctx context.Context) ([]domitem.Item, error) {
	raw, err := r.store.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return slices.Clone(r.seed), nil
		}
		return nil, fmt.Errorf("get %s: %w", r.key, err)
	}

	var dtos []itemDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key, err)
	}
	items := make([]domitem.Item, len(dtos))
	for i := range dtos {
		items[i] = fromDTO(&dtos[i])
	}
	return items, nil
}

func (r *Redis) save(ctx context.Context, items []domitem.Item) error {
	dtos := make([]itemDTO, len(items))
	for i := range items {
		dtos[i] = toDTO(&items[i])
	}
	data, err := json.Marshal(dtos)
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.key, err)
	}
	if err := r.store.Set(ctx, r.key, data); err != nil {
		return fmt.Errorf("set %s: %w", r.key, err)
	}
	return nil
}
