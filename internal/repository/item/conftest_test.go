package item

import (
	"context"
	"sync"
	"time"

	"github.com/kailas-cloud/lostfound/internal/db"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// mockStore is an in-memory KV implementing the consumer interface for tests.
type mockStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	pingErr error
	sets    int
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockStore) Ping(_ context.Context) error { return m.pingErr }

// backend is the surface both stores share.
type backend interface {
	List(ctx context.Context) ([]domitem.Item, error)
	Get(ctx context.Context, id string) (domitem.Item, error)
	Append(ctx context.Context, it domitem.Item) error
	Patch(ctx context.Context, id string, p patch.Patch) (domitem.Item, error)
	Remove(ctx context.Context, id string) error
}

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// backends returns a fresh instance of every store seeded with the samples.
func backends() map[string]backend {
	return map[string]backend{
		"memory": NewMemory(SampleItems(testNow)),
		"redis":  NewRedis(newMockStore(), SampleItems(testNow)),
	}
}

func mustItem(id, title string) domitem.Item {
	it, err := domitem.New(id, domitem.Fields{Title: title, Image: "/img/" + id + ".png", Labels: []string{"x"}}, testNow)
	if err != nil {
		panic(err)
	}
	return it
}
