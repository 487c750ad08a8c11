// Package lostfound embeds the lost & found matcher in a Go program without the HTTP API.
package lostfound

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/lostfound/internal/db/redis"
	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	itemrepo "github.com/kailas-cloud/lostfound/internal/repository/item"
	embeddinguc "github.com/kailas-cloud/lostfound/internal/usecase/embedding"
	itemuc "github.com/kailas-cloud/lostfound/internal/usecase/item"
	matchuc "github.com/kailas-cloud/lostfound/internal/usecase/match"
	riskuc "github.com/kailas-cloud/lostfound/internal/usecase/risk"
	searchuc "github.com/kailas-cloud/lostfound/internal/usecase/search"
	verificationuc "github.com/kailas-cloud/lostfound/internal/usecase/verification"
)

const defaultReadinessTimeout = 10 * time.Second

// repository is the candidate store behind the client.
type repository interface {
	itemuc.Repository
	Ping(ctx context.Context) error
}

// Client is the lostfound SDK entry point.
type Client struct {
	store  *dbRedis.Store
	repo   repository
	items  *itemuc.Service
	search *searchuc.Service
}

// New creates a Client. Without WithRedis the items live in memory.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{seed: true, demo: false, logger: zap.NewNop()}
	for _, o := range opts {
		o(cfg)
	}

	var seed []domitem.Item
	if cfg.seed {
		seed = itemrepo.SampleItems(time.Now().UTC())
	}

	c := &Client{}
	if cfg.redis {
		if len(cfg.addrs) == 0 {
			return nil, errors.New("lostfound: redis address required")
		}
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
		if err != nil {
			return nil, fmt.Errorf("lostfound: create redis store: %w", err)
		}
		if err := store.WaitForReady(context.Background(), defaultReadinessTimeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("lostfound: store not ready: %w", err)
		}
		c.store = store
		c.repo = itemrepo.NewRedis(store, seed)
	} else {
		c.repo = itemrepo.NewMemory(seed)
	}

	wire(c, cfg)
	return c, nil
}

func wire(c *Client, cfg *clientConfig) {
	var ann matchuc.Annotator
	if cfg.annotator != nil {
		ann = &annotatorAdapter{inner: cfg.annotator}
	}

	var vectors itemuc.Vectorizer
	if cfg.embedder != nil {
		vectors = embeddinguc.NewFailClosed(&embedderAdapter{inner: cfg.embedder}, cfg.logger)
	}

	ranker := matchuc.New(ann, cfg.logger).WithDemoOverride(cfg.demo)
	assessor := riskuc.New(ann, 0, cfg.logger)
	verifier := verificationuc.New(nil, cfg.logger)

	c.items = itemuc.New(c.repo, ann, vectors, cfg.logger)
	c.search = searchuc.New(c.repo, ann, vectors, ranker, assessor, verifier, cfg.logger)
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.repo.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// AddItem stores a found item, annotating and embedding its image when collaborators are set.
func (c *Client) AddItem(ctx context.Context, in ItemInput) (Item, error) {
	it, err := c.items.Create(ctx, in.toFields())
	if err != nil {
		return Item{}, fmt.Errorf("add item: %w", err)
	}
	return itemFromDomain(&it), nil
}

// Items lists stored found items, newest first.
func (c *Client) Items(ctx context.Context) ([]Item, error) {
	items, err := c.items.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]Item, len(items))
	for i := range items {
		out[i] = itemFromDomain(&items[i])
	}
	return out, nil
}

// RemoveItem deletes a found item. Returns ErrItemNotFound for unknown IDs.
func (c *Client) RemoveItem(ctx context.Context, id string) error {
	if err := c.items.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

// Match ranks every stored item against q and classifies the top match.
func (c *Client) Match(ctx context.Context, q Query, opts ...MatchOption) (Result, error) {
	mc := &matchConfig{}
	for _, o := range opts {
		o(mc)
	}

	res, err := c.search.Search(ctx, searchuc.Request{
		Query:     q.toDomain(),
		Lookup:    mc.lookup,
		Questions: mc.questions,
		Limit:     mc.limit,
	})
	if err != nil {
		return Result{}, fmt.Errorf("match: %w", err)
	}
	return resultFromDomain(&res), nil
}

// ErrItemNotFound is returned for unknown item IDs.
var ErrItemNotFound = domain.ErrItemNotFound

// embedderAdapter wraps the public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, img image.Ref) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, string(img))
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// annotatorAdapter wraps the public Annotator to satisfy the use case contracts.
type annotatorAdapter struct {
	inner Annotator
}

func (a *annotatorAdapter) Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error) {
	r, err := a.inner.Annotate(ctx, string(img))
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("annotate: %w", err)
	}
	return domain.Annotation{Labels: r.Labels, WebEntities: r.WebEntities}, nil
}
