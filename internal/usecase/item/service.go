package item

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// IDPrefix starts every generated item identifier.
const IDPrefix = "item-"

// Service handles found-item ingestion and desk inventory.
type Service struct {
	repo      Repository
	annotator Annotator
	vectors   Vectorizer
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

// New creates an item service. annotator and vectors may be nil.
func New(repo Repository, annotator Annotator, vectors Vectorizer, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		annotator: annotator,
		vectors:   vectors,
		now:       time.Now,
		newID:     func() string { return IDPrefix + uuid.NewString() },
		logger:    logger,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create labels the image when no labels were supplied, stores the item at the
// head of the list and attaches an embedding. Annotation and embedding failures
// only leave the item with fewer signals.
func (s *Service) Create(ctx context.Context, f domitem.Fields) (domitem.Item, error) {
	if len(f.Labels) == 0 && !f.Image.IsEmpty() {
		f.Labels = s.annotate(ctx, f.Image)
	}

	it, err := domitem.New(s.newID(), f, s.now().UTC())
	if err != nil {
		return domitem.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	if err := s.repo.Append(ctx, it); err != nil {
		return domitem.Item{}, fmt.Errorf("append item: %w", err)
	}

	s.logger.Info("Found item stored",
		zap.String("item_id", it.ID()),
		zap.String("saved_by", string(it.SavedBy())),
		zap.Int("labels", len(it.Labels())),
	)

	return s.attachEmbedding(ctx, it), nil
}

// List returns stored items, newest first. An empty savedBy returns every item.
func (s *Service) List(ctx context.Context, savedBy domitem.Provenance) ([]domitem.Item, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if savedBy == "" {
		return items, nil
	}

	out := items[:0]
	for i := range items {
		if items[i].SavedBy() == savedBy {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// Get retrieves an item by ID.
func (s *Service) Get(ctx context.Context, id string) (domitem.Item, error) {
	it, err := s.repo.Get(ctx, id)
	if err != nil {
		return domitem.Item{}, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// Patch updates an item. A new image without explicit labels is re-annotated,
// and any new image gets a fresh embedding.
func (s *Service) Patch(ctx context.Context, id string, f patch.Fields) (domitem.Item, error) {
	if f.Image != nil && f.Labels == nil && !f.Image.IsEmpty() {
		f.Labels = s.annotate(ctx, *f.Image)
	}

	p, err := patch.New(f)
	if err != nil {
		return domitem.Item{}, fmt.Errorf("%w: %w", domain.ErrInvalidItem, err)
	}

	updated, err := s.repo.Patch(ctx, id, p)
	if err != nil {
		return domitem.Item{}, fmt.Errorf("patch item: %w", err)
	}

	if p.HasImage() {
		updated = s.attachEmbedding(ctx, updated)
	}
	return updated, nil
}

// Remove deletes an item.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	s.logger.Info("Found item removed", zap.String("item_id", id))
	return nil
}

func (s *Service) annotate(ctx context.Context, img image.Ref) []string {
	if s.annotator == nil {
		return nil
	}
	ann, err := s.annotator.Annotate(ctx, img)
	if err != nil {
		s.logger.Warn("Annotation failed, storing item without labels", zap.Error(err))
		return nil
	}
	return ann.Labels
}

// attachEmbedding stores an embedding for it and returns the updated item,
// or it unchanged when no embedding is available.
func (s *Service) attachEmbedding(ctx context.Context, it domitem.Item) domitem.Item {
	if s.vectors == nil || !it.HasImage() {
		return it
	}
	vec := s.vectors.Vector(ctx, it.Image())
	if len(vec) == 0 {
		return it
	}

	updated, err := s.repo.Patch(ctx, it.ID(), patch.ForEmbedding(it.Image(), vec))
	if err != nil {
		s.logger.Warn("Failed to attach embedding", zap.String("item_id", it.ID()), zap.Error(err))
		return it
	}
	if updated.Image() != it.Image() {
		s.logger.Info("Image replaced while embedding, vector discarded",
			zap.String("item_id", it.ID()),
			zap.String("embedded_image", string(it.Image())),
		)
	}
	return updated
}
