package item

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
)

// --- Mocks ---

type mockRepo struct {
	items     []domitem.Item
	appendErr error
	patchErr  error
	patches   int
}

func (m *mockRepo) List(_ context.Context) ([]domitem.Item, error) { return slices.Clone(m.items), nil }

func (m *mockRepo) Get(_ context.Context, id string) (domitem.Item, error) {
	for i := range m.items {
		if m.items[i].ID() == id {
			return m.items[i], nil
		}
	}
	return domitem.Item{}, domain.ErrItemNotFound
}

func (m *mockRepo) Append(_ context.Context, it domitem.Item) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.items = append([]domitem.Item{it}, m.items...)
	return nil
}

func (m *mockRepo) Patch(_ context.Context, id string, p patch.Patch) (domitem.Item, error) {
	m.patches++
	if m.patchErr != nil {
		return domitem.Item{}, m.patchErr
	}
	for i := range m.items {
		if m.items[i].ID() == id {
			updated, err := m.items[i].Apply(p)
			if err != nil {
				return domitem.Item{}, err
			}
			m.items[i] = updated
			return updated, nil
		}
	}
	return domitem.Item{}, domain.ErrItemNotFound
}

func (m *mockRepo) Remove(_ context.Context, id string) error {
	for i := range m.items {
		if m.items[i].ID() == id {
			m.items = slices.Delete(m.items, i, i+1)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

type mockAnnotator struct {
	labels []string
	err    error
	calls  int
}

func (m *mockAnnotator) Annotate(_ context.Context, _ image.Ref) (domain.Annotation, error) {
	m.calls++
	return domain.Annotation{Labels: m.labels}, m.err
}

type mockVectorizer struct {
	vec   []float32
	calls int
}

func (m *mockVectorizer) Vector(_ context.Context, _ image.Ref) []float32 {
	m.calls++
	return m.vec
}

// gatedVectorizer blocks the first call until release is closed.
type gatedVectorizer struct {
	vecs    map[image.Ref][]float32
	started chan struct{}
	release chan struct{}
	calls   int
}

func (g *gatedVectorizer) Vector(_ context.Context, img image.Ref) []float32 {
	g.calls++
	if g.calls == 1 {
		close(g.started)
		<-g.release
	}
	return g.vecs[img]
}

// --- Helpers ---

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func newService(repo *mockRepo, ann *mockAnnotator, vec *mockVectorizer) *Service {
	var a Annotator
	if ann != nil {
		a = ann
	}
	var v Vectorizer
	if vec != nil {
		v = vec
	}
	return New(repo, a, v, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

func ptr[T any](v T) *T { return &v }

// --- Tests ---

func TestCreate_AnnotatesAndEmbeds(t *testing.T) {
	repo := &mockRepo{}
	ann := &mockAnnotator{labels: []string{"wallet", "leather"}}
	vec := &mockVectorizer{vec: []float32{0.1, 0.2}}
	svc := newService(repo, ann, vec)

	it, err := svc.Create(context.Background(), domitem.Fields{
		Title: "Brown Wallet",
		Image: "data:image/png;base64,QUJD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(it.ID(), IDPrefix) {
		t.Errorf("id = %q", it.ID())
	}
	if len(it.Labels()) != 2 || it.Labels()[0] != "wallet" {
		t.Errorf("labels = %v", it.Labels())
	}
	if len(it.Embedding()) != 2 {
		t.Errorf("embedding not attached: %v", it.Embedding())
	}
	if it.SavedBy() != domitem.SavedByPeer {
		t.Errorf("saved_by = %q", it.SavedBy())
	}
	if !it.CreatedAt().Equal(fixedNow) {
		t.Errorf("created_at = %v", it.CreatedAt())
	}
	stored, _ := repo.Get(context.Background(), it.ID())
	if len(stored.Embedding()) != 2 {
		t.Error("embedding not persisted")
	}
}

func TestCreate_SuppliedLabelsSkipAnnotation(t *testing.T) {
	ann := &mockAnnotator{labels: []string{"other"}}
	svc := newService(&mockRepo{}, ann, nil)

	it, err := svc.Create(context.Background(), domitem.Fields{
		Title: "Ring", Image: "/img.png", Labels: []string{"ring"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ann.calls != 0 {
		t.Error("annotator must not be called when labels are supplied")
	}
	if it.Labels()[0] != "ring" {
		t.Errorf("labels = %v", it.Labels())
	}
}

func TestCreate_CollaboratorFailuresTolerated(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo, &mockAnnotator{err: errors.New("quota")}, &mockVectorizer{})

	it, err := svc.Create(context.Background(), domitem.Fields{Title: "Umbrella", Image: "/u.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(it.Labels()) != 0 || it.Embedding() != nil {
		t.Errorf("expected bare item, got labels=%v embedding=%v", it.Labels(), it.Embedding())
	}
	if repo.patches != 0 {
		t.Error("no embedding means no patch")
	}
}

func TestCreate_NoImage(t *testing.T) {
	ann := &mockAnnotator{labels: []string{"x"}}
	vec := &mockVectorizer{vec: []float32{1}}
	svc := newService(&mockRepo{}, ann, vec)

	it, err := svc.Create(context.Background(), domitem.Fields{Title: "Scarf", Description: "red wool"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ann.calls != 0 || vec.calls != 0 {
		t.Error("imageless item must not call collaborators")
	}
	if it.Embedding() != nil {
		t.Error("imageless item must not carry an embedding")
	}
}

func TestCreate_Invalid(t *testing.T) {
	svc := newService(&mockRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), domitem.Fields{})
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem, got %v", err)
	}

	_, err = svc.Create(context.Background(), domitem.Fields{Title: "x", SavedBy: "stranger"})
	if !errors.Is(err, domain.ErrInvalidItem) {
		t.Fatalf("expected ErrInvalidItem for bad provenance, got %v", err)
	}
}

func TestCreate_AppendError(t *testing.T) {
	svc := newService(&mockRepo{appendErr: errors.New("down")}, nil, nil)
	if _, err := svc.Create(context.Background(), domitem.Fields{Title: "x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestCreate_EmbeddingPatchFailureKeepsItem(t *testing.T) {
	repo := &mockRepo{patchErr: errors.New("conflict")}
	svc := newService(repo, nil, &mockVectorizer{vec: []float32{1}})

	it, err := svc.Create(context.Background(), domitem.Fields{Title: "Phone", Image: "/p.png"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.Embedding() != nil {
		t.Error("failed attachment should return the stored item unchanged")
	}
}

func TestCreate_ImageReplacedWhileEmbedding(t *testing.T) {
	repo := &mockRepo{}
	vec := &gatedVectorizer{
		vecs: map[image.Ref][]float32{
			"/a.png": {1, 0},
			"/b.png": {0, 1},
		},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := New(repo, nil, vec, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	type result struct {
		it  domitem.Item
		err error
	}
	done := make(chan result, 1)
	go func() {
		it, err := svc.Create(ctx, domitem.Fields{Title: "Wallet", Image: "/a.png"})
		done <- result{it, err}
	}()

	<-vec.started
	id := repo.items[0].ID()
	if _, err := svc.Patch(ctx, id, patch.Fields{Image: ptr(image.Ref("/b.png")), Labels: []string{"wallet"}}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	close(vec.release)

	res := <-done
	if res.err != nil {
		t.Fatalf("create: %v", res.err)
	}

	stored, _ := repo.Get(ctx, id)
	if stored.Image() != "/b.png" {
		t.Fatalf("image = %q", stored.Image())
	}
	if len(stored.Embedding()) != 2 || stored.Embedding()[1] != 1 {
		t.Errorf("embedding = %v, want the /b.png vector", stored.Embedding())
	}
	if res.it.Image() != "/b.png" || res.it.Embedding()[0] != 0 {
		t.Errorf("create returned image %q embedding %v", res.it.Image(), res.it.Embedding())
	}
}

func TestCreate_StaleEmbeddingNotAttached(t *testing.T) {
	repo := &mockRepo{}
	vec := &gatedVectorizer{
		vecs:    map[image.Ref][]float32{"/a.png": {1, 0}},
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := New(repo, nil, vec, zap.NewNop())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Create(ctx, domitem.Fields{Title: "Wallet", Image: "/a.png"})
	}()

	<-vec.started
	id := repo.items[0].ID()
	// no vector is available for the new image
	if _, err := svc.Patch(ctx, id, patch.Fields{Image: ptr(image.Ref("/b.png")), Labels: []string{"wallet"}}); err != nil {
		t.Fatalf("patch: %v", err)
	}
	close(vec.release)
	<-done

	stored, _ := repo.Get(ctx, id)
	if stored.Embedding() != nil {
		t.Errorf("embedding of /a.png attached to %q: %v", stored.Image(), stored.Embedding())
	}
}

func TestList_FilterBySavedBy(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo, nil, nil)
	ctx := context.Background()
	for i, by := range []domitem.Provenance{domitem.SavedByDesk, domitem.SavedByPeer, domitem.SavedByDesk} {
		if _, err := svc.Create(ctx, domitem.Fields{Title: fmt.Sprintf("t%d", i), SavedBy: by}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	desk, err := svc.List(ctx, domitem.SavedByDesk)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(desk) != 2 {
		t.Errorf("expected 2 desk items, got %d", len(desk))
	}
	all, _ := svc.List(ctx, "")
	if len(all) != 3 || all[0].Title() != "t2" {
		t.Errorf("expected newest first, got %d items", len(all))
	}
}

func TestPatch_ImageChangeReannotatesAndReembeds(t *testing.T) {
	repo := &mockRepo{}
	ann := &mockAnnotator{labels: []string{"backpack"}}
	vec := &mockVectorizer{vec: []float32{0.5}}
	svc := newService(repo, ann, vec)
	ctx := context.Background()

	it, _ := svc.Create(ctx, domitem.Fields{Title: "Bag", Image: "/a.png", Labels: []string{"bag"}})
	vec.vec = []float32{0.9, 0.1}

	updated, err := svc.Patch(ctx, it.ID(), patch.Fields{Image: ptr(image.Ref("/b.png"))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Image() != "/b.png" {
		t.Errorf("image = %q", updated.Image())
	}
	if len(updated.Labels()) != 1 || updated.Labels()[0] != "backpack" {
		t.Errorf("labels = %v", updated.Labels())
	}
	if len(updated.Embedding()) != 2 {
		t.Errorf("embedding = %v", updated.Embedding())
	}
}

func TestPatch_TextOnly(t *testing.T) {
	repo := &mockRepo{}
	ann := &mockAnnotator{labels: []string{"x"}}
	vec := &mockVectorizer{vec: []float32{0.5}}
	svc := newService(repo, ann, vec)
	ctx := context.Background()

	it, _ := svc.Create(ctx, domitem.Fields{Title: "Bag", Image: "/a.png", Labels: []string{"bag"}})
	callsBefore := vec.calls

	updated, err := svc.Patch(ctx, it.ID(), patch.Fields{DeskLocation: ptr("North Desk")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.DeskLocation() != "North Desk" || len(updated.Embedding()) != 1 {
		t.Errorf("unexpected item: %q %v", updated.DeskLocation(), updated.Embedding())
	}
	if ann.calls != 0 || vec.calls != callsBefore {
		t.Error("text patch must not call collaborators")
	}
}

func TestPatch_Errors(t *testing.T) {
	svc := newService(&mockRepo{}, nil, nil)
	ctx := context.Background()

	if _, err := svc.Patch(ctx, "item-1", patch.Fields{}); !errors.Is(err, domain.ErrInvalidItem) {
		t.Errorf("empty patch: expected ErrInvalidItem, got %v", err)
	}
	if _, err := svc.Patch(ctx, "missing", patch.Fields{Title: ptr("x")}); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	repo := &mockRepo{}
	svc := newService(repo, nil, nil)
	ctx := context.Background()

	it, _ := svc.Create(ctx, domitem.Fields{Title: "Keys"})
	if err := svc.Remove(ctx, it.ID()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Get(ctx, it.ID()); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
	if err := svc.Remove(ctx, it.ID()); !errors.Is(err, domain.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound on second remove, got %v", err)
	}
}
