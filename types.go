package lostfound

import (
	"context"
	"time"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	searchuc "github.com/kailas-cloud/lostfound/internal/usecase/search"
)

// Embedder turns an image reference (data URL or URL) into a vector.
type Embedder interface {
	Embed(ctx context.Context, imageRef string) (EmbeddingResult, error)
}

// EmbeddingResult is returned by Embedder.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Annotator labels an image reference.
type Annotator interface {
	Annotate(ctx context.Context, imageRef string) (Annotation, error)
}

// Annotation holds vision labels and web entities.
type Annotation struct {
	Labels      []string
	WebEntities []string
}

// Query describes a lost item. Every field is optional.
type Query struct {
	Image       string
	Labels      []string
	WebEntities []string
	Embedding   []float32
	Description string
}

// ItemInput describes a found item to store.
type ItemInput struct {
	Title        string
	Image        string
	Labels       []string
	Description  string
	Location     string
	DeskLocation string
	FromDesk     bool
}

// Item is a stored found item.
type Item struct {
	ID           string
	Title        string
	Image        string
	Labels       []string
	Description  string
	Location     string
	DeskLocation string
	FromDesk     bool
	HasEmbedding bool
	CreatedAt    time.Time
}

// Match is a ranked item.
type Match struct {
	Item          Item
	Score         float64
	MatchedLabels []string
	Reason        string
}

// Question is an ownership verification question.
type Question struct {
	Text        string
	Placeholder string
}

// Result is the answer to Match.
type Result struct {
	Matches   []Match
	HighRisk  bool
	Questions []Question
}

func (q *Query) toDomain() query.Query {
	return query.Query{
		Labels:      q.Labels,
		WebEntities: q.WebEntities,
		Embedding:   q.Embedding,
		Description: q.Description,
		Image:       image.Ref(q.Image),
	}
}

func (in *ItemInput) toFields() domitem.Fields {
	savedBy := domitem.SavedByPeer
	if in.FromDesk {
		savedBy = domitem.SavedByDesk
	}
	return domitem.Fields{
		Title:        in.Title,
		Image:        image.Ref(in.Image),
		Labels:       in.Labels,
		Description:  in.Description,
		Location:     in.Location,
		DeskLocation: in.DeskLocation,
		SavedBy:      savedBy,
	}
}

func itemFromDomain(it *domitem.Item) Item {
	return Item{
		ID:           it.ID(),
		Title:        it.Title(),
		Image:        string(it.Image()),
		Labels:       it.Labels(),
		Description:  it.Description(),
		Location:     it.Location(),
		DeskLocation: it.DeskLocation(),
		FromDesk:     it.SavedBy() == domitem.SavedByDesk,
		HasEmbedding: len(it.Embedding()) > 0,
		CreatedAt:    it.CreatedAt(),
	}
}

func resultFromDomain(r *searchuc.Result) Result {
	out := Result{HighRisk: r.Risk.IsHigh(), Matches: make([]Match, len(r.Matches))}
	for i := range r.Matches {
		m := &r.Matches[i]
		out.Matches[i] = Match{
			Item:          itemFromDomain(&m.Item),
			Score:         m.Score,
			MatchedLabels: m.MatchedLabels,
			Reason:        string(m.Reason),
		}
	}
	for _, q := range r.Questions {
		out.Questions = append(out.Questions, Question{Text: q.Question, Placeholder: q.Placeholder})
	}
	return out
}
