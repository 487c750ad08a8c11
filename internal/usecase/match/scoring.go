package match

import (
	"strings"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	"github.com/kailas-cloud/lostfound/internal/domain/similarity"
)

// Composite weights. Visual similarity is the strongest signal, free text the noisiest.
const (
	WeightEmbedding   = 0.50
	WeightLabel       = 0.35
	WeightDescription = 0.15
)

// ExactImageScore is assigned to a candidate sharing the query's image payload.
const ExactImageScore = 1.0

// Composite fuses sub-scores into one weighted score.
func Composite(s dommatch.Signals) float64 {
	return WeightEmbedding*s.Embedding + WeightLabel*s.Label + WeightDescription*s.Description
}

// Attribute names the dominant signal. Ties resolve embedding > label > description;
// a signal must be positive to win, and all-zero falls back to description.
func Attribute(s dommatch.Signals) dommatch.Reason {
	switch {
	case s.Embedding > 0 && s.Embedding >= s.Label && s.Embedding >= s.Description:
		return dommatch.ReasonEmbedding
	case s.Label > 0 && s.Label >= s.Description:
		return dommatch.ReasonVision
	default:
		return dommatch.ReasonDescription
	}
}

// EmbeddingScore returns the cosine similarity clamped to [0,1].
// Dissimilar embeddings contribute nothing rather than pulling the score down.
func EmbeddingScore(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	c := similarity.Cosine(a, b)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// prepared holds the query-side data shared by every candidate.
type prepared struct {
	q          query.Query
	labels     []string
	labelSet   map[string]struct{}
	descTokens []string
}

func prepare(q query.Query) *prepared {
	labels := q.AllLabels()
	return &prepared{
		q:          q,
		labels:     labels,
		labelSet:   similarity.LowerSet(labels),
		descTokens: similarity.Tokenize(q.Description),
	}
}

// exactImage reports whether the candidate carries the query's image.
func (p *prepared) exactImage(it *item.Item) bool {
	return image.SameImage(p.q.Image, it.Image())
}

// matchedLabels returns candidate labels that appear among the query labels (case-insensitive).
func (p *prepared) matchedLabels(it *item.Item) []string {
	var out []string
	for _, l := range it.Labels() {
		if _, ok := p.labelSet[strings.ToLower(l)]; ok {
			out = append(out, l)
		}
	}
	return out
}

// signals computes the sub-scores against the candidate's stored labels.
func (p *prepared) signals(it *item.Item) dommatch.Signals {
	return dommatch.Signals{
		Embedding:   EmbeddingScore(p.q.Embedding, it.Embedding()),
		Label:       similarity.Jaccard(p.labels, it.Labels()),
		Description: similarity.Jaccard(p.descTokens, similarity.Tokenize(it.Description())),
	}
}

func (p *prepared) exactMatch(it *item.Item) dommatch.Match {
	return dommatch.Match{
		Item:          *it,
		Score:         ExactImageScore,
		MatchedLabels: p.matchedLabels(it),
		Reason:        dommatch.ReasonExactImage,
	}
}

func (p *prepared) build(it *item.Item, s dommatch.Signals) dommatch.Match {
	return dommatch.Match{
		Item:          *it,
		Score:         Composite(s),
		MatchedLabels: p.matchedLabels(it),
		Reason:        Attribute(s),
	}
}

// score runs the full per-candidate algorithm against stored labels.
func (p *prepared) score(it *item.Item) dommatch.Match {
	if p.exactImage(it) {
		return p.exactMatch(it)
	}
	return p.build(it, p.signals(it))
}
