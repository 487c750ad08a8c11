package search

import (
	"context"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	"github.com/kailas-cloud/lostfound/internal/domain/risk"
	"github.com/kailas-cloud/lostfound/internal/usecase/verification"
)

// Candidates lists the found items a query is ranked against.
type Candidates interface {
	List(ctx context.Context) ([]item.Item, error)
}

// Annotator labels the query image when the caller supplied none.
type Annotator interface {
	Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error)
}

// Vectorizer returns an image embedding or nil when none is available.
type Vectorizer interface {
	Vector(ctx context.Context, img image.Ref) []float32
}

// Ranker scores candidates against a query.
type Ranker interface {
	FindMatches(ctx context.Context, q query.Query, candidates []item.Item) []dommatch.Match
	FindMatchesWithLookup(ctx context.Context, q query.Query, candidates []item.Item) []dommatch.Match
}

// RiskAssessor classifies the top match.
type RiskAssessor interface {
	Assess(ctx context.Context, matches []dommatch.Match) risk.Level
}

// Verifier produces ownership verification questions for a match.
type Verifier interface {
	Questions(ctx context.Context, top dommatch.Match) []verification.Question
}
