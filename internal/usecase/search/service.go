// Package search runs a lost-item query end to end: enrich, rank, assess risk.
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	"github.com/kailas-cloud/lostfound/internal/domain/risk"
	"github.com/kailas-cloud/lostfound/internal/usecase/verification"
)

// Request is a single lost-item search.
type Request struct {
	Query query.Query
	// Lookup annotates candidates without an embedding instead of trusting stored labels.
	Lookup bool
	// Questions asks for verification questions when the top match is high risk.
	Questions bool
	// Limit caps the returned matches; zero returns all.
	Limit int
}

// Result is the ranked answer to a Request.
type Result struct {
	// Query is the query after enrichment.
	Query     query.Query
	Matches   []dommatch.Match
	Risk      risk.Level
	Questions []verification.Question
}

// Service orchestrates query enrichment, ranking and risk assessment.
type Service struct {
	candidates Candidates
	annotator  Annotator
	vectors    Vectorizer
	ranker     Ranker
	risk       RiskAssessor
	verifier   Verifier
	logger     *zap.Logger
}

// New creates a search service. annotator, vectors and verifier may be nil.
func New(
	candidates Candidates,
	annotator Annotator,
	vectors Vectorizer,
	ranker Ranker,
	assessor RiskAssessor,
	verifier Verifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		candidates: candidates,
		annotator:  annotator,
		vectors:    vectors,
		ranker:     ranker,
		risk:       assessor,
		verifier:   verifier,
		logger:     logger,
	}
}

// Search ranks every stored candidate against the query. Only a store failure is an error.
func (s *Service) Search(ctx context.Context, req Request) (Result, error) {
	items, err := s.candidates.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list candidates: %w", err)
	}

	q := s.Prepare(ctx, req.Query)

	var matches []dommatch.Match
	if req.Lookup {
		matches = s.ranker.FindMatchesWithLookup(ctx, q, items)
	} else {
		matches = s.ranker.FindMatches(ctx, q, items)
	}

	res := Result{
		Query:   q,
		Matches: matches,
		Risk:    s.risk.Assess(ctx, matches),
	}

	if req.Questions && res.Risk.IsHigh() && s.verifier != nil && len(matches) > 0 {
		res.Questions = s.verifier.Questions(ctx, matches[0])
	}

	if req.Limit > 0 && len(res.Matches) > req.Limit {
		res.Matches = res.Matches[:req.Limit]
	}

	s.logger.Debug("Search completed",
		zap.Int("candidates", len(items)),
		zap.Int("matches", len(res.Matches)),
		zap.String("risk", string(res.Risk)),
		zap.Bool("lookup", req.Lookup),
	)
	return res, nil
}

// Prepare fills in labels and the embedding for an image-only query.
// Supplied signals are kept as they are; collaborator failures leave them empty.
func (s *Service) Prepare(ctx context.Context, q query.Query) query.Query {
	if q.Image.IsEmpty() {
		return q
	}

	if len(q.Labels) == 0 && len(q.WebEntities) == 0 && s.annotator != nil {
		ann, err := s.annotator.Annotate(ctx, q.Image)
		if err != nil {
			s.logger.Warn("Query annotation failed", zap.Error(err))
		} else {
			q.Labels = ann.Labels
			q.WebEntities = ann.WebEntities
		}
	}

	if !q.HasEmbedding() && s.vectors != nil {
		q.Embedding = s.vectors.Vector(ctx, q.Image)
	}
	return q
}
