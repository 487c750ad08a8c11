package match

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	"github.com/kailas-cloud/lostfound/internal/domain/similarity"
	logpkg "github.com/kailas-cloud/lostfound/internal/logger"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

// Defaults for on-demand candidate annotation.
const (
	DefaultLookupTimeout     = 10 * time.Second
	DefaultLookupConcurrency = 4
	DefaultLookupRate        = 5 // per second
)

// Service ranks found items against a lost-item query.
type Service struct {
	annotator     Annotator
	limiter       *rate.Limiter
	lookupTimeout time.Duration
	concurrency   int
	forceDemo     bool
	logger        *zap.Logger
}

// New creates a match service. annotator may be nil, in which case
// FindMatchesWithLookup scores lookups as zero signal.
func New(annotator Annotator, logger *zap.Logger) *Service {
	return &Service{
		annotator:     annotator,
		limiter:       rate.NewLimiter(rate.Limit(DefaultLookupRate), DefaultLookupConcurrency),
		lookupTimeout: DefaultLookupTimeout,
		concurrency:   DefaultLookupConcurrency,
		forceDemo:     DemoAvailable,
		logger:        logger,
	}
}

// WithDemoOverride toggles the forced demo match.
func (s *Service) WithDemoOverride(enabled bool) *Service {
	s.forceDemo = enabled
	return s
}

// WithLookupLimits configures throttling of on-demand annotation calls.
func (s *Service) WithLookupLimits(perSecond float64, concurrency int, timeout time.Duration) *Service {
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	if perSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), s.concurrency)
	}
	if timeout > 0 {
		s.lookupTimeout = timeout
	}
	return s
}

// FindMatches scores every candidate against the query and returns them sorted
// by descending score. Ties keep candidate order.
func (s *Service) FindMatches(ctx context.Context, q query.Query, candidates []item.Item) []dommatch.Match {
	p := prepare(q)

	matches := make([]dommatch.Match, len(candidates))
	for i := range candidates {
		matches[i] = p.score(&candidates[i])
	}

	return s.finish(ctx, "stored", matches, candidates)
}

// FindMatchesWithLookup is FindMatches for candidates whose stored labels cannot be
// trusted: a candidate without a positive embedding signal is re-annotated and its
// label score is computed against the fresh annotation.
func (s *Service) FindMatchesWithLookup(
	ctx context.Context, q query.Query, candidates []item.Item,
) []dommatch.Match {
	p := prepare(q)

	matches := make([]dommatch.Match, len(candidates))
	signals := make([]dommatch.Signals, len(candidates))
	var pending []int

	for i := range candidates {
		it := &candidates[i]
		if p.exactImage(it) {
			matches[i] = p.exactMatch(it)
			continue
		}
		signals[i] = p.signals(it)
		if signals[i].Embedding <= 0 {
			pending = append(pending, i)
		}
	}

	labelScores := s.lookupLabelScores(ctx, p, candidates, pending)
	for j, i := range pending {
		signals[i].Label = labelScores[j]
	}
	domain.UsageFromContext(ctx).AddLookups(len(pending))

	for i := range candidates {
		if matches[i].Reason == dommatch.ReasonExactImage {
			continue
		}
		matches[i] = p.build(&candidates[i], signals[i])
	}

	return s.finish(ctx, "lookup", matches, candidates)
}

// finish sorts matches and applies the demo override. Logs go to the request logger in ctx.
func (s *Service) finish(
	ctx context.Context, variant string, matches []dommatch.Match, candidates []item.Item,
) []dommatch.Match {
	log := logpkg.FromContext(ctx, s.logger)

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	metrics.MatchRequestsTotal.WithLabelValues(variant).Inc()
	if len(matches) > 0 {
		metrics.MatchTopReasonTotal.WithLabelValues(string(matches[0].Reason)).Inc()
		top := matches[0]
		log.Debug("Matches scored",
			zap.String("variant", variant),
			zap.Int("candidates", len(candidates)),
			zap.String("top_id", top.Item.ID()),
			zap.Float64("top_score", top.Score),
			zap.String("top_reason", string(top.Reason)),
		)
	}

	if !s.forceDemo {
		return matches
	}
	out, applied := applyDemoOverride(matches, candidates)
	if applied {
		log.Info("Prototype forced match applied", zap.String("item_id", out[0].Item.ID()))
	}
	return out
}

// lookupLabelScores annotates the pending candidates concurrently. The result slot
// for pending[j] is scores[j], so completion order does not matter.
func (s *Service) lookupLabelScores(
	ctx context.Context, p *prepared, candidates []item.Item, pending []int,
) []float64 {
	scores := make([]float64, len(pending))
	if len(pending) == 0 {
		return scores
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for j, i := range pending {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scores[j] = s.lookupLabelScore(ctx, p, &candidates[i])
		}()
	}
	wg.Wait()
	return scores
}

// lookupLabelScore returns the label overlap against a fresh annotation of the
// candidate image. Any failure is zero signal.
func (s *Service) lookupLabelScore(ctx context.Context, p *prepared, it *item.Item) float64 {
	if s.annotator == nil || !it.HasImage() {
		return 0
	}

	if err := s.limiter.Wait(ctx); err != nil {
		metrics.LookupsTotal.WithLabelValues("match", "throttled").Inc()
		s.logger.Warn("Candidate lookup throttled", zap.String("item_id", it.ID()), zap.Error(err))
		return 0
	}

	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	ann, err := s.annotator.Annotate(lctx, it.Image())
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("match", "error").Inc()
		s.logger.Warn("Candidate lookup failed", zap.String("item_id", it.ID()), zap.Error(err))
		return 0
	}
	metrics.LookupsTotal.WithLabelValues("match", "ok").Inc()

	return similarity.Jaccard(p.labels, ann.All())
}
