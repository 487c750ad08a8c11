package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/risk"
	"github.com/kailas-cloud/lostfound/internal/domain/similarity"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

// DefaultLookupTimeout bounds the secondary image check.
const DefaultLookupTimeout = 5 * time.Second

// Rule names the cascade step that produced a verdict.
type Rule string

// Cascade steps, in evaluation order.
const (
	RuleEmpty        Rule = "empty"
	RuleMatchedLabel Rule = "matched_label"
	RuleKeyword      Rule = "keyword"
	RuleLookup       Rule = "lookup"
	RuleLookupFailed Rule = "lookup_failed"
	RuleDefault      Rule = "default"
)

// Service classifies the top match as high or low fraud risk.
type Service struct {
	annotator     Annotator
	lookupTimeout time.Duration
	logger        *zap.Logger
}

// New creates a risk service. annotator may be nil, which disables the image check.
func New(annotator Annotator, lookupTimeout time.Duration, logger *zap.Logger) *Service {
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultLookupTimeout
	}
	return &Service{annotator: annotator, lookupTimeout: lookupTimeout, logger: logger}
}

// Assess returns the risk level of the best match. It never fails: a missing
// signal or a failed lookup yields low.
func (s *Service) Assess(ctx context.Context, matches []dommatch.Match) risk.Level {
	level, rule := s.assess(ctx, matches)
	metrics.RiskVerdictsTotal.WithLabelValues(string(level), string(rule)).Inc()
	return level
}

func (s *Service) assess(ctx context.Context, matches []dommatch.Match) (risk.Level, Rule) {
	if len(matches) == 0 {
		return risk.Low, RuleEmpty
	}
	top := &matches[0]
	labels := top.Item.Labels()

	if containsAny(top.MatchedLabels, strongKeywords) {
		return risk.High, RuleMatchedLabel
	}

	bag := make([]string, 0, 1+len(labels)+len(top.MatchedLabels))
	bag = append(bag, top.Item.Title())
	bag = append(bag, labels...)
	bag = append(bag, top.MatchedLabels...)

	kw := KeywordScore(bag)
	confidence := top.Score

	s.logger.Debug("Assessing risk",
		zap.String("item_id", top.Item.ID()),
		zap.Float64("confidence", confidence),
		zap.Float64("keyword_score", kw),
	)

	if kw >= KeywordThreshold {
		if Fuse(confidence, kw) >= RiskThreshold {
			return risk.High, RuleKeyword
		}
		return risk.Low, RuleKeyword
	}

	if confidence >= LookupConfidence && top.Item.HasImage() {
		return s.lookup(ctx, top)
	}

	return risk.Low, RuleDefault
}

// lookup annotates the matched item's image and looks for a strong keyword label.
func (s *Service) lookup(ctx context.Context, m *dommatch.Match) (risk.Level, Rule) {
	if s.annotator == nil {
		return risk.Low, RuleDefault
	}

	lctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	ann, err := s.annotator.Annotate(lctx, m.Item.Image())
	if err != nil {
		metrics.LookupsTotal.WithLabelValues("risk", "error").Inc()
		s.logger.Warn("Risk image check failed", zap.String("item_id", m.Item.ID()), zap.Error(err))
		return risk.Low, RuleLookupFailed
	}
	metrics.LookupsTotal.WithLabelValues("risk", "ok").Inc()

	for _, l := range ann.Labels {
		for _, tok := range similarity.Tokenize(l) {
			if IsStrongKeyword(tok) {
				return risk.High, RuleLookup
			}
		}
	}
	return risk.Low, RuleLookup
}
