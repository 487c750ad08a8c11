package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/risk"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

// --- Mocks ---

type mockAnnotator struct {
	ann   domain.Annotation
	err   error
	block bool
	calls int
	got   image.Ref
}

func (m *mockAnnotator) Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error) {
	m.calls++
	m.got = img
	if m.block {
		<-ctx.Done()
		return domain.Annotation{}, ctx.Err()
	}
	return m.ann, m.err
}

// --- Helpers ---

func matchOf(title string, labels, matched []string, score float64, img image.Ref) dommatch.Match {
	it := item.Reconstruct("item-1", item.Fields{Title: title, Labels: labels, Image: img}, nil, time.Time{})
	return dommatch.Match{Item: it, Score: score, MatchedLabels: matched, Reason: dommatch.ReasonVision}
}

func assess(ann Annotator, m ...dommatch.Match) risk.Level {
	return New(ann, time.Second, zap.NewNop()).Assess(context.Background(), m)
}

// --- Tests ---

func TestAssess_Empty(t *testing.T) {
	if got := assess(nil); got != risk.Low {
		t.Errorf("got %s, want low", got)
	}
}

func TestAssess_StrongMatchedLabelShortCircuits(t *testing.T) {
	ann := &mockAnnotator{}
	m := matchOf("Thing", nil, []string{"Wallet"}, 0, "/img.png")
	if got := assess(ann, m); got != risk.High {
		t.Errorf("got %s, want high regardless of confidence", got)
	}
	if ann.calls != 0 {
		t.Error("short circuit must not annotate")
	}
}

func TestAssess_WaterBottleNoImage(t *testing.T) {
	m := matchOf("Water Bottle", []string{"bottle", "plastic"}, []string{"bottle"}, 0.9, "")
	if got := assess(&mockAnnotator{}, m); got != risk.Low {
		t.Errorf("got %s, want low", got)
	}
}

func TestAssess_KeywordFusion(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       risk.Level
	}{
		// 0.6*0 + 0.4*1 = 0.4
		{"low confidence", 0, risk.Low},
		// 0.6*0.3 + 0.4 = 0.58
		{"just below threshold", 0.3, risk.Low},
		// 0.6*0.34 + 0.4 = 0.604
		{"just above threshold", 0.34, risk.High},
		{"full confidence", 1, risk.High},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			// strong keyword in the title only, so the matched-label rule does not fire
			m := matchOf("Black Wallet", []string{"leather"}, []string{"leather"}, tc.confidence, "/img.png")
			ann := &mockAnnotator{ann: domain.Annotation{Labels: []string{"wallet"}}}
			if got := assess(ann, m); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
			if ann.calls != 0 {
				t.Error("keyword branch must not annotate")
			}
		})
	}
}

func TestAssess_ModerateKeywordFallsToLookup(t *testing.T) {
	ann := &mockAnnotator{ann: domain.Annotation{Labels: []string{"Gold necklace"}}}
	m := matchOf("Blue Backpack", []string{"backpack", "bag"}, []string{"bag"}, 0.85, "/sample-found/item-3.svg")

	if got := assess(ann, m); got != risk.High {
		t.Errorf("got %s, want high from annotation", got)
	}
	if ann.calls != 1 || ann.got != "/sample-found/item-3.svg" {
		t.Errorf("calls=%d image=%q", ann.calls, ann.got)
	}
}

func TestAssess_Lookup(t *testing.T) {
	tests := []struct {
		name string
		ann  *mockAnnotator
		want risk.Level
	}{
		{"strong label", &mockAnnotator{ann: domain.Annotation{Labels: []string{"Mobile phone"}}}, risk.High},
		{"no strong label", &mockAnnotator{ann: domain.Annotation{Labels: []string{"bottle", "earrings"}}}, risk.Low},
		{"web entity ignored", &mockAnnotator{ann: domain.Annotation{WebEntities: []string{"wallet"}}}, risk.Low},
		{"failure", &mockAnnotator{err: errors.New("vision down")}, risk.Low},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := matchOf("Water Bottle", []string{"bottle"}, nil, 0.9, "data:image/png;base64,QUJD")
			if got := assess(tc.ann, m); got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
			if tc.ann.calls != 1 {
				t.Errorf("calls = %d, want 1", tc.ann.calls)
			}
		})
	}
}

func TestAssess_LookupBelowConfidence(t *testing.T) {
	ann := &mockAnnotator{ann: domain.Annotation{Labels: []string{"wallet"}}}
	m := matchOf("Water Bottle", nil, nil, 0.79, "/img.png")
	if got := assess(ann, m); got != risk.Low {
		t.Errorf("got %s", got)
	}
	if ann.calls != 0 {
		t.Error("lookup must require confidence >= 0.8")
	}
}

func TestAssess_LookupTimeout(t *testing.T) {
	ann := &mockAnnotator{block: true}
	m := matchOf("Water Bottle", nil, nil, 0.95, "/img.png")
	svc := New(ann, 10*time.Millisecond, zap.NewNop())

	start := time.Now()
	if got := svc.Assess(context.Background(), []dommatch.Match{m}); got != risk.Low {
		t.Errorf("got %s", got)
	}
	if time.Since(start) > time.Second {
		t.Error("lookup timeout not applied")
	}
}

func TestAssess_NilAnnotator(t *testing.T) {
	m := matchOf("Water Bottle", nil, nil, 0.95, "/img.png")
	if got := assess(nil, m); got != risk.Low {
		t.Errorf("got %s", got)
	}
}

func TestAssess_OnlyTopMatchCounts(t *testing.T) {
	top := matchOf("Umbrella", []string{"umbrella"}, nil, 0.5, "")
	second := matchOf("Wallet", []string{"wallet"}, []string{"wallet"}, 0.4, "")
	if got := assess(nil, top, second); got != risk.Low {
		t.Errorf("got %s", got)
	}
}

func TestAssess_RecordsVerdict(t *testing.T) {
	metrics.RegisterMatchingMetrics()
	before := testutil.ToFloat64(metrics.RiskVerdictsTotal.WithLabelValues("high", string(RuleMatchedLabel)))
	assess(nil, matchOf("x", nil, []string{"passport"}, 0.1, ""))
	after := testutil.ToFloat64(metrics.RiskVerdictsTotal.WithLabelValues("high", string(RuleMatchedLabel)))
	if after-before != 1 {
		t.Errorf("verdict counter delta = %f", after-before)
	}
}

func TestKeywordScore(t *testing.T) {
	tests := []struct {
		bag  []string
		want float64
	}{
		{nil, 0},
		{[]string{"water", "bottle"}, 0},
		{[]string{"earrings", "bring", "ringing"}, 0},
		{[]string{"Ring box"}, StrongKeywordScore},
		{[]string{"credit-card"}, StrongKeywordScore},
		{[]string{"travel purse"}, ModerateKeywordScore},
		{[]string{"backpack", "laptop"}, StrongKeywordScore},
	}
	for _, tc := range tests {
		if got := KeywordScore(tc.bag); got != tc.want {
			t.Errorf("KeywordScore(%v) = %f, want %f", tc.bag, got, tc.want)
		}
	}
}

func TestFuse_Capped(t *testing.T) {
	if got := Fuse(1, 1); got != 1 {
		t.Errorf("Fuse(1,1) = %f", got)
	}
	if got := Fuse(2, 1); got != 1 {
		t.Errorf("Fuse must cap at 1, got %f", got)
	}
}
