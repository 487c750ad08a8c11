package match

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	logpkg "github.com/kailas-cloud/lostfound/internal/logger"
)

const eps = 1e-9

// --- Mocks ---

type mockAnnotator struct {
	byImage map[image.Ref]domain.Annotation
	errFor  map[image.Ref]error
	calls   atomic.Int32
}

func (m *mockAnnotator) Annotate(_ context.Context, img image.Ref) (domain.Annotation, error) {
	m.calls.Add(1)
	if err, ok := m.errFor[img]; ok {
		return domain.Annotation{}, err
	}
	return m.byImage[img], nil
}

// --- Helpers ---

func newItem(id string, f item.Fields, emb []float32) item.Item {
	if f.Title == "" {
		f.Title = id
	}
	return item.Reconstruct(id, f, emb, time.Time{})
}

func newService() *Service {
	return New(nil, zap.NewNop()).WithDemoOverride(false)
}

func ids(ms []dommatch.Match) []string {
	out := make([]string, len(ms))
	for i := range ms {
		out[i] = ms[i].Item.ID()
	}
	return out
}

// --- Tests ---

func TestFindMatches_RingScenario(t *testing.T) {
	candidates := []item.Item{
		newItem("A", item.Fields{Labels: []string{"ring", "silver"}, Description: "silver ring"}, nil),
	}
	q := query.Query{Labels: []string{"ring"}, Description: "lost silver ring"}

	got := newService().FindMatches(context.Background(), q, candidates)
	if len(got) != 1 {
		t.Fatalf("expected 1 match, got %d", len(got))
	}

	labelScore := 1.0 / 2.0 // {ring} vs {ring, silver}
	descScore := 2.0 / 3.0  // {lost, silver, ring} vs {silver, ring}
	want := WeightEmbedding*0 + WeightLabel*labelScore + WeightDescription*descScore

	if math.Abs(got[0].Score-want) > eps {
		t.Errorf("score = %f, want %f", got[0].Score, want)
	}
	if got[0].Reason != dommatch.ReasonDescription {
		t.Errorf("reason = %q, want description (0.67 > 0.5)", got[0].Reason)
	}
	if len(got[0].MatchedLabels) != 1 || got[0].MatchedLabels[0] != "ring" {
		t.Errorf("matched labels = %v, want [ring]", got[0].MatchedLabels)
	}
}

func TestFindMatches_OnePerCandidateSorted(t *testing.T) {
	candidates := []item.Item{
		newItem("wallet", item.Fields{Labels: []string{"wallet", "leather"}, Description: "black wallet"}, nil),
		newItem("ring", item.Fields{Labels: []string{"ring", "silver"}}, []float32{1, 0, 0}),
		newItem("backpack", item.Fields{Labels: []string{"backpack", "bag"}, Description: "blue backpack"}, nil),
		newItem("bare", item.Fields{}, nil),
		newItem("phone", item.Fields{Labels: []string{"phone"}}, []float32{0.7, 0.7, 0}),
	}
	q := query.Query{
		Labels:      []string{"Ring", "jewelry"},
		WebEntities: []string{"silver"},
		Embedding:   []float32{1, 0.1, 0},
		Description: "blue bag with a silver ring",
	}

	got := newService().FindMatches(context.Background(), q, candidates)
	if len(got) != len(candidates) {
		t.Fatalf("expected %d matches, got %d", len(candidates), len(got))
	}

	seen := map[string]int{}
	for i := range got {
		seen[got[i].Item.ID()]++
		if i > 0 && got[i].Score > got[i-1].Score {
			t.Errorf("not sorted at %d: %f > %f", i, got[i].Score, got[i-1].Score)
		}
		if got[i].Score < 0 || got[i].Score > 1 {
			t.Errorf("score out of range: %f", got[i].Score)
		}
	}
	for _, c := range candidates {
		if seen[c.ID()] != 1 {
			t.Errorf("candidate %s appears %d times", c.ID(), seen[c.ID()])
		}
	}
	if got[0].Item.ID() != "ring" {
		t.Errorf("top = %s, want ring", got[0].Item.ID())
	}
}

func TestFindMatches_ExactImageOverridesSignals(t *testing.T) {
	candidates := []item.Item{
		newItem("close", item.Fields{Labels: []string{"wallet"}, Image: "data:image/png;base64,OTHER"}, []float32{1, 0}),
		newItem("same", item.Fields{Labels: []string{"umbrella"}, Image: "data:image/jpeg;base64,QUJD"}, []float32{0, 1}),
	}
	q := query.Query{
		Labels:    []string{"wallet"},
		Embedding: []float32{1, 0},
		Image:     "data:image/png;base64,QUJD",
	}

	got := newService().FindMatches(context.Background(), q, candidates)
	if got[0].Item.ID() != "same" {
		t.Fatalf("top = %s, want same", got[0].Item.ID())
	}
	if got[0].Score != 1.0 {
		t.Errorf("score = %f, want 1.0", got[0].Score)
	}
	if got[0].Reason != dommatch.ReasonExactImage {
		t.Errorf("reason = %q", got[0].Reason)
	}
	if got[1].Score >= 1.0 {
		t.Errorf("non-identical image scored %f", got[1].Score)
	}
}

func TestFindMatches_ExactImageSameRemoteURL(t *testing.T) {
	candidates := []item.Item{newItem("x", item.Fields{Image: "https://cdn.example.com/x.png"}, nil)}
	q := query.Query{Image: "https://cdn.example.com/x.png"}

	got := newService().FindMatches(context.Background(), q, candidates)
	if got[0].Reason != dommatch.ReasonExactImage || got[0].Score != 1 {
		t.Errorf("got %+v", got[0])
	}
}

func TestFindMatches_EmbeddingReason(t *testing.T) {
	candidates := []item.Item{newItem("cam", item.Fields{Labels: []string{"camera"}}, []float32{0.2, 0.4, 0.4})}
	q := query.Query{Labels: []string{"camera"}, Embedding: []float32{0.2, 0.4, 0.4}}

	got := newService().FindMatches(context.Background(), q, candidates)
	want := WeightEmbedding*1 + WeightLabel*1
	if math.Abs(got[0].Score-want) > 1e-6 {
		t.Errorf("score = %f, want %f", got[0].Score, want)
	}
	// embedding ties label at 1.0 and wins the tie
	if got[0].Reason != dommatch.ReasonEmbedding {
		t.Errorf("reason = %q, want embedding", got[0].Reason)
	}
}

func TestFindMatches_NegativeCosineClamped(t *testing.T) {
	candidates := []item.Item{newItem("opp", item.Fields{}, []float32{-1, 0})}
	q := query.Query{Embedding: []float32{1, 0}}

	got := newService().FindMatches(context.Background(), q, candidates)
	if got[0].Score != 0 {
		t.Errorf("score = %f, want 0", got[0].Score)
	}
	if got[0].Reason != dommatch.ReasonDescription {
		t.Errorf("reason = %q, want description default", got[0].Reason)
	}
}

func TestFindMatches_MissingSignalsDegrade(t *testing.T) {
	candidates := []item.Item{newItem("a", item.Fields{}, nil), newItem("b", item.Fields{}, nil)}

	got := newService().FindMatches(context.Background(), query.Query{}, candidates)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	for i := range got {
		if got[i].Score != 0 || got[i].Reason != dommatch.ReasonDescription {
			t.Errorf("match %d = %+v", i, got[i])
		}
	}
	// stable tie-break keeps candidate order
	if ids(got)[0] != "a" || ids(got)[1] != "b" {
		t.Errorf("order = %v", ids(got))
	}
}

func TestFindMatches_Empty(t *testing.T) {
	got := newService().FindMatches(context.Background(), query.Query{Labels: []string{"x"}}, nil)
	if len(got) != 0 {
		t.Errorf("expected no matches, got %d", len(got))
	}
}

func TestComposite_Bounds(t *testing.T) {
	vals := []float64{0, 0.25, 0.5, 1}
	for _, e := range vals {
		for _, l := range vals {
			for _, d := range vals {
				s := Composite(dommatch.Signals{Embedding: e, Label: l, Description: d})
				if s < 0 || s > 1+eps {
					t.Errorf("Composite(%f, %f, %f) = %f", e, l, d, s)
				}
			}
		}
	}
	if s := Composite(dommatch.Signals{Embedding: 1, Label: 1, Description: 1}); math.Abs(s-1) > eps {
		t.Errorf("max composite = %f, want 1", s)
	}
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		name string
		s    dommatch.Signals
		want dommatch.Reason
	}{
		{"all zero", dommatch.Signals{}, dommatch.ReasonDescription},
		{"embedding wins", dommatch.Signals{Embedding: 0.8, Label: 0.2, Description: 0.1}, dommatch.ReasonEmbedding},
		{"label wins", dommatch.Signals{Embedding: 0.1, Label: 0.5, Description: 0.3}, dommatch.ReasonVision},
		{"description wins", dommatch.Signals{Label: 0.2, Description: 0.3}, dommatch.ReasonDescription},
		{"embedding ties label", dommatch.Signals{Embedding: 0.5, Label: 0.5}, dommatch.ReasonEmbedding},
		{"label ties description", dommatch.Signals{Label: 0.4, Description: 0.4}, dommatch.ReasonVision},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Attribute(tc.s); got != tc.want {
				t.Errorf("Attribute(%+v) = %q, want %q", tc.s, got, tc.want)
			}
		})
	}
}

func TestEmbeddingScore(t *testing.T) {
	if EmbeddingScore(nil, []float32{1}) != 0 {
		t.Error("nil query embedding must score 0")
	}
	if got := EmbeddingScore([]float32{1, 1}, []float32{1, 1}); math.Abs(got-1) > 1e-6 {
		t.Errorf("identical = %f", got)
	}
	if got := EmbeddingScore([]float32{1, 0}, []float32{-1, 0}); got != 0 {
		t.Errorf("opposite = %f, want clamped 0", got)
	}
}

func TestFindMatchesWithLookup_UsesFreshAnnotation(t *testing.T) {
	ann := &mockAnnotator{
		byImage: map[image.Ref]domain.Annotation{
			"/img/ring.png": {Labels: []string{"ring"}, WebEntities: []string{"silver"}},
		},
		errFor: map[image.Ref]error{"/img/broken.png": errors.New("vision down")},
	}
	candidates := []item.Item{
		// stored labels are stale; the fresh annotation matches the query
		newItem("ring", item.Fields{Labels: []string{"unknown"}, Image: "/img/ring.png"}, nil),
		newItem("broken", item.Fields{Labels: []string{"ring", "silver"}, Image: "/img/broken.png"}, nil),
		newItem("noimage", item.Fields{Labels: []string{"ring"}}, nil),
		// positive embedding keeps stored labels, no lookup
		newItem("embedded", item.Fields{Labels: []string{"ring"}, Image: "/img/e.png"}, []float32{1, 0}),
	}
	q := query.Query{Labels: []string{"ring"}, WebEntities: []string{"silver"}, Embedding: []float32{1, 0}}

	svc := New(ann, zap.NewNop()).WithDemoOverride(false).WithLookupLimits(1000, 2, time.Second)
	ctx, usage := domain.NewContextWithUsage(context.Background())
	got := svc.FindMatchesWithLookup(ctx, q, candidates)

	if len(got) != len(candidates) {
		t.Fatalf("expected %d matches, got %d", len(candidates), len(got))
	}
	byID := map[string]dommatch.Match{}
	for _, m := range got {
		byID[m.Item.ID()] = m
	}

	if s := byID["ring"].Score; math.Abs(s-WeightLabel*1) > eps {
		t.Errorf("ring score = %f, want %f", s, WeightLabel)
	}
	if byID["ring"].Reason != dommatch.ReasonVision {
		t.Errorf("ring reason = %q", byID["ring"].Reason)
	}
	if s := byID["broken"].Score; s != 0 {
		t.Errorf("failed lookup should score 0, got %f", s)
	}
	if s := byID["noimage"].Score; s != 0 {
		t.Errorf("imageless candidate without embedding should score 0, got %f", s)
	}
	wantEmbedded := WeightEmbedding*1 + WeightLabel*0.5
	if s := byID["embedded"].Score; math.Abs(s-wantEmbedded) > 1e-6 {
		t.Errorf("embedded score = %f, want %f", s, wantEmbedded)
	}

	if calls := ann.calls.Load(); calls != 2 {
		t.Errorf("annotator calls = %d, want 2", calls)
	}
	if usage.Lookups != 3 {
		t.Errorf("usage lookups = %d, want 3", usage.Lookups)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("not sorted at %d", i)
		}
	}
}

func TestFindMatchesWithLookup_ExactImageSkipsLookup(t *testing.T) {
	ann := &mockAnnotator{}
	candidates := []item.Item{newItem("x", item.Fields{Image: "data:image/png;base64,QUJD"}, nil)}
	q := query.Query{Image: "data:image/webp;base64,QUJD"}

	got := New(ann, zap.NewNop()).WithDemoOverride(false).FindMatchesWithLookup(context.Background(), q, candidates)
	if got[0].Reason != dommatch.ReasonExactImage {
		t.Errorf("reason = %q", got[0].Reason)
	}
	if ann.calls.Load() != 0 {
		t.Errorf("annotator called %d times", ann.calls.Load())
	}
}

func TestFindMatchesWithLookup_NilAnnotator(t *testing.T) {
	candidates := []item.Item{newItem("x", item.Fields{Labels: []string{"ring"}, Image: "/x.png"}, nil)}
	got := newService().FindMatchesWithLookup(context.Background(), query.Query{Labels: []string{"ring"}}, candidates)
	if got[0].Score != 0 {
		t.Errorf("score = %f, want 0 without annotator", got[0].Score)
	}
}

func TestFindMatches_LogsToRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	ctx := logpkg.ContextWithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "req-1")))
	candidates := []item.Item{newItem("a", item.Fields{Labels: []string{"ring"}}, nil)}

	New(nil, zap.NewNop()).WithDemoOverride(false).
		FindMatches(ctx, query.Query{Labels: []string{"ring"}}, candidates)

	entries := logs.FilterMessage("Matches scored").All()
	if len(entries) != 1 {
		t.Fatalf("expected one scoring log line on the request logger, got %d", len(entries))
	}
	if entries[0].ContextMap()["request_id"] != "req-1" {
		t.Errorf("fields = %v", entries[0].ContextMap())
	}
}
