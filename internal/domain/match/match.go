// Package match defines scored associations between a query and a found item.
package match

import "github.com/kailas-cloud/lostfound/internal/domain/item"

// Reason names the signal that dominated a match score.
type Reason string

const (
	// ReasonExactImage marks a byte-identical image.
	ReasonExactImage Reason = "exact-image"
	// ReasonEmbedding marks image embedding similarity as the strongest signal.
	ReasonEmbedding Reason = "embedding"
	// ReasonVision marks vision label overlap as the strongest signal.
	ReasonVision Reason = "vision"
	// ReasonDescription marks description overlap as the strongest signal (also the all-zero default).
	ReasonDescription Reason = "description"
	// ReasonPrototype marks a demo-forced match.
	ReasonPrototype Reason = "prototype"
)

// Match is a candidate item with its score in [0,1].
type Match struct {
	Item          item.Item
	Score         float64
	MatchedLabels []string
	Reason        Reason
}

// Signals holds the per-signal sub-scores behind a composite score.
type Signals struct {
	Embedding   float64
	Label       float64
	Description float64
}
