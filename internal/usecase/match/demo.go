//go:build !nodemo

package match

import (
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
)

// DemoScore is the score given to the demo-forced match.
const DemoScore = 0.95

// DemoAvailable reports whether this build can force demo matches.
const DemoAvailable = true

// applyDemoOverride prepends the first original candidate as a forced match and
// drops its scored entry. Build with -tags nodemo to compile it out.
func applyDemoOverride(sorted []dommatch.Match, candidates []item.Item) ([]dommatch.Match, bool) {
	if len(candidates) == 0 {
		return sorted, false
	}
	first := candidates[0]

	out := make([]dommatch.Match, 0, len(sorted)+1)
	out = append(out, dommatch.Match{
		Item:          first,
		Score:         DemoScore,
		MatchedLabels: first.Fields().Labels,
		Reason:        dommatch.ReasonPrototype,
	})
	for _, m := range sorted {
		if m.Item.ID() == first.ID() {
			continue
		}
		out = append(out, m)
	}
	return out, true
}
