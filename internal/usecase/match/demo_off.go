//go:build nodemo

package match

import (
	"github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
)

// DemoAvailable reports whether this build can force demo matches.
const DemoAvailable = false

func applyDemoOverride(sorted []dommatch.Match, _ []item.Item) ([]dommatch.Match, bool) {
	return sorted, false
}
