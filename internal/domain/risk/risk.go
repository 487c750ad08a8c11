// Package risk defines the binary fraud-risk verdict for a matched item.
package risk

// Level is a risk verdict.
type Level string

const (
	// Low lets the recovery flow continue without extra checks.
	Low Level = "low"
	// High requires ownership verification before release.
	High Level = "high"
)

// IsHigh reports whether the verdict gates recovery behind verification.
func (l Level) IsHigh() bool { return l == High }
