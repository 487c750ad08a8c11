package risk

import "github.com/kailas-cloud/lostfound/internal/domain/similarity"

// Calibration of the keyword/confidence cascade.
const (
	KeywordThreshold     = 0.6
	ConfidenceWeight     = 0.6
	KeywordWeight        = 0.4
	RiskThreshold        = 0.6
	LookupConfidence     = 0.8
	StrongKeywordScore   = 1.0
	ModerateKeywordScore = 0.5
)

// strongKeywords mark high-value items.
var strongKeywords = map[string]struct{}{
	"wallet": {}, "jewelry": {}, "ring": {}, "phone": {}, "id": {}, "passport": {},
	"credit": {}, "card": {}, "laptop": {}, "watch": {}, "keys": {}, "camera": {},
	"tablet": {},
	// metals and jewelry pieces
	"gold": {}, "silver": {}, "necklace": {}, "bracelet": {}, "earring": {},
	"chain": {}, "diamond": {}, "gem": {}, "medallion": {},
}

var moderateKeywords = map[string]struct{}{
	"bag": {}, "purse": {}, "backpack": {}, "documents": {},
}

// IsStrongKeyword reports whether a single token names a high-value item.
func IsStrongKeyword(token string) bool {
	_, ok := strongKeywords[token]
	return ok
}

// containsAny reports whether any token of any value is in set.
// Membership is per token, so "ring" never matches "earrings" or "bring".
func containsAny(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		for _, tok := range similarity.Tokenize(v) {
			if _, ok := set[tok]; ok {
				return true
			}
		}
	}
	return false
}

// KeywordScore grades a token bag: strong anywhere, else moderate, else nothing.
func KeywordScore(bag []string) float64 {
	switch {
	case containsAny(bag, strongKeywords):
		return StrongKeywordScore
	case containsAny(bag, moderateKeywords):
		return ModerateKeywordScore
	default:
		return 0
	}
}

// Fuse combines match confidence with keyword evidence, capped at 1.
func Fuse(confidence, keywordScore float64) float64 {
	return min(1, confidence*ConfidenceWeight+keywordScore*KeywordWeight)
}
