// Package similarity holds the set and vector similarity primitives used by matching and risk scoring.
package similarity

import (
	"math"
	"strings"
)

// Tokenize lowercases s and splits it on runs of characters outside [a-z0-9].
// Empty tokens are dropped.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
}

// Jaccard returns |a ∩ b| / |a ∪ b| over the case-insensitive sets of a and b.
// Two empty sets have similarity 0.
func Jaccard(a, b []string) float64 {
	sa := lowerSet(a)
	sb := lowerSet(b)

	inter := 0
	for k := range sa {
		if _, ok := sb[k]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Cosine returns the cosine similarity of a and b.
// Returns 0 if either vector is empty or has zero magnitude.
// Components missing from the shorter vector count as 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i, v := range a {
		fa := float64(v)
		normA += fa * fa
		if i < len(b) {
			dot += fa * float64(b[i])
		}
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// LowerSet returns the lowercase set of values.
func LowerSet(values []string) map[string]struct{} {
	return lowerSet(values)
}

func lowerSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[strings.ToLower(v)] = struct{}{}
	}
	return s
}
