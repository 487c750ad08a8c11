package domain

import "context"

type usageKey struct{}

// Usage collects provider token usage for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the service;
// collaborators add tokens; the handler reads it for response headers.
type Usage struct {
	EmbeddingTokens  int
	GenerativeTokens int
	Lookups          int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *Usage) {
	u := &Usage{}
	return context.WithValue(ctx, usageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *Usage {
	u, _ := ctx.Value(usageKey{}).(*Usage)
	return u
}

// AddEmbeddingTokens records tokens consumed by the embedding provider.
func (u *Usage) AddEmbeddingTokens(n int) {
	if u != nil {
		u.EmbeddingTokens += n
	}
}

// AddGenerativeTokens records tokens consumed by the text generator.
func (u *Usage) AddGenerativeTokens(n int) {
	if u != nil {
		u.GenerativeTokens += n
	}
}

// AddLookups records on-demand annotation calls.
func (u *Usage) AddLookups(n int) {
	if u != nil {
		u.Lookups += n
	}
}
