// Package query defines the one-shot lost-item query scored against found items.
package query

import "github.com/kailas-cloud/lostfound/internal/domain/image"

// Query describes a lost item. Every field is optional; missing signals score zero.
type Query struct {
	Labels      []string
	WebEntities []string
	Embedding   []float32
	Description string
	Image       image.Ref
}

// AllLabels returns the vision labels followed by the web entities.
func (q *Query) AllLabels() []string {
	out := make([]string, 0, len(q.Labels)+len(q.WebEntities))
	out = append(out, q.Labels...)
	return append(out, q.WebEntities...)
}

// HasEmbedding reports whether the query carries an embedding vector.
func (q *Query) HasEmbedding() bool { return len(q.Embedding) > 0 }
