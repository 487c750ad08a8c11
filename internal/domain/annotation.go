package domain

import (
	"context"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// Annotation is the semantic content a vision service found in an image.
type Annotation struct {
	Labels      []string
	WebEntities []string
}

// IsEmpty reports whether the annotation carries no evidence.
func (a Annotation) IsEmpty() bool { return len(a.Labels) == 0 && len(a.WebEntities) == 0 }

// All returns labels followed by web entities.
func (a Annotation) All() []string {
	out := make([]string, 0, len(a.Labels)+len(a.WebEntities))
	out = append(out, a.Labels...)
	return append(out, a.WebEntities...)
}

// Annotator turns an image into labels and web entities.
// Implementations return an empty Annotation, not an error, when credentials are missing.
type Annotator interface {
	Annotate(ctx context.Context, img image.Ref) (Annotation, error)
}

// Generator produces short free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (Generation, error)
}

// Generation is generated text with its token usage.
type Generation struct {
	Text        string
	TotalTokens int
}
