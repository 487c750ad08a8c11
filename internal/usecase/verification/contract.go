package verification

import (
	"context"

	"github.com/kailas-cloud/lostfound/internal/domain"
)

// Generator produces short free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (domain.Generation, error)
}
