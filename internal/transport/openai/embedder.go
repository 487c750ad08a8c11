package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

// DefaultCaptionModel describes images when Config.CaptionModel is empty.
const DefaultCaptionModel = "gpt-4o-mini"

const captionPrompt = `Describe the object in this photo of a lost or found item for visual matching. ` +
	`One paragraph, at most 80 words: object type, colors, material, shape, size, brand or logo, ` +
	`text printed on it, wear, scratches and other distinctive marks. Describe only what is visible.`

const captionMaxTokens = 160

// Embedder turns an image into a vector of its visual content in two steps:
// a vision chat model captions the image, then the caption is embedded with a
// text embedding model. The image reference itself is never embedded.
type Embedder struct {
	client       *openai.Client
	model        openai.EmbeddingModel
	captionModel string
	dimensions   int
	baseURL      string
	user         string
	provider     string
	logger       *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible image embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	captionModel := cfg.CaptionModel
	if captionModel == "" {
		captionModel = DefaultCaptionModel
	}
	return &Embedder{
		client:       newClient(cfg),
		model:        openai.EmbeddingModel(cfg.Model),
		captionModel: captionModel,
		dimensions:   cfg.Dimensions,
		baseURL:      cfg.ImageBaseURL,
		user:         cfg.User,
		provider:     cfg.Provider,
		logger:       cfg.Logger,
	}
}

// Embed implements domain.Embedder. Token usage covers both calls.
func (e *Embedder) Embed(ctx context.Context, img image.Ref) (domain.EmbeddingResult, error) {
	if img.IsEmpty() {
		return domain.EmbeddingResult{}, fmt.Errorf("empty image: %w", domain.ErrEmbeddingProviderError)
	}

	start := time.Now()

	caption, captionUsage, err := e.caption(ctx, img)
	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "caption_error").Inc()
		return domain.EmbeddingResult{}, err
	}

	req := openai.EmbeddingRequest{
		Input:          []string{caption},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError("embedding", err, domain.ErrEmbeddingProviderError)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	e.logger.Debug("Image embedded",
		zap.String("caption_model", e.captionModel),
		zap.Int("caption_len", len(caption)),
		zap.Duration("duration", duration),
	)

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: captionUsage.PromptTokens + resp.Usage.PromptTokens,
		TotalTokens:  captionUsage.TotalTokens + resp.Usage.TotalTokens,
	}, nil
}

// caption asks the vision model for a visual description of img.
func (e *Embedder) caption(ctx context.Context, img image.Ref) (string, openai.Usage, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.captionModel,
		MaxTokens:   captionMaxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: captionPrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    imageURL(img, e.baseURL),
					Detail: openai.ImageURLDetailLow,
				}},
			},
		}},
	})
	if err != nil {
		return "", openai.Usage{}, parseAPIError("caption", err, domain.ErrEmbeddingProviderError)
	}
	if len(resp.Choices) == 0 {
		return "", openai.Usage{}, fmt.Errorf("empty caption response: %w", domain.ErrEmbeddingProviderError)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", openai.Usage{}, fmt.Errorf("empty caption: %w", domain.ErrEmbeddingProviderError)
	}
	return text, resp.Usage, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
