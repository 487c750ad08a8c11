package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

// Generator produces short verification text through a chat model.
type Generator struct {
	client *openai.Client
	model  string
	user   string
	logger *zap.Logger
}

// NewGenerator creates a chat completion text generator.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		client: newClient(cfg),
		model:  cfg.Model,
		user:   cfg.User,
		logger: cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (domain.Generation, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: maxTokens,
		User:      g.user,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.Generation{}, parseAPIError("generation", err, domain.ErrGeneratorError)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "empty").Inc()
		return domain.Generation{}, fmt.Errorf("empty generation: %w", domain.ErrGeneratorError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	g.logger.Debug("Generation completed",
		zap.String("model", g.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return domain.Generation{Text: resp.Choices[0].Message.Content, TotalTokens: resp.Usage.TotalTokens}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
