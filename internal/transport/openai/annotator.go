package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

const annotatePrompt = `List what this photo of a lost or found object shows. ` +
	`Reply with JSON only: {"labels": [up to 10 short lowercase nouns or adjectives, most specific first], ` +
	`"web_entities": [up to 5 brand, product or model names, empty if none]}`

const annotateMaxTokens = 200

// Annotator labels images through a vision-capable chat model.
type Annotator struct {
	client   *openai.Client
	model    string
	provider string
	baseURL  string
	logger   *zap.Logger
}

// NewAnnotator creates a vision chat annotator.
func NewAnnotator(cfg *Config) *Annotator {
	return &Annotator{
		client:   newClient(cfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		baseURL:  cfg.ImageBaseURL,
		logger:   cfg.Logger,
	}
}

type annotationPayload struct {
	Labels      []string `json:"labels"`
	WebEntities []string `json:"web_entities"`
}

// Annotate implements domain.Annotator.
func (a *Annotator) Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error) {
	if img.IsEmpty() {
		return domain.Annotation{}, nil
	}

	req := openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: annotateMaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: annotatePrompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    string(img),
					Detail: openai.ImageURLDetailLow,
				}},
			},
		}},
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, req)
	metrics.AnnotationRequestDuration.WithLabelValues(a.provider).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.AnnotationRequestsTotal.WithLabelValues(a.provider, "error").Inc()
		return domain.Annotation{}, parseAPIError("vision", err, domain.ErrAnnotatorError)
	}
	if len(resp.Choices) == 0 {
		metrics.AnnotationRequestsTotal.WithLabelValues(a.provider, "error").Inc()
		return domain.Annotation{}, fmt.Errorf("empty vision response: %w", domain.ErrAnnotatorError)
	}

	ann, err := parseAnnotation(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.AnnotationRequestsTotal.WithLabelValues(a.provider, "error").Inc()
		return domain.Annotation{}, err
	}

	metrics.AnnotationRequestsTotal.WithLabelValues(a.provider, "success").Inc()
	return ann, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (a *Annotator) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAnnotation reads the model reply, tolerating a fenced code block around the JSON.
func parseAnnotation(content string) (domain.Annotation, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var p annotationPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &p); err != nil {
		return domain.Annotation{}, fmt.Errorf("decode vision reply: %v: %w", err, domain.ErrAnnotatorError)
	}
	return domain.Annotation{Labels: clean(p.Labels), WebEntities: clean(p.WebEntities)}, nil
}

func clean(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
