package verification

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
)

// Output limits for generated text.
const (
	MaxQuestions            = 3
	QuestionsMaxTokens      = 300
	DescriptionMaxTokens    = 100
	fallbackNoDescription   = "Image description not available."
	fallbackDescriptionTmpl = "Image appears to contain: %s."
)

// Question is one ownership verification prompt shown to the claimant.
type Question struct {
	ID          int
	Question    string
	Placeholder string
}

// DefaultQuestions are asked when generation is disabled or fails.
func DefaultQuestions() []Question {
	return []Question{
		{ID: 1, Question: "Can you describe any unique markings or features?", Placeholder: "e.g., scratch on corner, initials"},
		{ID: 2, Question: "When did you last have the item?", Placeholder: "e.g., Yesterday around 3pm"},
		{ID: 3, Question: "What is the approximate value of this item?", Placeholder: "e.g., $50-100"},
	}
}

var numberPrefix = regexp.MustCompile(`^\d+[.)]?\s*`)

// Service builds the ownership verification step.
type Service struct {
	generator Generator
	logger    *zap.Logger
}

// New creates a verification service. A nil generator always yields the fallbacks.
func New(generator Generator, logger *zap.Logger) *Service {
	return &Service{generator: generator, logger: logger}
}

// Enabled reports whether questions and descriptions are generated.
func (s *Service) Enabled() bool { return s.generator != nil }

// Questions returns up to three verification questions about the top match.
func (s *Service) Questions(ctx context.Context, top dommatch.Match) []Question {
	if s.generator == nil {
		return DefaultQuestions()
	}

	it := &top.Item
	prompt := fmt.Sprintf("You are an assistant that generates 3 short verification questions "+
		"(question + short placeholder) to safely verify ownership of a found item. "+
		"The match info: title: %s, labels: %s, description: %s, location: %s. "+
		`Return the questions one per line as: "1. Question? | placeholder"`,
		orUnknown(it.Title()), strings.Join(it.Labels(), ", "), it.Description(), it.Location())

	gen, err := s.generator.Generate(ctx, prompt, QuestionsMaxTokens)
	if err != nil {
		s.logger.Warn("Question generation failed, using defaults", zap.Error(err))
		return DefaultQuestions()
	}
	domain.UsageFromContext(ctx).AddGenerativeTokens(gen.TotalTokens)

	out := ParseQuestions(gen.Text)
	if len(out) == 0 {
		return DefaultQuestions()
	}
	return out
}

// Describe returns a one or two sentence description of an image from its annotation.
func (s *Service) Describe(ctx context.Context, ann domain.Annotation, location string) string {
	labels := strings.Join(ann.Labels, ", ")
	fallback := fallbackNoDescription
	if labels != "" {
		fallback = fmt.Sprintf(fallbackDescriptionTmpl, labels)
	}
	if s.generator == nil {
		return fallback
	}

	prompt := fmt.Sprintf("Write a 1-2 sentence description of an image using the following detected tags: %s. "+
		"If location or context is relevant, mention it: %s.", labels, location)

	gen, err := s.generator.Generate(ctx, prompt, DescriptionMaxTokens)
	if err != nil {
		s.logger.Warn("Description generation failed, using fallback", zap.Error(err))
		return fallback
	}
	domain.UsageFromContext(ctx).AddGenerativeTokens(gen.TotalTokens)

	desc := strings.Join(nonEmptyLines(gen.Text), " ")
	if desc == "" {
		return fallback
	}
	return desc
}

// ParseQuestions reads lines of the form "1. Question? | placeholder", keeping at most three.
func ParseQuestions(text string) []Question {
	var out []Question
	for _, line := range nonEmptyLines(text) {
		q, placeholder, _ := strings.Cut(line, "|")
		q = numberPrefix.ReplaceAllString(strings.TrimSpace(q), "")
		if q == "" {
			continue
		}
		out = append(out, Question{
			ID:          len(out) + 1,
			Question:    q,
			Placeholder: strings.TrimSpace(strings.Split(placeholder, "|")[0]),
		})
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
