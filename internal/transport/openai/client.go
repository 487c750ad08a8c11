package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
)

// Config holds the settings shared by every OpenAI-compatible collaborator.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // embeddings only
	// CaptionModel is the vision chat model that describes an image before it is embedded.
	CaptionModel string
	// ImageBaseURL resolves relative image references (e.g. the bundled samples).
	ImageBaseURL string
	User         string
	Provider     string
	Logger       *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientCfg)
}

// imageURL returns the reference the chat API can fetch: data URLs and absolute
// URLs as they are, relative paths joined to base.
func imageURL(img image.Ref, base string) string {
	ref := string(img)
	if strings.HasPrefix(ref, "/") && base != "" {
		return strings.TrimRight(base, "/") + ref
	}
	return ref
}

// parseAPIError extracts a human-readable error from the API response and wraps
// it with the caller's sentinel so transport maps it to 502.
func parseAPIError(kind string, err, wrap error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("%s API error %d: %s: %w", kind, reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("%s request failed: %v: %w", kind, err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
