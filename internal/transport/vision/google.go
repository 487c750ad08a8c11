// Package vision implements image annotation against the Google Cloud Vision REST API.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	"github.com/kailas-cloud/lostfound/internal/metrics"
)

const (
	// DefaultEndpoint is the public Vision API.
	DefaultEndpoint = "https://vision.googleapis.com/v1"
	// MaxResults caps labels and web entities per feature.
	MaxResults = 10

	provider     = "google"
	maxErrorBody = 512
)

// Config holds the Vision API settings.
type Config struct {
	APIKey   string
	Endpoint string
	// ImageBaseURL resolves relative image references (e.g. the bundled samples).
	ImageBaseURL string
	Timeout      time.Duration
	Logger       *zap.Logger
}

// Google annotates images with LABEL_DETECTION and WEB_DETECTION.
type Google struct {
	apiKey       string
	endpoint     string
	imageBaseURL string
	http         *http.Client
	logger       *zap.Logger
}

// NewGoogle creates a Vision annotator.
func NewGoogle(cfg Config) *Google {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Google{
		apiKey:       cfg.APIKey,
		endpoint:     strings.TrimRight(endpoint, "/"),
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
		http:         &http.Client{Timeout: timeout},
		logger:       cfg.Logger,
	}
}

// Configured reports whether an API key is set.
func (g *Google) Configured() bool { return g.apiKey != "" }

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    requestImage `json:"image"`
	Features []feature    `json:"features"`
}

type requestImage struct {
	Content string       `json:"content,omitempty"`
	Source  *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	ImageURI string `json:"imageUri"`
}

type feature struct {
	Type       string `json:"type"`
	MaxResults int    `json:"maxResults"`
}

type annotateResponse struct {
	Responses []struct {
		LabelAnnotations []struct {
			Description string `json:"description"`
		} `json:"labelAnnotations"`
		WebDetection struct {
			WebEntities []struct {
				Description string `json:"description"`
			} `json:"webEntities"`
		} `json:"webDetection"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// Annotate implements domain.Annotator. Without an API key it returns an empty
// annotation so matching continues on the remaining signals.
func (g *Google) Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error) {
	if !g.Configured() {
		g.logger.Debug("Vision API key not set, skipping annotation")
		return domain.Annotation{}, nil
	}
	if img.IsEmpty() {
		return domain.Annotation{}, nil
	}

	src, err := g.requestImage(img)
	if err != nil {
		return domain.Annotation{}, err
	}

	body, err := json.Marshal(annotateRequest{Requests: []imageRequest{{
		Image: src,
		Features: []feature{
			{Type: "LABEL_DETECTION", MaxResults: MaxResults},
			{Type: "WEB_DETECTION", MaxResults: MaxResults},
		},
	}}})
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("encode vision request: %w", err)
	}

	start := time.Now()
	ann, err := g.do(ctx, body)
	metrics.AnnotationRequestDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnnotationRequestsTotal.WithLabelValues(provider, "error").Inc()
		return domain.Annotation{}, err
	}
	metrics.AnnotationRequestsTotal.WithLabelValues(provider, "success").Inc()
	return ann, nil
}

func (g *Google) do(ctx context.Context, body []byte) (domain.Annotation, error) {
	u := g.endpoint + "/images:annotate?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return domain.Annotation{}, fmt.Errorf("vision request failed: %v: %w", err, domain.ErrAnnotatorError)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		txt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.Annotation{}, fmt.Errorf("vision API error %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(txt)), domain.ErrAnnotatorError)
	}

	var parsed annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return domain.Annotation{}, fmt.Errorf("decode vision response: %v: %w", err, domain.ErrAnnotatorError)
	}
	if len(parsed.Responses) == 0 {
		return domain.Annotation{}, nil
	}

	r := parsed.Responses[0]
	if r.Error != nil {
		return domain.Annotation{}, fmt.Errorf("vision API error %d: %s: %w",
			r.Error.Code, r.Error.Message, domain.ErrAnnotatorError)
	}

	var ann domain.Annotation
	for _, l := range r.LabelAnnotations {
		if l.Description != "" {
			ann.Labels = append(ann.Labels, l.Description)
		}
	}
	for _, e := range r.WebDetection.WebEntities {
		if e.Description != "" {
			ann.WebEntities = append(ann.WebEntities, e.Description)
		}
	}
	return ann, nil
}

// requestImage sends data URLs inline and lets Vision fetch remote URLs itself.
func (g *Google) requestImage(img image.Ref) (requestImage, error) {
	if img.IsDataURL() {
		return requestImage{Content: img.Payload()}, nil
	}

	ref := string(img)
	if strings.HasPrefix(ref, "/") && g.imageBaseURL != "" {
		ref = g.imageBaseURL + ref
	}
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		return requestImage{}, fmt.Errorf("image %q is not reachable by the vision API: %w", ref, domain.ErrAnnotatorError)
	}
	return requestImage{Source: &imageSource{ImageURI: ref}}, nil
}
