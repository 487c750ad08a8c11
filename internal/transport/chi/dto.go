package chi

import (
	"time"

	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	"github.com/kailas-cloud/lostfound/internal/domain/item/patch"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	"github.com/kailas-cloud/lostfound/internal/domain/query"
	"github.com/kailas-cloud/lostfound/internal/usecase/verification"
)

// ErrorCode is the machine-readable error kind returned to clients.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest       ErrorCode = "bad_request"
	ErrorCodeValidationFailed ErrorCode = "validation_failed"
	ErrorCodeUnauthorized     ErrorCode = "unauthorized"
	ErrorCodeItemNotFound     ErrorCode = "item_not_found"
	ErrorCodeProviderError    ErrorCode = "provider_error"
	ErrorCodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ItemResponse is a found item as returned by the API. Embeddings stay server side.
type ItemResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ImageURL     string    `json:"image_url,omitempty"`
	Labels       []string  `json:"labels"`
	Description  string    `json:"description,omitempty"`
	Location     string    `json:"location,omitempty"`
	DeskLocation string    `json:"desk_location,omitempty"`
	SavedBy      string    `json:"saved_by"`
	HasEmbedding bool      `json:"has_embedding"`
	CreatedAt    time.Time `json:"created_at"`
}

// ItemListResponse wraps GET /items.
type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int            `json:"total"`
}

// CreateItemRequest is the body of POST /items.
type CreateItemRequest struct {
	Title        string   `json:"title"`
	ImageURL     string   `json:"image_url"`
	Labels       []string `json:"labels"`
	Description  string   `json:"description"`
	Location     string   `json:"location"`
	DeskLocation string   `json:"desk_location"`
	SavedBy      string   `json:"saved_by"`
}

// PatchItemRequest is the body of PATCH /items/{id}. Absent fields stay unchanged.
type PatchItemRequest struct {
	Title        *string  `json:"title"`
	ImageURL     *string  `json:"image_url"`
	Labels       []string `json:"labels"`
	Description  *string  `json:"description"`
	Location     *string  `json:"location"`
	DeskLocation *string  `json:"desk_location"`
}

// MatchRequest is the body of POST /matches.
type MatchRequest struct {
	ImageURL    string    `json:"image_url"`
	Labels      []string  `json:"labels"`
	WebEntities []string  `json:"web_entities"`
	Embedding   []float32 `json:"embedding"`
	Description string    `json:"description"`
	Lookup      bool      `json:"lookup"`
	Questions   bool      `json:"questions"`
	Limit       int       `json:"limit"`
}

// MatchResponse is one ranked candidate.
type MatchResponse struct {
	Item          ItemResponse `json:"item"`
	Score         float64      `json:"score"`
	MatchedLabels []string     `json:"matched_labels"`
	Reason        string       `json:"reason"`
}

// MatchListResponse is the body returned by POST /matches.
type MatchListResponse struct {
	Matches   []MatchResponse    `json:"matches"`
	Risk      string             `json:"risk"`
	Questions []QuestionResponse `json:"questions,omitempty"`
}

// MatchRef identifies a previously returned match by item ID.
type MatchRef struct {
	ItemID        string   `json:"item_id"`
	Score         float64  `json:"score"`
	MatchedLabels []string `json:"matched_labels"`
}

// RiskRequest is the body of POST /risk. Only the first match is assessed.
type RiskRequest struct {
	Matches []MatchRef `json:"matches"`
}

// RiskResponse is the body returned by POST /risk.
type RiskResponse struct {
	Risk string `json:"risk"`
}

// QuestionResponse is one ownership verification question.
type QuestionResponse struct {
	ID          int    `json:"id"`
	Question    string `json:"question"`
	Placeholder string `json:"placeholder"`
}

// QuestionListResponse is the body returned by POST /verification/questions.
type QuestionListResponse struct {
	Questions []QuestionResponse `json:"questions"`
}

// DescriptionRequest is the body of POST /verification/description.
type DescriptionRequest struct {
	ImageURL    string   `json:"image_url"`
	Labels      []string `json:"labels"`
	WebEntities []string `json:"web_entities"`
	Location    string   `json:"location"`
}

// DescriptionResponse is the body returned by POST /verification/description.
type DescriptionResponse struct {
	Description string `json:"description"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func itemToResponse(it *domitem.Item) ItemResponse {
	labels := it.Labels()
	if labels == nil {
		labels = []string{}
	}
	return ItemResponse{
		ID:           it.ID(),
		Title:        it.Title(),
		ImageURL:     string(it.Image()),
		Labels:       labels,
		Description:  it.Description(),
		Location:     it.Location(),
		DeskLocation: it.DeskLocation(),
		SavedBy:      string(it.SavedBy()),
		HasEmbedding: len(it.Embedding()) > 0,
		CreatedAt:    it.CreatedAt().UTC(),
	}
}

func matchToResponse(m *dommatch.Match) MatchResponse {
	labels := m.MatchedLabels
	if labels == nil {
		labels = []string{}
	}
	return MatchResponse{
		Item:          itemToResponse(&m.Item),
		Score:         m.Score,
		MatchedLabels: labels,
		Reason:        string(m.Reason),
	}
}

func questionsToResponse(qs []verification.Question) []QuestionResponse {
	if len(qs) == 0 {
		return nil
	}
	out := make([]QuestionResponse, len(qs))
	for i, q := range qs {
		out[i] = QuestionResponse{ID: q.ID, Question: q.Question, Placeholder: q.Placeholder}
	}
	return out
}

func (r *CreateItemRequest) fields() domitem.Fields {
	return domitem.Fields{
		Title:        r.Title,
		Image:        image.Ref(r.ImageURL),
		Labels:       r.Labels,
		Description:  r.Description,
		Location:     r.Location,
		DeskLocation: r.DeskLocation,
		SavedBy:      domitem.Provenance(r.SavedBy),
	}
}

func (r *PatchItemRequest) fields() patch.Fields {
	f := patch.Fields{
		Title:        r.Title,
		Labels:       r.Labels,
		Description:  r.Description,
		Location:     r.Location,
		DeskLocation: r.DeskLocation,
	}
	if r.ImageURL != nil {
		img := image.Ref(*r.ImageURL)
		f.Image = &img
	}
	return f
}

func (r *MatchRequest) query() query.Query {
	return query.Query{
		Labels:      r.Labels,
		WebEntities: r.WebEntities,
		Embedding:   r.Embedding,
		Description: r.Description,
		Image:       image.Ref(r.ImageURL),
	}
}
