package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lostfound/internal/domain"
	"github.com/kailas-cloud/lostfound/internal/domain/image"
	domitem "github.com/kailas-cloud/lostfound/internal/domain/item"
	dommatch "github.com/kailas-cloud/lostfound/internal/domain/match"
	logpkg "github.com/kailas-cloud/lostfound/internal/logger"
	healthuc "github.com/kailas-cloud/lostfound/internal/usecase/health"
	itemuc "github.com/kailas-cloud/lostfound/internal/usecase/item"
	riskuc "github.com/kailas-cloud/lostfound/internal/usecase/risk"
	searchuc "github.com/kailas-cloud/lostfound/internal/usecase/search"
	verificationuc "github.com/kailas-cloud/lostfound/internal/usecase/verification"
)

// maxBodyBytes bounds request bodies; data URL images dominate the size.
const maxBodyBytes = 10 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Annotator labels an image for the description endpoint.
type Annotator interface {
	Annotate(ctx context.Context, img image.Ref) (domain.Annotation, error)
}

// Server holds the HTTP handlers of the lost & found API.
type Server struct {
	search        *searchuc.Service
	risk          *riskuc.Service
	items         *itemuc.Service
	verification  *verificationuc.Service
	annotator     Annotator
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. annotator may be nil.
func NewServer(
	search *searchuc.Service,
	risk *riskuc.Service,
	items *itemuc.Service,
	verification *verificationuc.Service,
	annotator Annotator,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:       search,
		risk:         risk,
		items:        items,
		verification: verification,
		annotator:    annotator,
		health:       health,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrItemNotFound, http.StatusNotFound, ErrorCodeItemNotFound),
		sentinelHandler(domain.ErrInvalidItem, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrAnnotatorError, http.StatusBadGateway, ErrorCodeProviderError),
		sentinelHandler(domain.ErrGeneratorError, http.StatusBadGateway, ErrorCodeProviderError),
	}
	return s
}

// Routes registers every endpoint on r. deskGuard wraps the desk-only mutations.
func (s *Server) Routes(r chi.Router, deskGuard func(http.Handler) http.Handler) {
	r.Post("/matches", s.FindMatches)
	r.Post("/risk", s.AssessRisk)

	r.Get("/items", s.ListItems)
	r.Post("/items", s.CreateItem)
	r.Get("/items/{id}", s.GetItem)
	r.With(deskGuard).Patch("/items/{id}", s.PatchItem)
	r.With(deskGuard).Delete("/items/{id}", s.DeleteItem)

	r.Post("/verification/questions", s.VerificationQuestions)
	r.Post("/verification/description", s.VerificationDescription)

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// FindMatches handles POST /matches.
func (s *Server) FindMatches(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Limit < 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "limit must not be negative")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.search.Search(ctx, searchuc.Request{
		Query:     req.query(),
		Lookup:    req.Lookup,
		Questions: req.Questions,
		Limit:     req.Limit,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	matches := make([]MatchResponse, len(res.Matches))
	for i := range res.Matches {
		matches[i] = matchToResponse(&res.Matches[i])
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, MatchListResponse{
		Matches:   matches,
		Risk:      string(res.Risk),
		Questions: questionsToResponse(res.Questions),
	})
}

// AssessRisk handles POST /risk.
func (s *Server) AssessRisk(w http.ResponseWriter, r *http.Request) {
	var req RiskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	matches := make([]dommatch.Match, 0, len(req.Matches))
	for _, ref := range req.Matches {
		m, err := s.resolveMatch(r.Context(), ref)
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		matches = append(matches, m)
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	level := s.risk.Assess(ctx, matches)

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, RiskResponse{Risk: string(level)})
}

// ListItems handles GET /items.
func (s *Server) ListItems(w http.ResponseWriter, r *http.Request) {
	savedBy := domitem.Provenance(r.URL.Query().Get("saved_by"))
	if savedBy != "" && !savedBy.Valid() {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("saved_by must be %q or %q", domitem.SavedByPeer, domitem.SavedByDesk))
		return
	}

	items, err := s.items.List(r.Context(), savedBy)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ItemListResponse{Items: make([]ItemResponse, len(items)), Total: len(items)}
	for i := range items {
		resp.Items[i] = itemToResponse(&items[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateItem handles POST /items.
func (s *Server) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	it, err := s.items.Create(ctx, req.fields())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/items/"+it.ID())
	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusCreated, itemToResponse(&it))
}

// GetItem handles GET /items/{id}.
func (s *Server) GetItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.items.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, itemToResponse(&it))
}

// PatchItem handles PATCH /items/{id}.
func (s *Server) PatchItem(w http.ResponseWriter, r *http.Request) {
	var req PatchItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	it, err := s.items.Patch(ctx, chi.URLParam(r, "id"), req.fields())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, itemToResponse(&it))
}

// DeleteItem handles DELETE /items/{id}.
func (s *Server) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.items.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerificationQuestions handles POST /verification/questions.
func (s *Server) VerificationQuestions(w http.ResponseWriter, r *http.Request) {
	var req MatchRef
	if !decodeBody(w, r, &req) {
		return
	}

	m, err := s.resolveMatch(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	qs := s.verification.Questions(ctx, m)

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, QuestionListResponse{Questions: questionsToResponse(qs)})
}

// VerificationDescription handles POST /verification/description.
func (s *Server) VerificationDescription(w http.ResponseWriter, r *http.Request) {
	var req DescriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	ann := domain.Annotation{Labels: req.Labels, WebEntities: req.WebEntities}
	img := image.Ref(req.ImageURL)
	if ann.IsEmpty() && !img.IsEmpty() && s.annotator != nil {
		got, err := s.annotator.Annotate(ctx, img)
		if err != nil {
			logpkg.FromContext(ctx, s.logger).Warn("Description annotation failed", zap.Error(err))
		} else {
			ann = got
		}
	}

	desc := s.verification.Describe(ctx, ann, req.Location)

	setUsageHeaders(w, usage)
	writeJSON(w, http.StatusOK, DescriptionResponse{Description: desc})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// resolveMatch rebuilds a match from a client-held reference.
func (s *Server) resolveMatch(ctx context.Context, ref MatchRef) (dommatch.Match, error) {
	if ref.ItemID == "" {
		return dommatch.Match{}, fmt.Errorf("%w: item_id is required", domain.ErrInvalidQuery)
	}
	if ref.Score < 0 || ref.Score > 1 {
		return dommatch.Match{}, fmt.Errorf("%w: score must be within [0,1]", domain.ErrInvalidQuery)
	}
	it, err := s.items.Get(ctx, ref.ItemID)
	if err != nil {
		return dommatch.Match{}, err
	}
	return dommatch.Match{Item: it, Score: ref.Score, MatchedLabels: ref.MatchedLabels}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	if usage == nil {
		return
	}
	if usage.EmbeddingTokens > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.EmbeddingTokens))
	}
	if usage.GenerativeTokens > 0 {
		w.Header().Set("X-Generative-Tokens", strconv.Itoa(usage.GenerativeTokens))
	}
	if usage.Lookups > 0 {
		w.Header().Set("X-Image-Lookups", strconv.Itoa(usage.Lookups))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message. Validation errors keep their detail.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidItem) || errors.Is(err, domain.ErrInvalidQuery) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrItemNotFound,
		domain.ErrEmbeddingProviderError,
		domain.ErrAnnotatorError,
		domain.ErrGeneratorError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
