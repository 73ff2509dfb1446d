// Package handlers implements the REST API endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jmcavoy/deckguide/internal/api/response"
	"github.com/jmcavoy/deckguide/internal/gemini"
	"github.com/jmcavoy/deckguide/internal/guide"
	"github.com/jmcavoy/deckguide/internal/resolver"
	"github.com/jmcavoy/deckguide/internal/storage"
)

// GuideService is the pipeline surface the handler drives.
type GuideService interface {
	Generate(ctx context.Context, decklistText string) (*guide.Result, error)
}

// HistoryReader reads persisted guides. Nil when persistence is disabled.
type HistoryReader interface {
	GetGuide(ctx context.Context, id int64) (*storage.GuideRecord, error)
	ListGuides(ctx context.Context, limit int) ([]*storage.GuideRecord, error)
}

// GuideHandler serves guide generation and history endpoints.
type GuideHandler struct {
	service GuideService
	history HistoryReader
}

// NewGuideHandler creates a guide handler.
func NewGuideHandler(service GuideService, history HistoryReader) *GuideHandler {
	return &GuideHandler{service: service, history: history}
}

// GenerateGuideRequest is the body for POST /api/v1/guides.
type GenerateGuideRequest struct {
	Decklist string `json:"decklist"`
}

// GenerateGuide runs the full pipeline for a submitted decklist.
func (h *GuideHandler) GenerateGuide(w http.ResponseWriter, r *http.Request) {
	var req GenerateGuideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, errors.New("invalid request body"))
		return
	}

	result, err := h.service.Generate(r.Context(), req.Decklist)
	if err != nil {
		writeGenerateError(w, err)
		return
	}

	response.Success(w, result)
}

// writeGenerateError maps pipeline errors onto HTTP status codes. Every
// error is terminal for the invocation; none produce partial results.
func writeGenerateError(w http.ResponseWriter, err error) {
	var (
		resErr       *resolver.ResolutionError
		transportErr *gemini.TransportError
		shapeErr     *gemini.ShapeError
	)

	switch {
	case errors.Is(err, guide.ErrNoValidLines):
		response.BadRequest(w, err)
	case errors.Is(err, guide.ErrGenerationInFlight):
		response.Conflict(w, err)
	case errors.As(err, &resErr):
		response.UnprocessableEntity(w, err)
	case errors.As(err, &transportErr), errors.As(err, &shapeErr):
		response.BadGateway(w, err)
	default:
		response.InternalError(w, err)
	}
}

// ListGuides returns recent guides, newest first.
func (h *GuideHandler) ListGuides(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.NotFound(w, errors.New("guide history is disabled"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.BadRequest(w, errors.New("invalid limit"))
			return
		}
		limit = parsed
	}

	guides, err := h.history.ListGuides(r.Context(), limit)
	if err != nil {
		response.InternalError(w, err)
		return
	}
	if guides == nil {
		guides = []*storage.GuideRecord{}
	}

	response.Success(w, guides)
}

// GetGuide returns a single persisted guide.
func (h *GuideHandler) GetGuide(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		response.NotFound(w, errors.New("guide history is disabled"))
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "guideID"), 10, 64)
	if err != nil {
		response.BadRequest(w, errors.New("invalid guide ID"))
		return
	}

	rec, err := h.history.GetGuide(r.Context(), id)
	if errors.Is(err, storage.ErrGuideNotFound) {
		response.NotFound(w, err)
		return
	}
	if err != nil {
		response.InternalError(w, err)
		return
	}

	response.Success(w, rec)
}
