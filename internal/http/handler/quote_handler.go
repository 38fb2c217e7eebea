package handler

import (
	"context"
	"net/http"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/domain"
	"go.uber.org/zap"
)

// QuoteWorkflow is the part of the quote service the HTTP layer drives
type QuoteWorkflow interface {
	Create(ctx context.Context, operator string, req domain.CreateQuoteRequest) (*domain.QuoteOutcome, error)
	Preview(ctx context.Context, req domain.CreateQuoteRequest) (*domain.QuotePreview, error)
}

// QuoteHandler handles quote form submissions
type QuoteHandler struct {
	quotes QuoteWorkflow
	logger *zap.Logger
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(quotes QuoteWorkflow, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{
		quotes: quotes,
		logger: logger,
	}
}

// Create godoc
// @Summary Create a quote
// @Description Prices the building, resolves the client and submits the quote to accounting
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Quote form"
// @Success 201 {object} domain.QuoteOutcome
// @Failure 400 {object} domain.APIError
// @Failure 502 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /quotes [post]
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	outcome, err := h.quotes.Create(r.Context(), auth.OperatorName(r.Context()), req)
	if err != nil {
		h.logger.Error("failed to create quote", zap.Error(err))
		respondError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/submissions/"+outcome.SubmissionID.String())
	respondJSON(w, http.StatusCreated, outcome)
}

// Preview godoc
// @Summary Preview a quote
// @Description Prices and composes a quote without creating contacts or documents
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Quote form"
// @Success 200 {object} domain.QuotePreview
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /quotes/preview [post]
func (h *QuoteHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	preview, err := h.quotes.Preview(r.Context(), req)
	if err != nil {
		h.logger.Warn("failed to preview quote", zap.Error(err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preview)
}
