package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/repository"
	"github.com/eta-consult/quote-api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionHandler exposes the quote submission trail
type SubmissionHandler struct {
	submissions *service.SubmissionService
	logger      *zap.Logger
}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler(submissions *service.SubmissionService, logger *zap.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		submissions: submissions,
		logger:      logger,
	}
}

// List godoc
// @Summary List submissions
// @Description Returns a paginated list of quote submissions, newest first
// @Tags Submissions
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 200)"
// @Param status query string false "submitted, quote_created or error"
// @Param operator query string false "Filter by operator"
// @Success 200 {object} domain.PaginatedResponse
// @Security ApiKeyAuth
// @Router /submissions [get]
func (h *SubmissionHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := &repository.SubmissionFilter{
		Operator: strings.TrimSpace(r.URL.Query().Get("operator")),
	}
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		status := domain.SubmissionStatus(statusStr)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "Invalid status: must be submitted, quote_created or error")
			return
		}
		filter.Status = &status
	}

	page, err := h.submissions.List(r.Context(), filter, parseIntQuery(r, "page", 1), parseIntQuery(r, "pageSize", 20))
	if err != nil {
		h.logger.Error("failed to list submissions", zap.Error(err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

// GetByID godoc
// @Summary Get submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} domain.SubmissionDTO
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid submission ID: must be a valid UUID")
		return
	}

	sub, err := h.submissions.GetByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrSubmissionNotFound) {
			h.logger.Error("failed to get submission", zap.Error(err), zap.String("submission_id", id.String()))
		}
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sub)
}
