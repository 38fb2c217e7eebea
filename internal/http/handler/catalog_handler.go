package handler

import (
	"net/http"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/catalog"
	"github.com/eta-consult/quote-api/internal/domain"
	"go.uber.org/zap"
)

// CatalogHandler reads and replaces tariffs and text fragments
type CatalogHandler struct {
	tariffs *catalog.TariffStore
	texts   *catalog.TextStore
	logger  *zap.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(tariffs *catalog.TariffStore, texts *catalog.TextStore, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		tariffs: tariffs,
		texts:   texts,
		logger:  logger,
	}
}

// GetTariffs godoc
// @Summary Active tariffs
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]string
// @Security ApiKeyAuth
// @Router /catalog/tariffs [get]
func (h *CatalogHandler) GetTariffs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.tariffs.Current())
}

// PutTariffs godoc
// @Summary Replace tariffs
// @Description Validates and activates a complete tariff document. Values are numbers or numeric strings.
// @Tags Catalog
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError "No backing file"
// @Security ApiKeyAuth
// @Router /catalog/tariffs [put]
func (h *CatalogHandler) PutTariffs(w http.ResponseWriter, r *http.Request) {
	var raw map[string]interface{}
	if err := decodeJSON(w, r, &raw); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: expected a JSON object")
		return
	}

	tariffs, err := catalog.ParseTariffs(raw)
	if err != nil {
		respondValidationError(w, err)
		return
	}
	if err := tariffs.Validate(); err != nil {
		respondValidationError(w, err)
		return
	}
	if err := h.tariffs.Replace(tariffs); err != nil {
		h.logger.Warn("tariff replacement rejected", zap.Error(err))
		respondError(w, err)
		return
	}

	h.logger.Info("tariffs replaced through API",
		zap.String("operator", auth.OperatorName(r.Context())),
		zap.Int("keys", len(tariffs)))
	respondJSON(w, http.StatusOK, h.tariffs.Current())
}

// GetTexts godoc
// @Summary Active text fragments
// @Tags Catalog
// @Produce json
// @Success 200 {object} map[string]string
// @Security ApiKeyAuth
// @Router /catalog/texts [get]
func (h *CatalogHandler) GetTexts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.texts.Current())
}

// PutTexts godoc
// @Summary Replace text fragments
// @Tags Catalog
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 400 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /catalog/texts [put]
func (h *CatalogHandler) PutTexts(w http.ResponseWriter, r *http.Request) {
	var texts domain.TextFragments
	if err := decodeJSON(w, r, &texts); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: expected an object of strings")
		return
	}
	if err := catalog.ValidateTexts(texts); err != nil {
		respondValidationError(w, err)
		return
	}
	if err := h.texts.Replace(texts); err != nil {
		h.logger.Warn("text replacement rejected", zap.Error(err))
		respondError(w, err)
		return
	}

	h.logger.Info("texts replaced through API",
		zap.String("operator", auth.OperatorName(r.Context())),
		zap.Int("keys", len(texts)))
	respondJSON(w, http.StatusOK, h.texts.Current())
}
