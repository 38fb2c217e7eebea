package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/eta-consult/quote-api/internal/geodata"
	"github.com/eta-consult/quote-api/internal/mapper"
	"go.uber.org/zap"
)

// BuildingLookup resolves an address against the registry
type BuildingLookup interface {
	Lookup(ctx context.Context, addr domain.Address) (domain.BuildingAttributes, error)
}

// BuildingHandler exposes registry lookups and the lookup cache
type BuildingHandler struct {
	buildings BuildingLookup
	cache     *geodata.Cache
	logger    *zap.Logger
}

// NewBuildingHandler creates a new building handler
func NewBuildingHandler(buildings BuildingLookup, cache *geodata.Cache, logger *zap.Logger) *BuildingHandler {
	return &BuildingHandler{
		buildings: buildings,
		cache:     cache,
		logger:    logger,
	}
}

// Lookup godoc
// @Summary Look up a building
// @Description Returns registry attributes for an address. Unlike quote creation, misses are reported as 404.
// @Tags Buildings
// @Produce json
// @Param street query string true "Street and number"
// @Param postcode query string true "Postcode"
// @Param locality query string true "Locality"
// @Success 200 {object} domain.BuildingAttributes
// @Failure 404 {object} domain.APIError
// @Security ApiKeyAuth
// @Router /buildings [get]
func (h *BuildingHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	addr := domain.Address{
		Street:   strings.TrimSpace(q.Get("street")),
		Postcode: strings.TrimSpace(q.Get("postcode")),
		Locality: strings.TrimSpace(q.Get("locality")),
	}
	if addr.Street == "" || addr.Postcode == "" || addr.Locality == "" {
		respondWithError(w, http.StatusBadRequest, "street, postcode and locality are required")
		return
	}

	building, err := h.buildings.Lookup(r.Context(), addr)
	if err != nil {
		h.logger.Warn("building lookup failed", zap.String("address", addr.String()), zap.Error(err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, building)
}

// CacheStats godoc
// @Summary Building cache statistics
// @Tags Buildings
// @Produce json
// @Success 200 {object} domain.CacheStatsDTO
// @Security ApiKeyAuth
// @Router /buildings/cache [get]
func (h *BuildingHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, mapper.ToCacheStatsDTO(h.cache.Stats()))
}

// ClearCache godoc
// @Summary Clear the building cache
// @Tags Buildings
// @Produce json
// @Success 200 {object} map[string]int
// @Security ApiKeyAuth
// @Router /buildings/cache [delete]
func (h *BuildingHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	n := h.cache.Clear()
	h.logger.Info("building cache cleared", zap.Int("entries", n))
	respondJSON(w, http.StatusOK, map[string]int{"cleared": n})
}
