package router

import (
	"net/http"
	"time"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/http/handler"
	"github.com/eta-consult/quote-api/internal/http/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Router struct {
	cfg               *config.Config
	logger            *zap.Logger
	authMiddleware    *auth.Middleware
	rateLimiter       *middleware.RateLimiter
	healthHandler     *handler.HealthHandler
	quoteHandler      *handler.QuoteHandler
	submissionHandler *handler.SubmissionHandler
	catalogHandler    *handler.CatalogHandler
	buildingHandler   *handler.BuildingHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	healthHandler *handler.HealthHandler,
	quoteHandler *handler.QuoteHandler,
	submissionHandler *handler.SubmissionHandler,
	catalogHandler *handler.CatalogHandler,
	buildingHandler *handler.BuildingHandler,
) *Router {
	return &Router{
		cfg:               cfg,
		logger:            logger,
		authMiddleware:    authMiddleware,
		rateLimiter:       rateLimiter,
		healthHandler:     healthHandler,
		quoteHandler:      quoteHandler,
		submissionHandler: submissionHandler,
		catalogHandler:    catalogHandler,
		buildingHandler:   buildingHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	// Probes
	r.Get("/health", rt.healthHandler.Live)
	r.Get("/health/db", rt.healthHandler.Database)
	r.Get("/health/ready", rt.healthHandler.Ready)
	r.Get("/health/jobs", rt.healthHandler.Jobs)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authMiddleware.Authenticate)
		if rt.cfg.Server.RequestTimeout > 0 {
			r.Use(chimw.Timeout(time.Duration(rt.cfg.Server.RequestTimeout) * time.Second))
		}

		r.Route("/quotes", func(r chi.Router) {
			r.With(rt.rateLimiter.LimitQuotes).Post("/", rt.quoteHandler.Create)
			r.Post("/preview", rt.quoteHandler.Preview)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Get("/", rt.submissionHandler.List)
			r.Get("/{id}", rt.submissionHandler.GetByID)
		})

		r.Route("/buildings", func(r chi.Router) {
			r.Get("/", rt.buildingHandler.Lookup)
			r.Get("/cache", rt.buildingHandler.CacheStats)
			r.With(rt.authMiddleware.RequireOperator).Delete("/cache", rt.buildingHandler.ClearCache)
		})

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/tariffs", rt.catalogHandler.GetTariffs)
			r.Get("/texts", rt.catalogHandler.GetTexts)
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireOperator)
				r.Put("/tariffs", rt.catalogHandler.PutTariffs)
				r.Put("/texts", rt.catalogHandler.PutTexts)
			})
		})
	})

	return r
}
