package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/config"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Headers the quote form front end always needs, whatever the config lists
var (
	requiredAllowedHeaders = []string{"Content-Type", "x-api-key", auth.OperatorHeader, RequestIDHeader}
	requiredExposedHeaders = []string{"Location", RequestIDHeader}
)

// CORS returns a CORS middleware configured from the application config.
// Origins may be exact ("https://devis.example.ch"), single-wildcard
// patterns ("https://*.example.ch") or "*". With no origins configured,
// development allows any origin and other environments deny all.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	options := cors.Options{
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   mergeHeaders(cfg.AllowedHeaders, requiredAllowedHeaders),
		ExposedHeaders:   mergeHeaders(cfg.ExposedHeaders, requiredExposedHeaders),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	devLike := environment == "development" || environment == "local" || environment == ""
	anyOrigin := func(r *http.Request, origin string) bool { return origin != "" }

	switch {
	case slices.Contains(cfg.AllowedOrigins, "*"):
		if !devLike {
			logger.Warn("CORS configured with wildcard origin in non-development environment",
				zap.String("environment", environment))
		}
		options.AllowOriginFunc = anyOrigin
	case len(cfg.AllowedOrigins) > 0:
		options.AllowedOrigins = cfg.AllowedOrigins
		logger.Info("CORS configured with explicit origins", zap.Strings("origins", cfg.AllowedOrigins))
	case devLike:
		options.AllowOriginFunc = anyOrigin
		logger.Info("CORS allows all origins in development mode")
	default:
		// an empty AllowedOrigins list means "*" to the cors package
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
		logger.Warn("CORS has no allowed origins, cross-origin requests will be denied",
			zap.String("environment", environment))
	}

	return cors.Handler(options)
}

// mergeHeaders appends the required headers missing from configured (case-insensitive)
func mergeHeaders(configured, required []string) []string {
	out := slices.Clone(configured)
	for _, h := range required {
		if !slices.ContainsFunc(out, func(c string) bool { return strings.EqualFold(c, h) }) {
			out = append(out, h)
		}
	}
	return out
}
