package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/eta-consult/quote-api/internal/config"
	"go.uber.org/zap"
)

// OperatorHeader carries the name of the person submitting the form
const OperatorHeader = "X-Operator"

const maxOperatorLength = 100

// Middleware authenticates API callers by shared key
type Middleware struct {
	apiKey string
	logger *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(cfg *config.ApiKeyConfig, logger *zap.Logger) *Middleware {
	return &Middleware{
		apiKey: cfg.Value,
		logger: logger,
	}
}

// Authenticate requires a valid x-api-key header and records the operator.
// With no key configured every request is let through, which is only
// sensible for local runs. An Operator already in the context is filled in
// so outer middleware can log it.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := FromContext(r.Context())
		if !ok {
			op = &Operator{}
			r = r.WithContext(WithOperator(r.Context(), op))
		}
		op.Name = operatorFromHeader(r)

		if m.apiKey != "" {
			key := r.Header.Get("x-api-key")
			if key == "" {
				http.Error(w, "Unauthorized: missing x-api-key header", http.StatusUnauthorized)
				return
			}
			if !m.validateAPIKey(key) {
				m.logger.Warn("invalid API key attempt",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			op.Key = true
		}

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("operator", op.Name),
			zap.Bool("api_key", op.Key),
		)

		next.ServeHTTP(w, r)
	})
}

// RequireOperator rejects requests that do not name an operator
func (m *Middleware) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := FromContext(r.Context())
		if !ok || op.Name == "" {
			http.Error(w, "Forbidden: "+OperatorHeader+" header required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) validateAPIKey(key string) bool {
	// Constant-time comparison to prevent timing attacks
	return subtle.ConstantTimeCompare([]byte(key), []byte(m.apiKey)) == 1
}

func operatorFromHeader(r *http.Request) string {
	name := strings.TrimSpace(r.Header.Get(OperatorHeader))
	if len(name) > maxOperatorLength {
		name = name[:maxOperatorLength]
	}
	return name
}
