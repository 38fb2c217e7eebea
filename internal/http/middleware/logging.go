package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader is echoed on every response
const RequestIDHeader = "X-Request-ID"

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging assigns a request id (reusing an inbound X-Request-ID), stores a
// request-scoped logger in the context and logs one line per request.
// Server errors log at Error, client errors at Warn, probes at Debug.
func Logging(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)

			reqLog := logger.WithRequest(log, r.Method, r.URL.Path, requestID)
			// auth.Authenticate fills this in further down the chain
			op := &auth.Operator{}
			ctx := auth.WithOperator(logger.IntoContext(r.Context(), reqLog), op)

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(ctx))

			duration := time.Since(start)
			fields := []zap.Field{
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status_code", rw.statusCode),
				zap.Int64("response_size", rw.written),
				zap.Duration("duration", duration),
			}
			if op.Name != "" {
				fields = append(fields, zap.String("operator", op.Name))
			}

			msg := fmt.Sprintf("%s %-30s -> %3d (%s)", r.Method, r.URL.Path, rw.statusCode, duration.Truncate(time.Microsecond))
			switch {
			case rw.statusCode >= http.StatusInternalServerError:
				reqLog.Error(msg, fields...)
			case rw.statusCode >= http.StatusBadRequest:
				reqLog.Warn(msg, fields...)
			case strings.HasPrefix(r.URL.Path, "/health"):
				reqLog.Debug(msg, fields...)
			default:
				reqLog.Info(msg, fields...)
			}
		})
	}
}
