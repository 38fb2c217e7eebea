package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/eta-consult/quote-api/internal/auth"
	"github.com/eta-consult/quote-api/internal/config"
	"github.com/eta-consult/quote-api/internal/domain"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

const rateWindow = time.Minute

// RateLimiter throttles inbound traffic in two tiers: every request per
// client IP, and quote creation per operator, since each created quote
// writes to the accounting system.
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	ipLimiter      func(http.Handler) http.Handler
	quoteLimiter   func(http.Handler) http.Handler
	whitelistNets  []*net.IPNet
	whitelistPaths []string
}

// NewRateLimiter builds both limiters. Whitelist IPs may be single
// addresses or CIDR ranges; unparseable entries are logged and ignored.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:            cfg,
		logger:         logger,
		whitelistPaths: cfg.WhitelistPaths,
	}

	for _, entry := range cfg.WhitelistIPs {
		if n := parseNet(entry); n != nil {
			rl.whitelistNets = append(rl.whitelistNets, n)
			continue
		}
		logger.Warn("ignoring invalid rate limit whitelist entry", zap.String("entry", entry))
	}

	rl.ipLimiter = httprate.Limit(
		cfg.RequestsPerMinute,
		rateWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) { return clientIP(r), nil }),
		httprate.WithLimitHandler(rl.limitExceeded("Too many requests. Please try again later.")),
	)

	if cfg.QuotesPerMinute > 0 {
		rl.quoteLimiter = httprate.Limit(
			cfg.QuotesPerMinute,
			rateWindow,
			httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
				return "operator:" + auth.OperatorName(r.Context()), nil
			}),
			httprate.WithLimitHandler(rl.limitExceeded("Too many quotes created. Please wait before submitting again.")),
		)
	}

	logger.Info("Rate limiter initialized",
		zap.Bool("enabled", cfg.Enabled),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("quotes_per_minute", cfg.QuotesPerMinute),
		zap.Int("whitelisted_ranges", len(rl.whitelistNets)),
		zap.Strings("whitelist_paths", cfg.WhitelistPaths),
	)
	return rl
}

// LimitByIP limits requests per client IP. Whitelisted paths and IPs bypass it.
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}
	limited := rl.ipLimiter(next)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.pathWhitelisted(r.URL.Path) || rl.ipWhitelisted(clientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}
		limited.ServeHTTP(w, r)
	})
}

// LimitQuotes limits quote creation per operator. It must run after
// authentication so the operator is known.
func (rl *RateLimiter) LimitQuotes(next http.Handler) http.Handler {
	if !rl.cfg.Enabled || rl.quoteLimiter == nil {
		return next
	}
	return rl.quoteLimiter(next)
}

func (rl *RateLimiter) ipWhitelisted(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range rl.whitelistNets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// pathWhitelisted matches exact paths and "/prefix/*" entries; the
// latter also cover "/prefix" itself
func (rl *RateLimiter) pathWhitelisted(path string) bool {
	for _, wp := range rl.whitelistPaths {
		if wp == path {
			return true
		}
		if prefix, ok := strings.CutSuffix(wp, "/*"); ok && (path == prefix || strings.HasPrefix(path, prefix+"/")) {
			return true
		}
	}
	return false
}

func (rl *RateLimiter) limitExceeded(detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl.logger.Warn("rate limit exceeded",
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
			zap.String("client_ip", clientIP(r)),
			zap.String("operator", auth.OperatorName(r.Context())),
		)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(domain.APIError{
			Type:   domain.ErrorTypeRateLimited,
			Title:  http.StatusText(http.StatusTooManyRequests),
			Status: http.StatusTooManyRequests,
			Detail: detail,
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func parseNet(entry string) *net.IPNet {
	entry = strings.TrimSpace(entry)
	if _, n, err := net.ParseCIDR(entry); err == nil {
		return n
	}
	ip := net.ParseIP(entry)
	if ip == nil {
		return nil
	}
	bits := 128
	if ip4 := ip.To4(); ip4 != nil {
		ip, bits = ip4, 32
	}
	return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}
}
