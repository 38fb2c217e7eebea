package middleware

import (
	"net/http"
	"strconv"

	"github.com/eta-consult/quote-api/internal/config"
)

type header struct{ name, value string }

// SecurityHeaders sets the configured response headers. The header set is
// computed once; HSTS is only sent on requests that arrived over TLS,
// directly or through a proxy that sets X-Forwarded-Proto.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	static := []header{
		// quote responses carry client contact data
		{"Cache-Control", "no-store"},
	}
	if cfg.ContentTypeNosniff {
		static = append(static, header{"X-Content-Type-Options", "nosniff"})
	}
	if cfg.FrameOptions != "" {
		static = append(static, header{"X-Frame-Options", cfg.FrameOptions})
	}
	if cfg.ContentSecurityPolicy != "" {
		static = append(static, header{"Content-Security-Policy", cfg.ContentSecurityPolicy})
	}
	if cfg.ReferrerPolicy != "" {
		static = append(static, header{"Referrer-Policy", cfg.ReferrerPolicy})
	}

	var hsts string
	if cfg.EnableHSTS {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, sh := range static {
				h.Set(sh.name, sh.value)
			}
			if hsts != "" && isHTTPS(r) {
				h.Set("Strict-Transport-Security", hsts)
			}
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
