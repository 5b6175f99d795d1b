package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ent0n29/frontdesk/internal/policy"
)

const deniedDetail = "Unauthorized proxy request"

type deniedResponse struct {
	Detail string `json:"detail"`
}

// originAllowed accepts requests without an Origin header (non-browser
// clients), same-origin requests and origins on the configured allow-list.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" || s.cfg.AllowAnyOrigin {
		return true
	}
	normalized := strings.TrimRight(origin, "/")
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), normalized) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// originGuard rejects browser requests from origins outside the allow-list
// with the same 403 body as the secret gate.
func (s *Server) originGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.originAllowed(r) {
			s.deny(w, r, "origin")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// corsHandler sets CORS headers for allowed origins and answers preflight
// requests before the secret gate sees them.
func (s *Server) corsHandler() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, _ string) bool {
			return s.originAllowed(r)
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", policy.SecretHeader, SessionHeader},
		ExposedHeaders:   []string{SessionHeader},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// secretGuard runs the access gate before anything reaches the dispatcher.
func (s *Server) secretGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.gate.Authorize(r.Header.Get(policy.SecretHeader)) == policy.Deny {
			s.deny(w, r, "secret")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) deny(w http.ResponseWriter, r *http.Request, reason string) {
	s.metrics.ObserveGateDenial(reason)
	s.logger.Warn("access denied",
		zap.String("reason", reason),
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("origin", r.Header.Get("Origin")),
		zap.String("path", r.URL.Path),
	)
	respondJSON(w, http.StatusForbidden, deniedResponse{Detail: deniedDetail})
}
