package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/beerstock/internal/auth"
	"github.com/vyrodovalexey/beerstock/internal/handler"
)

// publicPaths never require credentials.
var publicPaths = []string{"/health", "/ready", "/metrics"}

// Auth authenticates every request except health checks, CORS preflights and
// stock feed subscriptions, and stores the caller identity in the context.
func Auth(authenticator auth.Authenticator, logger *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublicPath(r.URL.Path) || r.Method == http.MethodOptions || isStockFeedUpgrade(r) {
				next.ServeHTTP(w, r)
				return
			}

			id, err := authenticator.Authenticate(r)
			if err != nil {
				logger.Warn("authentication failed",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				w.Header().Set("WWW-Authenticate", challenge(err, authenticator.Method()))
				writeJSONError(w, http.StatusUnauthorized, err.Error())
				return
			}

			logger.Debug("authenticated",
				zap.String("subject", id.Subject),
				zap.String("auth_method", string(id.Method)),
			)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// isPublicPath matches public paths and their sub-paths.
func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// isStockFeedUpgrade matches only a GET upgrade of the read-only stock feed.
func isStockFeedUpgrade(r *http.Request) bool {
	return r.Method == http.MethodGet &&
		r.URL.Path == handler.StockFeedPath &&
		strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}

// challenge builds the WWW-Authenticate value for a failed attempt.
func challenge(err error, method auth.Method) string {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return `Bearer error="invalid_token"`
	case errors.Is(err, auth.ErrInvalidCredentials):
		return `Basic realm="beerstock"`
	case errors.Is(err, auth.ErrInvalidAPIKey):
		return "API-Key"
	}

	switch method {
	case auth.MethodBasic:
		return `Basic realm="beerstock"`
	case auth.MethodJWT:
		return "Bearer"
	case auth.MethodAPIKey:
		return "API-Key"
	default:
		return `Bearer, Basic realm="beerstock", API-Key`
	}
}
