package routed

import (
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	ghandlers "github.com/gorilla/handlers"
)

// tokenAuthenticationMiddleware checks the bearer token against ROUTR_TOKEN.
// If no token is configured, every request is allowed.
func tokenAuthenticationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		validToken := os.Getenv("ROUTR_TOKEN")
		if validToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token != validToken {
			slog.Warn("Invalid token", "method", r.Method, "url", r.URL, "remote-addr", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func contentTypeMiddlewareFunc(contentType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", contentType)
			next.ServeHTTP(w, r)
		})
	}
}

func (s *RouteDaemon) writeLog(_ io.Writer, p ghandlers.LogFormatterParams) {
	s.logger.Info("Request",
		"method", p.Request.Method,
		"uri", p.URL.RequestURI(),
		"status", p.StatusCode,
		"size", p.Size,
		"remote", p.Request.RemoteAddr)
}

func (s *RouteDaemon) loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CustomLoggingHandler(io.Discard, next, s.writeLog)
}
