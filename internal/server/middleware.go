package server

import (
	"log/slog"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/httplog/v3"
)

// Recovery turns a handler panic into a 500 response.
func Recovery(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic", "path", r.URL.Path, "panic", rec)
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs one line per request through httplog. Bodies are never logged.
func Logging(logger *slog.Logger) Middleware {
	return httplog.RequestLogger(logger, &httplog.Options{
		Schema:             httplog.SchemaECS.Concise(true),
		LogRequestHeaders:  []string{"User-Agent"},
		LogResponseHeaders: []string{},
		RecoverPanics:      false,
	})
}

// NoStore marks responses as uncacheable.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
