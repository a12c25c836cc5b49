package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func logger() zerolog.Logger {
	return log.With().Str("component", "api").Logger()
}

func NewRouter(state *State, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(allowedOrigins)))

	h := &handlers{state: state}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/status", h.status)
		r.Get("/lyrics", h.lyrics)
		r.Get("/current", h.current)
	})

	return r
}

// the api is read only, so a wildcard origin never carries credentials
func corsOptions(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
}

type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *wrappedWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// overlays poll these several times a second; log them only on errors
var silentPaths = map[string]bool{
	"/api/health":  true,
	"/api/status":  true,
	"/api/current": true,
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		level := zerolog.DebugLevel
		if silentPaths[r.URL.Path] && wrapped.statusCode < 400 {
			level = zerolog.TraceLevel
		}
		l := logger()
		l.WithLevel(level).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
