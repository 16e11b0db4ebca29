// Package httpapi exposes the session coordinator over HTTP. Handlers are
// thin: decode, validate, call the coordinator, map errors to status codes.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mirrorwell/selftree/internal/config"
	"github.com/mirrorwell/selftree/internal/session"
)

// Router wires the API routes and middleware.
type Router struct {
	coord  *session.Coordinator
	cfg    *config.Config
	logger *zap.Logger
}

// NewRouter creates a router over the given coordinator.
func NewRouter(coord *session.Coordinator, cfg *config.Config, logger *zap.Logger) *Router {
	return &Router{coord: coord, cfg: cfg, logger: logger}
}

// Setup configures all routes and middleware.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(rt.logger))

	if rt.cfg.EnableCORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", rt.healthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		h := newHandler(rt.coord, rt.logger)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.startSession)
			r.Get("/", h.listSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.getSession)
				r.Post("/onboarding/complete", h.completeOnboarding)
				r.Post("/personas/generate", h.generatePersonas)
				r.Get("/tree", h.getTree)
				r.Get("/children/{parentKey}", h.getChildren)
				r.Post("/select", h.selectPersona)
				r.Post("/backtrack", h.backtrack)
				r.Post("/memory/checkpoint", h.checkpointMemory)
				r.Get("/memory/{branchName}", h.resolveMemory)
				r.Post("/turns", h.recordTurn)
				r.Get("/transcript", h.getTranscript)
			})
		})
	})

	return r
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
