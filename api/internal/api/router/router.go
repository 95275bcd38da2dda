package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"peerloop/api/internal/api/handlers"
	peermw "peerloop/api/internal/api/middleware"
)

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins    []string
	EvaluationHandler *handlers.EvaluationHandler
	MemberHandler     *handlers.MemberHandler
	ResponseHandler   *handlers.ResponseHandler
	ProgressHandler   *handlers.ProgressHandler
	AuthMiddleware    *peermw.AuthMiddleware
	Logger            *slog.Logger
}

// NewRouter constructs the chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(peermw.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Limit all incoming JSON requests to 1 Megabyte max.
	r.Use(peermw.MaxBytes(1_048_576))

	// Baseline per-IP rate limit across the whole surface.
	r.Use(peermw.NewRateLimiter(10, 30).Handler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Manager-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {

		// ---------------------------------------------------------------------
		// Manager routes: authorization is the capability token itself,
		// checked against ciphertext inside the service layer.
		// ---------------------------------------------------------------------
		r.Post("/evaluations", cfg.EvaluationHandler.Create)
		r.Route("/evaluations/{id}", func(r chi.Router) {
			r.Post("/activate", cfg.EvaluationHandler.Activate)
			r.Post("/complete", cfg.EvaluationHandler.Complete)
			r.Post("/members", cfg.MemberHandler.Add)
			r.Get("/members", cfg.MemberHandler.List)
			r.Get("/results", cfg.EvaluationHandler.GetResults)
			r.Get("/audit", cfg.EvaluationHandler.GetAuditTrail)
			r.Get("/progress", cfg.ProgressHandler.Stream)
		})

		// ---------------------------------------------------------------------
		// Access-code login: 6-digit codes are brute-forceable, so this route
		// gets its own much tighter bucket on top of the global limit.
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(peermw.NewRateLimiter(0.2, 5).Handler)
			r.Post("/auth/access-code", cfg.MemberHandler.Login)
		})

		// ---------------------------------------------------------------------
		// Member routes: require the session minted at login.
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireSession)
			r.Post("/responses", cfg.ResponseHandler.Submit)
			r.Post("/members/{id}/last-access", cfg.MemberHandler.TouchLastAccess)
		})
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	return r
}
