package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router wires middleware, the API and the gated static site.
func (s *HTTPServer) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		api.Route("/auth", func(a chi.Router) {
			a.Use(middleware.Timeout(30 * time.Second))
			a.Post("/register", s.handleRegister)
			a.Post("/verify-otp", s.handleVerifyOTP)
			a.Post("/login", s.handleLogin)
			a.Post("/logout", s.handleLogout)
			a.With(s.requireSession).Get("/user", s.handleCurrentUser)
		})

		// model calls carry their own deadlines
		api.With(s.requireSession).Post("/analyze", s.handleAnalyze)

		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "endpoint not found"})
		})
		api.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
		})
	})

	if s.opts.WebRoot != "" {
		r.With(s.pageGate).Handle("/*", http.FileServer(http.Dir(s.opts.WebRoot)))
	}

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			s.logger.Error(r.Context(), "health check failed", "error", err.Error())
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
