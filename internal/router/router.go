package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-user-management/internal/api/auth"
	"github.com/FACorreiaa/go-user-management/internal/api/user"
)

// Config contains the dependencies needed for the router setup.
// Server-wide middleware (logger, request ID, recoverer) are expected to be
// applied before mounting this router in main.go.
type Config struct {
	AuthHandler            auth.Handler
	UserHandler            user.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	RequireAdminMiddleware func(http.Handler) http.Handler
	RoutePrefix            string
}

// SetupRouter wires the user-management routes: a public authenticate
// endpoint and the admin-only CRUD surface.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	prefix := cfg.RoutePrefix
	if prefix == "" {
		prefix = "/api/users"
	}

	r.Route(prefix, func(r chi.Router) {
		// Public: credentials in, bearer token out.
		r.Post("/Authenticate", cfg.AuthHandler.Authenticate)

		// Admin-only CRUD surface.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)
			r.Use(cfg.RequireAdminMiddleware)

			r.Get("/", cfg.UserHandler.GetAll)
			r.Post("/", cfg.UserHandler.Create)
			r.Get("/{id}", cfg.UserHandler.GetByID)
			r.Put("/{id}", cfg.UserHandler.Update)
			r.Delete("/{id}", cfg.UserHandler.Delete)
		})
	})

	return r
}
