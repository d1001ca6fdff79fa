package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/FACorreiaa/go-user-directory/internal/api/auth"
	"github.com/FACorreiaa/go-user-directory/internal/api/user"
)

// Config contains the dependencies needed for the router setup.
type Config struct {
	AuthHandler            *auth.AuthHandler
	UserHandler            user.Handler
	AuthenticateMiddleware func(http.Handler) http.Handler
	AllowedOrigins         []string
}

// SetupRouter wires the HTTP surface. Server-wide middleware (request id,
// logging, recoverer, timeouts) is applied before mounting this router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes: credentials and the OAuth dance.
		r.Group(func(r chi.Router) {
			r.Post("/auth/sign-up", cfg.AuthHandler.SignUp)
			r.Post("/auth/sign-in", cfg.AuthHandler.SignIn)
			r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
			r.Get("/auth/{provider}", cfg.AuthHandler.OAuthLogin)
			r.Get("/auth/{provider}/callback", cfg.AuthHandler.OAuthCallback)
		})

		// Directory management requires an access token. Role checks happen
		// in the service against the persisted role.
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthenticateMiddleware)

			r.Get("/users", cfg.UserHandler.ListUsers)
			r.Post("/users", cfg.UserHandler.CreateUser)
			r.Put("/users/{id}", cfg.UserHandler.UpdateUser)
			r.Delete("/users/{id}", cfg.UserHandler.DeleteUser)
			r.Patch("/users/{id}/status", cfg.UserHandler.UpdateUserStatus)
		})
	})

	return r
}
