package router

import (
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/go-chi/chi/v5"

	"go-api-template/internal/handler"
	"go-api-template/internal/middleware"
	"go-api-template/internal/model"
	"go-api-template/internal/response"
)

type Options struct {
	APIPrefix      string
	CORSOrigins    []string
	RequestTimeout time.Duration
	HSTS           bool
}

type Handlers struct {
	Auth   *handler.AuthHandler
	Users  *handler.UserHandler
	Health *handler.HealthHandler
	Docs   *handler.DocsHandler
}

func New(
	opts Options,
	log *slog.Logger,
	translator *response.Translator,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	h Handlers,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(translator, log))
	r.Use(middleware.Logging(log))
	r.Use(middleware.CORS(opts.CORSOrigins))
	r.Use(middleware.SecurityHeaders(opts.HSTS))

	r.NotFound(translator.NotFound)
	r.MethodNotAllowed(translator.MethodNotAllowed)

	r.Get("/api-docs", h.Docs.SwaggerUI)
	r.Get("/api-docs/json", h.Docs.OpenAPI)

	adminOnly := []func(http.Handler) http.Handler{
		authMiddleware.RequireAuth,
		authMiddleware.RequireRoles(model.RoleAdmin),
	}

	mountAPI := func(api chi.Router) {
		api.Use(rateLimitMiddleware.Handler)
		api.Use(middleware.Timeout(opts.RequestTimeout))

		api.NotFound(translator.NotFound)
		api.MethodNotAllowed(translator.MethodNotAllowed)

		api.Get("/health", h.Health.Health)
		api.Get("/health/ready", h.Health.Ready)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/register", h.Auth.Register)
			auth.Post("/login", h.Auth.Login)
		})

		api.Route("/users", func(users chi.Router) {
			users.With(authMiddleware.RequireAuth).Get("/me", h.Users.Me)

			users.Route("/admin", func(admin chi.Router) {
				admin.Use(adminOnly...)
				admin.Get("/dashboard", h.Users.Dashboard)
				admin.Get("/users", h.Users.List)
				admin.Patch("/users/{id}/role", h.Users.UpdateRole)
				admin.Delete("/users/{id}", h.Users.Delete)
			})
		})
	}

	// An empty prefix serves the API from the root.
	if opts.APIPrefix == "" {
		r.Group(mountAPI)
	} else {
		r.Route(opts.APIPrefix, mountAPI)
	}

	return r
}

// AuthPrefix is the path prefix of the credential endpoints under apiPrefix.
func AuthPrefix(apiPrefix string) string {
	return path.Join("/", apiPrefix, "auth") + "/"
}
