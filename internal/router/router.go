// Package router sets up all HTTP routes and middleware chains for Folio.
// Routes are organised into infrastructure endpoints, public pages, the
// authoring area and the JSON API, each with its own middleware stack.
package router

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"folio/internal/handlers"
	"folio/internal/middleware"
	"folio/web"
)

// maxRequestBody caps every request body. Article forms carry an image of
// up to 5 MiB plus the text fields.
const maxRequestBody = 8 << 20

// MetricsSource records request metrics and exposes them for scraping.
// *metrics.Metrics satisfies it.
type MetricsSource interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// Config carries the infrastructure the middleware chain needs.
type Config struct {
	Sessions      middleware.SessionLoader
	Metrics       MetricsSource
	SecureCookies bool
	// AuthLimiter throttles login and registration attempts. Optional.
	AuthLimiter *middleware.RateLimiter
}

// Handlers bundles the handler groups mounted by New.
type Handlers struct {
	Auth       *handlers.Auth
	Public     *handlers.Public
	Articles   *handlers.Articles
	Categories *handlers.Categories
	API        *handlers.API
	NotFound   http.HandlerFunc
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(cfg Config, h Handlers) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.Use(middleware.SecureHeaders)
	r.Use(chimw.RequestSize(maxRequestBody))

	// Infrastructure: no session, no CSRF.
	r.Get("/health", healthHandler)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	r.Handle("/static/*", staticHandler())

	// Application routes carry CSRF protection and the optional session.
	app := chi.Chain(
		middleware.CSRF(cfg.SecureCookies),
		middleware.LoadSession(cfg.Sessions),
	)
	if h.NotFound != nil {
		r.NotFound(app.HandlerFunc(h.NotFound).ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(app...)

		// Public pages.
		r.Get("/", h.Public.Home)
		r.Get("/topics/{slug}", h.Public.Topic)

		// Identity. Only the submissions are rate limited.
		limited := r.With()
		if cfg.AuthLimiter != nil {
			limited = r.With(cfg.AuthLimiter.Middleware)
		}
		r.Get("/login", h.Auth.LoginPage)
		limited.Post("/login", h.Auth.LoginSubmit)
		r.Get("/register", h.Auth.RegisterPage)
		limited.Post("/register", h.Auth.RegisterSubmit)
		r.Post("/logout", h.Auth.Logout)

		// Anyone may read; drafts are filtered per requester. Writing
		// needs a session.
		r.Route("/articles", func(r chi.Router) {
			r.Get("/", h.Articles.List)
			r.Get("/{id}", h.Articles.Show)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Get("/new", h.Articles.New)
				r.Post("/", h.Articles.Create)
				r.Get("/{id}/edit", h.Articles.Edit)
				r.Post("/{id}", h.Articles.Update)
				r.Post("/{id}/delete", h.Articles.Delete)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/", h.Categories.List)
			r.Get("/new", h.Categories.New)
			r.Post("/", h.Categories.Create)
			r.Get("/{id}/edit", h.Categories.Edit)
			r.Post("/{id}", h.Categories.Update)
			r.Post("/{id}/delete", h.Categories.Delete)
		})
	})

	// JSON API. The session is resolved before the CSRF check so that
	// anonymous writes answer 401 JSON rather than a token mismatch.
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.LoadSession(cfg.Sessions))

		r.Group(func(r chi.Router) {
			r.Use(middleware.CSRF(cfg.SecureCookies))
			r.Get("/articles", h.API.ListArticles)
			r.Get("/articles/{id}", h.API.GetArticle)
			r.Get("/categories", h.API.CategoryTree)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuthAPI, middleware.CSRF(cfg.SecureCookies))
			r.Post("/articles", h.API.CreateArticle)
			r.Put("/articles/{id}", h.API.UpdateArticle)
			r.Delete("/articles/{id}", h.API.DeleteArticle)
		})
	})

	return r
}

// staticHandler serves the embedded web/static tree under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic("router: embedded static tree missing: " + err.Error())
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
