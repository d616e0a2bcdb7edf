package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nikhilbhutani/audioreader/internal/api/handlers"
	"github.com/nikhilbhutani/audioreader/internal/api/middleware"
	"github.com/nikhilbhutani/audioreader/internal/auth"
	"github.com/nikhilbhutani/audioreader/internal/config"
	"github.com/nikhilbhutani/audioreader/internal/document"
	"github.com/nikhilbhutani/audioreader/internal/pipeline"
)

// Deps are the services the HTTP layer is built on. Events, LoginLimiter
// and entries of Checks may be nil.
type Deps struct {
	Config       *config.Config
	Auth         *auth.Service
	Issuer       *auth.Issuer
	Users        auth.UserLookup
	Documents    *document.Service
	Pipeline     *pipeline.Service
	Previewer    handlers.Previewer
	Events       handlers.EventLog
	LoginLimiter handlers.LoginLimiter
	Checks       map[string]handlers.Pinger
}

type Router struct {
	mux  *chi.Mux
	deps Deps
	jwt  *auth.JWTMiddleware
}

func NewRouter(deps Deps) *Router {
	return &Router{
		mux:  chi.NewRouter(),
		deps: deps,
		jwt:  auth.NewJWTMiddleware(deps.Issuer, deps.Users, deps.Config.Auth.CookieName),
	}
}

// Setup registers all routes. ctx bounds background work owned by the
// middleware stack.
func (rt *Router) Setup(ctx context.Context) http.Handler {
	r := rt.mux
	cfg := rt.deps.Config

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	rl := middleware.NewRateLimiter(ctx, 100, 200)
	r.Use(rl.Limit)

	health := handlers.NewHealthHandler(rt.deps.Checks)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	authH := handlers.NewAuthHandler(rt.deps.Auth, rt.deps.LoginLimiter, cfg.Auth.CookieName, cfg.Auth.CookieSecure)
	docH := handlers.NewDocumentHandler(rt.deps.Documents, rt.deps.Pipeline)
	eventH := handlers.NewEventHandler(rt.deps.Documents, rt.deps.Events)
	voiceH := handlers.NewVoiceHandler(rt.deps.Previewer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/logout", authH.Logout)
		r.Get("/voices", voiceH.List)

		r.Group(func(r chi.Router) {
			r.Use(rt.jwt.Authenticate)

			r.Get("/auth/me", authH.Me)
			r.Post("/voice-preview", voiceH.Preview)

			r.Route("/documents", func(r chi.Router) {
				r.Post("/upload", docH.Upload)
				r.Post("/process", docH.Process)
				r.Get("/{id}/status", docH.Status)
				r.Get("/{id}/reader", docH.Reader)
				r.Get("/{id}/events", eventH.List)
				r.Delete("/{id}", docH.Delete)
			})
		})
	})

	return r
}
