package server

import (
	"log/slog"
	"net/http"

	"github.com/gi8lino/jiramirror/internal/auth"
	"github.com/gi8lino/jiramirror/internal/handlers"
	"github.com/gi8lino/jiramirror/internal/middleware"
	"github.com/gi8lino/jiramirror/internal/state"
)

// Routes are the collaborators the HTTP surface needs.
type Routes struct {
	Auth      *auth.Authenticator
	Processor handlers.WebhookProcessor
	Runner    handlers.SyncRunner
	Store     state.Store
	// Health is checked by /healthz when it implements handlers.Pinger.
	Health any
}

// NewRouter creates the HTTP router, optionally mounted under routePrefix.
func NewRouter(routes Routes, routePrefix string, logger *slog.Logger, debug bool) http.Handler {
	root := http.NewServeMux()

	// Health checks (no logging)
	root.Handle("GET /healthz", handlers.Healthz(routes.Health))
	root.Handle("POST /healthz", handlers.Healthz(routes.Health))

	mws := []middleware.Middleware{middleware.RequestID()}
	if debug {
		mws = append(mws, middleware.LoggingMiddleware(logger))
	}

	root.Handle("POST /webhook", middleware.Chain(handlers.Webhook(routes.Auth, routes.Processor, logger), mws...))

	api := http.NewServeMux()
	api.Handle("POST /sync", handlers.TriggerSync(routes.Auth, routes.Runner, logger))
	api.Handle("GET /records/{key}", handlers.RecordHandler(routes.Auth, routes.Store, logger))
	root.Handle("/api/v1/", middleware.Chain(http.StripPrefix("/api/v1", api), mws...))

	return mountUnderPrefix(root, NormalizeRoutePrefix(routePrefix))
}
