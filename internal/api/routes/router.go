package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/discoverhealth/backend/internal/api/handlers"
	"github.com/discoverhealth/backend/internal/api/middleware"
	"github.com/discoverhealth/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	resourceHandler *handlers.ResourceHandler
	authHandler     *handlers.AuthHandler
	healthHandler   *handlers.HealthHandler
	staticHandler   *handlers.StaticHandler

	sessions       middleware.SessionResolver
	cookie         middleware.CookieConfig
	allowedOrigins []string
	metrics        *observability.Metrics
}

// Options carries the cross-cutting settings the router applies to every route
type Options struct {
	Sessions       middleware.SessionResolver
	Cookie         middleware.CookieConfig
	AllowedOrigins []string
	Metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	resourceHandler *handlers.ResourceHandler,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	staticHandler *handlers.StaticHandler,
	opts Options,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		resourceHandler: resourceHandler,
		authHandler:     authHandler,
		healthHandler:   healthHandler,
		staticHandler:   staticHandler,
		sessions:        opts.Sessions,
		cookie:          opts.Cookie,
		allowedOrigins:  opts.AllowedOrigins,
		metrics:         opts.Metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Probes and metrics
	r.mux.HandleFunc("GET /health", r.healthHandler.Health)
	r.mux.HandleFunc("GET /ready", r.healthHandler.Ready)
	r.mux.Handle("GET /metrics", promhttp.Handler())

	// Resource endpoints
	r.mux.Handle("GET /api/resources", r.public(r.resourceHandler.ListResources))
	r.mux.Handle("GET /api/resources/nearby", r.public(r.resourceHandler.NearbyResources))
	r.mux.Handle("GET /api/resources/{id}", r.public(r.resourceHandler.GetResource))
	r.mux.Handle("POST /api/resources", r.protected(r.resourceHandler.CreateResource))
	r.mux.Handle("POST /api/resources/{id}/recommend", r.protected(r.resourceHandler.RecommendResource))
	r.mux.Handle("POST /api/resources/{id}/reviews", r.protected(r.resourceHandler.AddReview))

	// Auth endpoints
	r.mux.Handle("POST /api/signup", r.public(r.authHandler.Signup))
	r.mux.Handle("POST /api/login", r.public(r.authHandler.Login))
	r.mux.Handle("GET /api/user", r.public(r.authHandler.CurrentUser))
	r.mux.Handle("POST /api/logout", r.public(r.authHandler.Logout))

	// Unmatched API paths answer a JSON 404. GET falls through to "GET /";
	// a method-less "/api/" would conflict with it.
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions} {
		r.mux.Handle(method+" /api", r.staticHandler)
		r.mux.Handle(method+" /api/", r.staticHandler)
	}

	// Frontend or banner
	r.mux.Handle("GET /", r.staticHandler)

	// Apply middleware in reverse order (last middleware wraps first).
	// Logging and observability read the matched pattern the mux stores on
	// the request, so nothing between them and the mux may copy it.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.Compression(handler)
	// CORS wraps everything so preflights never reach the mux
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}

// public resolves the session cookie, if any, for an API route
func (r *Router) public(h http.HandlerFunc) http.Handler {
	return middleware.SessionMiddleware(r.sessions, r.cookie)(h)
}

// protected additionally rejects anonymous callers
func (r *Router) protected(h http.HandlerFunc) http.Handler {
	return middleware.SessionMiddleware(r.sessions, r.cookie)(middleware.RequireAuth(h))
}
