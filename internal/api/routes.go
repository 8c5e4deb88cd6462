package api

import (
	"net/http"
	"strings"

	"cryptids/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior. Options run after the
// recovery, request id and logging middleware, in the order given.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
// Health checks are not traced.
func WithOTelMiddleware(serviceName string, opts ...otelmux.Option) RouteOption {
	opts = append([]otelmux.Option{
		otelmux.WithFilter(func(r *http.Request) bool {
			return !strings.HasSuffix(r.URL.Path, "/health")
		}),
	}, opts...)
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName, opts...))
	}
}

// WithRateLimiter adds the admission middleware. Pass it after
// WithOTelMiddleware so denials are recorded on the request span.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	router.Use(recoveryMiddleware)
	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	for _, opt := range opts {
		opt(router)
	}

	prefix := strings.TrimSuffix(config.Server.APIPrefix, "/")
	api := router.PathPrefix(prefix).Subrouter()

	// Literal segments must be registered before /cryptids/{id}.
	api.HandleFunc("/cryptids", handlers.ListCryptids).Methods(http.MethodGet)
	api.HandleFunc("/cryptids/search", handlers.SearchCryptids).Methods(http.MethodGet)
	api.HandleFunc("/cryptids/classifications", handlers.ListClassifications).Methods(http.MethodGet)
	api.HandleFunc("/cryptids/{id}", handlers.GetCryptid).Methods(http.MethodGet)
	api.HandleFunc("/cryptids/{id}/images", handlers.ListCryptidImages).Methods(http.MethodGet)
	api.HandleFunc("/cryptids/{id}/related", handlers.RelatedCryptids).Methods(http.MethodGet)
	api.HandleFunc("/images", handlers.ListImages).Methods(http.MethodGet)
	api.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/", handlers.Index).Methods(http.MethodGet)

	// mux only runs middleware for a matched route, so the fallback accepts
	// every method. Unknown paths and wrong methods are then admitted and
	// counted like any other request before the 404 or 405 is written.
	fallback := router.PathPrefix("/")
	fallback.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && servesGet(router, r, fallback) {
			methodNotAllowedHandler(w, r)
			return
		}
		notFoundHandler(w, r)
	})

	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)

	return router
}

// servesGet reports whether a route other than fallback would serve r as a GET.
func servesGet(router *mux.Router, r *http.Request, fallback *mux.Route) bool {
	get := r.Clone(r.Context())
	get.Method = http.MethodGet
	var match mux.RouteMatch
	return router.Match(get, &match) && match.Route != nil && match.Route != fallback
}
