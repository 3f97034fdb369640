package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/itemsapi/pkg/httputil"
	"github.com/platinummonkey/itemsapi/pkg/observability"
	"github.com/platinummonkey/itemsapi/pkg/storage"
)

// UnmatchedRoute is the metrics route label for requests no route matches
const UnmatchedRoute = "unmatched"

// Server represents our API server
type Server struct {
	store     storage.ItemStore
	router    *mux.Router
	health    *observability.HealthChecker
	metrics   *observability.Metrics
	apiMiddle []mux.MiddlewareFunc
	now       func() time.Time
}

// Option configures a Server
type Option func(*Server)

// WithMetrics exposes GET /metrics from m
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAPIMiddleware adds middleware that runs only for /api routes
func WithAPIMiddleware(mw ...mux.MiddlewareFunc) Option {
	return func(s *Server) { s.apiMiddle = append(s.apiMiddle, mw...) }
}

// WithClock replaces the time source used for /api/time and item timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer creates a new API server over store
func NewServer(store storage.ItemStore, logger *observability.Logger, opts ...Option) *Server {
	s := &Server{
		store:  store,
		router: mux.NewRouter(),
		health: observability.NewHealthChecker(store, logger),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFound(w)
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteMethodNotAllowed(w)
	})

	// Probes and metrics
	s.router.HandleFunc("/healthz", s.health.Liveness).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.health.Readiness).Methods(http.MethodGet)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// Application routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(s.apiMiddle...)
	api.HandleFunc("/time", s.getTime).Methods(http.MethodGet)
	api.HandleFunc("/items", s.listItems).Methods(http.MethodGet)
	api.HandleFunc("/items", s.createItem).Methods(http.MethodPost)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// RouteLabel returns the path template of the route r matches, or
// UnmatchedRoute. It satisfies observability.RouteLabeler.
func (s *Server) RouteLabel(r *http.Request) string {
	var match mux.RouteMatch
	if !s.router.Match(r, &match) || match.MatchErr != nil || match.Route == nil {
		return UnmatchedRoute
	}
	tpl, err := match.Route.GetPathTemplate()
	if err != nil {
		return UnmatchedRoute
	}
	return tpl
}

// getTime handles GET /api/time
func (s *Server) getTime(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, timeResponse{Now: s.now().UTC().Format(TimeFormat)})
}

// listItems handles GET /api/items
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	// A client disconnect must not abort the query.
	ctx := context.WithoutCancel(r.Context())

	items, err := s.store.ListItems(ctx, storage.DefaultListLimit)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to list items")
		httputil.WriteInternalError(w)
		return
	}
	if items == nil {
		items = []*storage.Item{}
	}

	_ = httputil.WriteSuccess(w, items)
}

// createItem handles POST /api/items
func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var body interface{}
	if !httputil.ParseJSONOrError(w, r, &body) {
		return
	}

	fields, _ := body.(map[string]interface{})
	name, _ := fields["name"].(string)

	item, err := storage.NewItem(name, s.now())
	if err != nil {
		httputil.WriteBadRequest(w, httputil.ErrCodeInvalidName)
		return
	}

	id, err := s.store.CreateItem(context.WithoutCancel(r.Context()), item)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("Failed to create item")
		httputil.WriteInternalError(w)
		return
	}

	_ = httputil.WriteCreated(w, createItemResponse{ID: id})
}
