package dav

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/atriumhq/atrium/pkg/observability"
)

// Server is the admin HTTP API over the bootstrapped host.
type Server struct {
	mux     *http.ServeMux
	server  *http.Server
	host    *Host
	health  *observability.HealthRegistry
	metrics observability.Metrics
	logger  *slog.Logger
}

// ServerConfig holds configuration for the admin API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates the admin API server.
func NewServer(cfg ServerConfig, host *Host, health *observability.HealthRegistry, metrics observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:     mux,
		host:    host,
		health:  health,
		metrics: metrics,
		logger:  logger,
	}

	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.instrument(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/extensions", s.handleExtensions)
	s.mux.HandleFunc("GET /api/v1/addressbooks", s.handleAddressBooks)
	s.mux.HandleFunc("GET /api/v1/calendars", s.handleCalendars)
}

// instrument tags each request with an ID and records request metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := observability.WithRequestID(r.Context(), r.Header.Get("X-Request-Id"))

		next.ServeHTTP(w, r.WithContext(ctx))

		s.metrics.Counter(observability.MetricHTTPRequests, 1, observability.T("path", r.URL.Path))
		s.metrics.Timing(observability.MetricHTTPRequestDuration, time.Since(start), observability.T("path", r.URL.Path))
	})
}

// handleHealth reports the aggregated component health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.health.GetOverallHealth(r.Context())

	status := http.StatusOK
	if health.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

// pluginInfo is the wire shape of one server plugin in the inventory.
type pluginInfo struct {
	Name     string   `json:"name"`
	Features []string `json:"features,omitempty"`
}

// extensionInventory is the wire shape of GET /api/v1/extensions.
type extensionInventory struct {
	DAV          string       `json:"dav"`
	Plugins      []pluginInfo `json:"plugins"`
	Collections  []string     `json:"collections"`
	AddressBooks []string     `json:"address_book_plugins"`
	Calendars    []string     `json:"calendar_plugins"`
}

// handleExtensions lists everything the host registered during bootstrap.
func (s *Server) handleExtensions(w http.ResponseWriter, r *http.Request) {
	inventory := extensionInventory{
		DAV:          s.host.DAVHeader(),
		Plugins:      []pluginInfo{},
		Collections:  []string{},
		AddressBooks: []string{},
		Calendars:    []string{},
	}

	for _, plugin := range s.host.Plugins() {
		inventory.Plugins = append(inventory.Plugins, pluginInfo{
			Name:     plugin.PluginName(),
			Features: plugin.Features(),
		})
	}
	for _, collection := range s.host.Collections() {
		inventory.Collections = append(inventory.Collections, collection.CollectionName())
	}

	for _, provider := range s.host.AddressBookProviders() {
		inventory.AddressBooks = append(inventory.AddressBooks, provider.ProviderName())
	}
	for _, provider := range s.host.CalendarProviders() {
		inventory.Calendars = append(inventory.Calendars, provider.ProviderName())
	}

	writeJSON(w, http.StatusOK, inventory)
}

// handleAddressBooks lists the address books visible to a principal.
func (s *Server) handleAddressBooks(w http.ResponseWriter, r *http.Request) {
	principal := r.URL.Query().Get("principal")
	if principal == "" {
		writeError(w, http.StatusBadRequest, "principal query parameter is required")
		return
	}

	books, err := s.host.AddressBooks(r.Context(), principal)
	if err != nil {
		s.logger.Error("failed to list address books", "principal", principal, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list address books")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"principal":    principal,
		"addressbooks": books,
	})
}

// handleCalendars lists the calendars visible to a principal.
func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	principal := r.URL.Query().Get("principal")
	if principal == "" {
		writeError(w, http.StatusBadRequest, "principal query parameter is required")
		return
	}

	calendars, err := s.host.Calendars(r.Context(), principal)
	if err != nil {
		s.logger.Error("failed to list calendars", "principal", principal, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list calendars")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"principal": principal,
		"calendars": calendars,
	})
}

// Start starts the admin API server.
func (s *Server) Start() error {
	s.logger.Info("starting admin API server",
		"addr", s.server.Addr,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down admin API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
