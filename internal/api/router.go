package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/worldgate/internal/api/handler"
	"github.com/mcoot/worldgate/internal/api/middleware"
	"github.com/mcoot/worldgate/internal/dependencies/clock"
	"github.com/mcoot/worldgate/internal/metrics"
	"github.com/mcoot/worldgate/internal/server"
	"github.com/mcoot/worldgate/internal/services/auth"
	"github.com/mcoot/worldgate/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	Clock       clock.Clock
	AuthService *auth.Service
	Server      *server.Server
	Metrics     *metrics.Metrics
	WSConfig    ws.Config
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	accountHandler := handler.NewAccountHandler(cfg.AuthService, cfg.Clock)
	rosterHandler := handler.NewRosterHandler(cfg.Server)
	wsHandler := ws.NewHandler(cfg.Server, cfg.WSConfig, cfg.Logger)

	// Create middleware
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Account routes
	api.HandleFunc("/accounts", accountHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/tokens", accountHandler.IssueToken).Methods(http.MethodPost)
	api.HandleFunc("/tokens/{token}", accountHandler.RevokeToken).Methods(http.MethodDelete)

	// Roster routes
	api.HandleFunc("/roster", rosterHandler.Get).Methods(http.MethodGet)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Game client and scrape endpoints
	r.Handle("/ws", loggingMiddleware(wsHandler)).Methods(http.MethodGet)
	r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
