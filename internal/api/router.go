package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/openkermesse/stallpoints/internal/api/handler"
	"github.com/openkermesse/stallpoints/internal/api/middleware"
	"github.com/openkermesse/stallpoints/internal/api/sse"
	"github.com/openkermesse/stallpoints/internal/services/auth"
	"github.com/openkermesse/stallpoints/internal/services/leaderboard"
	"github.com/openkermesse/stallpoints/internal/services/ledger"
	"github.com/openkermesse/stallpoints/internal/services/registry"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Ledger      *ledger.Service
	Registry    *registry.Service
	Leaderboard *leaderboard.Session
	Hub         *sse.Hub
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	playerHandler := handler.NewPlayerHandler(cfg.Ledger)
	stallHandler := handler.NewStallHandler(cfg.Registry)
	scoresHandler := handler.NewScoresHandler(cfg.Leaderboard, cfg.Hub)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Login is the only auth route reachable without a session
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	authProtected := api.PathPrefix("/auth").Subrouter()
	authProtected.Use(authMiddleware)
	authProtected.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	authProtected.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)

	// Player ledger routes; capability checks beyond "logged in" live in the
	// services, keyed off the session's role.
	players := api.PathPrefix("/players").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("", playerHandler.Create).Methods(http.MethodPost)
	players.HandleFunc("", playerHandler.List).Methods(http.MethodGet)
	players.HandleFunc("/{id}", playerHandler.Get).Methods(http.MethodGet)
	players.HandleFunc("/{id}", playerHandler.Delete).Methods(http.MethodDelete)
	players.HandleFunc("/{id}/award", playerHandler.Award).Methods(http.MethodPost)
	players.HandleFunc("/{id}/deduct", playerHandler.Deduct).Methods(http.MethodPost)

	// Stall registry routes
	stalls := api.PathPrefix("/stalls").Subrouter()
	stalls.Use(authMiddleware)
	stalls.HandleFunc("", stallHandler.Register).Methods(http.MethodPost)
	stalls.HandleFunc("", stallHandler.List).Methods(http.MethodGet)
	stalls.HandleFunc("/{id}", stallHandler.Get).Methods(http.MethodGet)
	stalls.HandleFunc("/{id}", stallHandler.Update).Methods(http.MethodPatch)
	stalls.HandleFunc("/{id}", stallHandler.Deregister).Methods(http.MethodDelete)

	// Scoreboard routes are public: the big screen and spectator phones view
	// them without logging in. A logged-in operator's session still resolves
	// here, and a stale token must not lock anyone out of the board.
	scores := api.PathPrefix("/scores").Subrouter()
	scores.Use(middleware.OptionalAuth(cfg.AuthService))
	scores.HandleFunc("", scoresHandler.Get).Methods(http.MethodGet)
	scores.HandleFunc("/refresh", scoresHandler.Refresh).Methods(http.MethodPost)
	scores.HandleFunc("/stream", scoresHandler.Stream).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
