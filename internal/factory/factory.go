package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/openkermesse/stallpoints/internal/api/sse"
	"github.com/openkermesse/stallpoints/internal/changefeed"
	"github.com/openkermesse/stallpoints/internal/datastore"
	"github.com/openkermesse/stallpoints/internal/datastore/memory"
	redisstore "github.com/openkermesse/stallpoints/internal/datastore/redis"
	"github.com/openkermesse/stallpoints/internal/dependencies/clock"
	"github.com/openkermesse/stallpoints/internal/services/auth"
	"github.com/openkermesse/stallpoints/internal/services/leaderboard"
	"github.com/openkermesse/stallpoints/internal/services/ledger"
	"github.com/openkermesse/stallpoints/internal/services/ranking"
	"github.com/openkermesse/stallpoints/internal/services/registry"
)

// Store type constants
const (
	StoreTypeMemory = "memory"
	StoreTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Store datastore.Store
	Clock clock.Clock

	Registry    *registry.Service
	Ledger      *ledger.Service
	Ranking     *ranking.Service
	AuthService *auth.Service

	Feed        *changefeed.Adapter
	Leaderboard *leaderboard.Session
	Hub         *sse.Hub
	Broadcaster *sse.Broadcaster
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds the fixed operator accounts and session policy
	// If zero value, defaults to auth.DefaultConfig() (no usable admin
	// credential until a hash is set)
	AuthConfig auth.Config
	// LedgerConfig holds the retry/timeout policy (optional)
	LedgerConfig ledger.Config
	// LeaderboardConfig holds the delta-window/fetch policy (optional)
	LeaderboardConfig leaderboard.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StoreType selects the data store backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StoreType string
	// RedisConfig holds Redis connection settings (required if StoreType is "redis")
	RedisConfig *redisstore.Config
}

// New creates a new application with all dependencies wired. Call Start to
// launch the background components and Close to tear them down.
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store datastore.Store
	storeType := cfg.StoreType
	if storeType == "" {
		storeType = StoreTypeMemory
	}

	switch storeType {
	case StoreTypeMemory:
		store = memory.New()
	case StoreTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StoreType is redis")
		}
		redisStore, err := redisstore.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StoreType: must be 'memory' or 'redis'")
	}

	clk := clock.New()

	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		defaults := auth.DefaultConfig()
		if authCfg.AdminUsername == "" {
			authCfg.AdminUsername = defaults.AdminUsername
		}
		if authCfg.GiftCounterUsername == "" {
			authCfg.GiftCounterUsername = defaults.GiftCounterUsername
		}
		authCfg.SessionDuration = defaults.SessionDuration
	}

	return newWithDependencies(store, clk, authCfg, cfg.LedgerConfig, cfg.LeaderboardConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store datastore.Store, clk clock.Clock, authCfg auth.Config, ledgerCfg ledger.Config, lbCfg leaderboard.Config, logger *slog.Logger) *App {
	registryService := registry.New(store, clk, registry.DefaultConfig(), logger)
	ledgerService := ledger.New(store, registryService, clk, ledgerCfg, logger)
	rankingService := ranking.New()
	authService := auth.New(registryService, clk, authCfg, logger)

	feed := changefeed.New(store, logger)
	session := leaderboard.New(store, feed, rankingService, clk, lbCfg, logger)
	hub := sse.NewHub(logger)
	broadcaster := sse.NewBroadcaster(hub, session, logger)

	return &App{
		Store:       store,
		Clock:       clk,
		Registry:    registryService,
		Ledger:      ledgerService,
		Ranking:     rankingService,
		AuthService: authService,
		Feed:        feed,
		Leaderboard: session,
		Hub:         hub,
		Broadcaster: broadcaster,
	}
}

// Start launches the leaderboard session, the SSE hub, and the broadcaster
// that connects them.
func (a *App) Start() {
	go a.Hub.Run()
	a.Leaderboard.Start()
	go a.Broadcaster.Run()
}

// Close tears down the background components and the store.
func (a *App) Close() error {
	a.Leaderboard.Close()
	a.Hub.Close()
	return a.Store.Close()
}
