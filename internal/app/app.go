// Package app builds the stores, clients and coordinator shared by the HTTP server and the bot.
package app

import (
	"context"
	"fmt"

	"codeberg.org/luchgpt/server/internal/config"
	"codeberg.org/luchgpt/server/internal/coordinator"
	"codeberg.org/luchgpt/server/internal/llm"
	"codeberg.org/luchgpt/server/internal/logger"
	"codeberg.org/luchgpt/server/internal/models"
	"codeberg.org/luchgpt/server/internal/quota"
	"codeberg.org/luchgpt/server/internal/storage"
	"codeberg.org/luchgpt/server/luchgpt/chats"
	"codeberg.org/luchgpt/server/luchgpt/confirmations"
	"codeberg.org/luchgpt/server/luchgpt/guests"
	"codeberg.org/luchgpt/server/luchgpt/usage"
	"codeberg.org/luchgpt/server/luchgpt/users"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
)

// holds every long-lived dependency of a process
type App struct {
	Config *config.Config

	// nil with the memory store backend
	DB *pgxpool.Pool

	// nil when REDIS_URL is unset
	Redis *goredis.Client

	Catalog       *models.Catalog
	Users         users.Repository
	Chats         chats.Store
	Guests        guests.Tracker
	Ledger        usage.Ledger
	Confirmations confirmations.Repository
	Quota         *quota.Policy
	AI            *llm.Client
	Coordinator   *coordinator.Coordinator
}

// connects the configured backends and wires the coordinator
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.UsageBackend == config.BackendPostgres && cfg.StoreBackend != config.BackendPostgres {
		return nil, fmt.Errorf("the postgres usage backend needs the postgres store backend")
	}

	catalog, err := models.Load(cfg.ModelsFile)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Catalog: catalog}

	if err := a.connect(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.buildStores()

	if cfg.UsageBackend == config.BackendRedis && a.Redis == nil {
		a.Close()
		return nil, fmt.Errorf("the redis usage backend needs REDIS_URL")
	}

	a.Quota = quota.NewPolicy(a.Ledger, catalog,
		quota.WithFreeDailyLimit(cfg.Limits.FreeDailyLimit),
		quota.WithLocation(cfg.Limits.QuotaLocation),
	)

	a.AI = llm.NewClient(cfg.AI)

	a.Coordinator = coordinator.New(coordinator.Deps{
		Users:   a.Users,
		Chats:   a.Chats,
		Quota:   a.Quota,
		Guests:  a.Guests,
		AI:      a.AI,
		Catalog: catalog,
	}, coordinator.WithLimits(coordinator.LimitsFromConfig(cfg.Limits)))

	logger.Info("application initialized",
		"store_backend", cfg.StoreBackend,
		"usage_backend", cfg.UsageBackend,
		"models", catalog.Keys(),
		"redis", a.Redis != nil,
	)

	return a, nil
}

func (a *App) connect(ctx context.Context) error {
	if a.Config.StoreBackend == config.BackendPostgres {
		pool, err := storage.NewPool(ctx, a.Config.DatabaseURL, storage.DefaultPoolOptions())
		if err != nil {
			return err
		}

		a.DB = pool

		if err := storage.EnsureSchema(ctx, pool); err != nil {
			return err
		}
	}

	if a.Config.RedisURL != "" {
		opts, err := goredis.ParseURL(a.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse redis URL: %w", err)
		}

		client := goredis.NewClient(opts)
		a.Redis = client

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
	}

	return nil
}

func (a *App) buildStores() {
	if a.DB != nil {
		a.Users = users.NewRepository(a.DB)
		a.Chats = chats.NewRepository(a.DB)
		a.Guests = guests.NewRepository(a.DB)
		a.Confirmations = confirmations.NewRepository(a.DB)
	} else {
		a.Users = users.NewMemoryRepository()
		a.Chats = chats.NewMemoryStore()
		a.Guests = guests.NewMemoryTracker()
		a.Confirmations = confirmations.NewMemoryRepository()
	}

	switch a.Config.UsageBackend {
	case config.BackendPostgres:
		a.Ledger = usage.NewPostgresLedger(a.DB)
	case config.BackendRedis:
		if a.Redis != nil {
			a.Ledger = usage.NewRedisLedger(a.Redis, usage.WithKeyPrefix(a.Config.RedisKeyPrefix))
		}
	default:
		a.Ledger = usage.NewMemoryLedger()
	}
}

// warns when a catalog model is missing from the provider's model list
func (a *App) CheckModels(ctx context.Context) {
	available, err := a.AI.ListModels(ctx)
	if err != nil {
		logger.Warn("failed to list provider models", "error", err)
		return
	}

	known := make(map[string]bool, len(available))
	for _, id := range available {
		known[id] = true
	}

	for _, key := range a.Catalog.Keys() {
		m, _ := a.Catalog.Get(key)
		if !known[m.ProviderID] {
			logger.Warn("model not offered by provider", "model", key, "provider_id", m.ProviderID)
		}
	}
}

// releases connections; safe on a partially built App
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logger.Warn("failed to close redis client", "error", err)
		}
	}

	if a.DB != nil {
		a.DB.Close()
	}
}
