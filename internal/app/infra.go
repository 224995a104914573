package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_queue/config"
	"github.com/Alijeyrad/simorq_queue/internal/live"
	"github.com/Alijeyrad/simorq_queue/internal/repo"
	"github.com/Alijeyrad/simorq_queue/pkg/authorize"
	"github.com/Alijeyrad/simorq_queue/pkg/constants"
	"github.com/Alijeyrad/simorq_queue/pkg/database"
	"github.com/Alijeyrad/simorq_queue/pkg/email"
	"github.com/Alijeyrad/simorq_queue/pkg/observability"
	pasetotoken "github.com/Alijeyrad/simorq_queue/pkg/paseto"
	redispkg "github.com/Alijeyrad/simorq_queue/pkg/redis"
	"github.com/Alijeyrad/simorq_queue/pkg/sms"
)

// InfraModule provides all infrastructure dependencies.
//
// Redis, NATS and the paseto manager are optional: their providers return nil
// when the matching config section is empty.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideStore),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvidePasetoManager),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideHub),
	fx.Provide(ProvideSMS),
	fx.Provide(ProvideEmail),
)

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	if !redispkg.Enabled(cfg.Redis) {
		if cfg.Queue.Store == constants.StoreRedis {
			return nil, fmt.Errorf("queue.store is %q but redis.addr is empty", constants.StoreRedis)
		}
		return nil, nil
	}
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

// ProvideStore opens the queue store selected by queue.store.
func ProvideStore(lc fx.Lifecycle, cfg *config.Config, rdb *redis.Client) (repo.Store, error) {
	store, closeFn, err := OpenStore(context.Background(), cfg, rdb)
	if err != nil {
		return nil, err
	}
	slog.Info("queue store ready", "driver", cfg.Queue.Store)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing queue store")
			return closeFn()
		},
	})
	return store, nil
}

// OpenStore builds a store outside the fx graph, for CLI commands.
// The returned func releases the store and any connection it opened.
func OpenStore(ctx context.Context, cfg *config.Config, rdb *redis.Client) (repo.Store, func() error, error) {
	lockTimeout := time.Duration(cfg.Queue.LockTimeoutSeconds) * time.Second

	switch cfg.Queue.Store {
	case "", constants.StoreMemory:
		store := repo.NewMemory(lockTimeout)
		return store, store.Close, nil

	case constants.StoreRedis:
		if rdb == nil {
			return nil, nil, fmt.Errorf("queue store %q needs a redis client", constants.StoreRedis)
		}
		store := repo.NewRedis(rdb, repo.RedisOptions{
			Prefix:      cfg.Queue.KeyPrefix,
			LockTTL:     time.Duration(cfg.Queue.LockTTLSeconds) * time.Second,
			LockTimeout: lockTimeout,
		})
		return store, store.Close, nil

	case constants.StorePostgres:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Migrations.AutoMigrate {
			if err := repo.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		store := repo.NewPostgres(db, lockTimeout)
		return store, func() error {
			_ = store.Close()
			return db.Close()
		}, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", repo.ErrUnknownDriver, cfg.Queue.Store)
}

func ProvideAuthorization(cfg *config.Config) (authorize.IAuthorization, error) {
	acfg := authorize.FromCentralConfig(cfg.Authorization)
	enforcer, err := authorize.NewEnforcer(acfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer)
	if err != nil {
		return nil, err
	}
	if acfg.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, slog.Default())
	}
	return auth, nil
}

// ProvidePasetoManager returns nil when authentication is disabled.
func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	if cfg.Authentication.Disabled {
		slog.Warn("authentication is disabled; every request runs as admin")
		return nil, nil
	}
	return pasetotoken.NewFromCentral(cfg.Authentication.Paseto)
}

func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL,
		nats.Name(constants.AppName),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvideHub(lc fx.Lifecycle, cfg *config.Config) *live.Hub {
	hub := live.NewHub(cfg.Live.BufferSize)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing live update hub")
			hub.Close()
			return nil
		},
	})
	return hub
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}

func ProvideSMS(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

func ProvideEmail(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}
