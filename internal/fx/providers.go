package fx

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.uber.org/fx"

	"github.com/sp3dr4/shortener/config"
	httpAdapter "github.com/sp3dr4/shortener/internal/adapters/http"
	"github.com/sp3dr4/shortener/internal/application"
	"github.com/sp3dr4/shortener/internal/domain"
	cacheImpl "github.com/sp3dr4/shortener/internal/infrastructure/cache"
	"github.com/sp3dr4/shortener/internal/infrastructure/database"
	memoryRepo "github.com/sp3dr4/shortener/internal/infrastructure/memory"
	postgresRepo "github.com/sp3dr4/shortener/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/shortener/internal/infrastructure/redis"
	"github.com/sp3dr4/shortener/internal/infrastructure/resilient"
	sqliteRepo "github.com/sp3dr4/shortener/internal/infrastructure/sqlite"
	"github.com/sp3dr4/shortener/internal/pkg/logging"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

const connectTimeout = 10 * time.Second

// ProvideLogger creates and configures the application logger
func ProvideLogger(cfg *config.Config) *slog.Logger {
	logger := logging.NewLogger(os.Stdout, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)
	return logger
}

// ProvideRepository creates the record store selected by configuration and
// wraps it with timeouts and the circuit breaker.
func ProvideRepository(cfg *config.Config, registry metrics.Registry, logger *slog.Logger) (domain.LinkRepository, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return resilient.NewRepository(store, cfg.Store, registry, logger), nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (domain.LinkRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch cfg.Database.Type {
	case "memory":
		logger.Info("Using in-memory repository")
		return memoryRepo.NewURLRepository(), nil

	case "sqlite":
		logger.Info("Using SQLite repository", "path", cfg.Database.SQLite.Path, "driver", cfg.Database.SQLite.Driver)
		db, err := database.OpenSQLite(ctx, cfg.Database.SQLite, logger)
		if err != nil {
			return nil, err
		}
		return sqliteRepo.NewURLRepository(db), nil

	case "postgres":
		logger.Info("Using PostgreSQL repository", "driver", cfg.Database.Postgres.Driver)
		db, err := database.OpenPostgres(ctx, cfg.Database.Postgres, logger)
		if err != nil {
			return nil, err
		}
		return postgresRepo.NewURLRepository(db), nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}
}

// ProvideCache connects to Redis when caching is enabled and falls back to a
// no-op cache otherwise.
func ProvideCache(cfg *config.Config, logger *slog.Logger) (domain.Cache, error) {
	if !cfg.Cache.Enabled {
		logger.Info("Cache disabled")
		return cacheImpl.NewNoOpCache(), nil
	}

	client, err := redisCache.NewClient(cfg.Cache.RedisURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Using Redis cache", "ttl", cfg.Cache.TTL)
	return redisCache.NewRedisCache(client, logger), nil
}

// ProvideMetricsRegistry builds the Prometheus registry, or a no-op one when
// metrics are disabled.
func ProvideMetricsRegistry(cfg *config.Config) (metrics.Registry, error) {
	if !cfg.Metrics.Enabled {
		return metrics.NewNoOpRegistry(), nil
	}
	return metrics.NewPrometheusRegistry(cfg.Metrics)
}

func ProvideLinkService(repo domain.LinkRepository, generator *application.CodeGenerator, cache domain.Cache, cfg *config.Config, registry metrics.Registry) *application.LinkService {
	return application.NewLinkService(repo, generator, cache, cfg, registry)
}

func ProvideResolver(repo domain.LinkRepository, cache domain.Cache, clicks *application.ClickRecorder, cfg *config.Config, registry metrics.Registry) *application.Resolver {
	return application.NewResolver(repo, cache, clicks, cfg, registry)
}

func ProvideAuthenticator(cfg *config.Config) *httpAdapter.Authenticator {
	return httpAdapter.NewAuthenticator(cfg.Auth)
}

// RepositoryParams holds the parameters needed for repository lifecycle management
type RepositoryParams struct {
	fx.In

	Repository domain.LinkRepository
	Logger     *slog.Logger
}

// RegisterRepositoryHooks registers repository lifecycle hooks with FX
func RegisterRepositoryHooks(lc fx.Lifecycle, params RepositoryParams) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := params.Repository.HealthCheck(ctx); err != nil {
				return fmt.Errorf("repository not reachable: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := params.Repository.Close(); err != nil {
				params.Logger.Error("Failed to close repository resources", "error", err)
				return err
			}
			params.Logger.Info("Repository resources closed successfully")
			return nil
		},
	})
}

// CacheParams holds the parameters needed for cache lifecycle management
type CacheParams struct {
	fx.In

	Cache  domain.Cache
	Logger *slog.Logger
}

// RegisterCacheHooks closes the cache connection on shutdown
func RegisterCacheHooks(lc fx.Lifecycle, params CacheParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Cache.Close(); err != nil {
				params.Logger.Error("Failed to close cache", "error", err)
				return err
			}
			return nil
		},
	})
}

// ClickParams holds the parameters needed to drain pending click increments
type ClickParams struct {
	fx.In

	Clicks *application.ClickRecorder
	Logger *slog.Logger
}

// RegisterClickHooks waits for in-flight click increments on shutdown. Hooks
// stop in reverse order, so this runs after the HTTP server has stopped
// accepting redirects as long as it is registered first.
func RegisterClickHooks(lc fx.Lifecycle, params ClickParams) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := params.Clicks.Wait(ctx); err != nil {
				params.Logger.Warn("Shutdown before pending clicks were recorded", "error", err)
				return err
			}
			params.Logger.Info("Pending clicks recorded")
			return nil
		},
	})
}
