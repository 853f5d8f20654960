//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	postgresContainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	redisContainer "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sp3dr4/shortener/config"
	"github.com/sp3dr4/shortener/internal/application"
	"github.com/sp3dr4/shortener/internal/domain"
	"github.com/sp3dr4/shortener/internal/infrastructure/database"
	postgresRepo "github.com/sp3dr4/shortener/internal/infrastructure/postgres"
	redisCache "github.com/sp3dr4/shortener/internal/infrastructure/redis"
	"github.com/sp3dr4/shortener/internal/infrastructure/resilient"
	"github.com/sp3dr4/shortener/internal/pkg/metrics"
)

const testBaseURL = "http://localhost:8080"

// postgresDrivers are exercised against the same container.
var postgresDrivers = []string{database.DriverPostgres, database.DriverPgx}

var (
	sharedPostgres *postgresContainer.PostgresContainer
	sharedRedis    *redisContainer.RedisContainer
	sharedDBs      = map[string]*sqlx.DB{}
	sharedClient   *redis.Client
	containerOnce  sync.Once
	cleanupOnce    sync.Once
)

// TestEnvironment holds the test setup
type TestEnvironment struct {
	DB          *sqlx.DB
	Repo        domain.LinkRepository
	Cache       *redisCache.RedisCache
	RedisClient *redis.Client
	Service     *application.LinkService
	Resolver    *application.Resolver
	Clicks      *application.ClickRecorder
}

func testConfig() *config.Config {
	retry := config.RetryConfig{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond}
	return &config.Config{
		Store: config.StoreConfig{
			Timeout: 5 * time.Second,
			Retry:   retry,
			Breaker: config.BreakerConfig{Enabled: true, ConsecutiveFailures: 5, OpenTimeout: time.Second, HalfOpenRequests: 1},
		},
		Cache: config.CacheConfig{Enabled: true, TTL: time.Minute},
		App: config.AppConfig{
			BaseURL:             testBaseURL,
			ShortCodeLength:     7,
			MaxGenerateAttempts: 5,
			AllowAnonymous:      true,
			CustomSlug:          config.CustomSlugConfig{MinLength: 3, MaxLength: 32},
			List:                config.ListConfig{DefaultLimit: 20, MaxLimit: 100},
		},
		Clicks: config.ClicksConfig{Timeout: 5 * time.Second, Retry: retry},
	}
}

// SetupTestEnvironment starts the shared PostgreSQL and Redis containers on
// first use, empties both and wires the application on top of driver.
func SetupTestEnvironment(t *testing.T, driver string) *TestEnvironment {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	containerOnce.Do(func() {
		ctx := context.Background()

		pg, err := postgresContainer.Run(ctx,
			"postgres:16-alpine",
			postgresContainer.WithDatabase("shortener_test"),
			postgresContainer.WithUsername("test"),
			postgresContainer.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			t.Fatalf("failed to start postgres container: %v", err)
		}
		sharedPostgres = pg

		connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("failed to get connection string: %v", err)
		}

		for _, d := range postgresDrivers {
			db, err := database.OpenPostgres(ctx, config.PostgresConfig{URL: connStr, Driver: d, MaxOpenConns: 10}, logger)
			if err != nil {
				t.Fatalf("failed to open database with %s: %v", d, err)
			}
			sharedDBs[d] = db
		}

		rc, err := redisContainer.Run(ctx, "redis:7-alpine")
		if err != nil {
			t.Fatalf("failed to start redis container: %v", err)
		}
		sharedRedis = rc

		redisURL, err := rc.ConnectionString(ctx)
		if err != nil {
			t.Fatalf("failed to get redis connection string: %v", err)
		}
		client, err := redisCache.NewClient(redisURL)
		if err != nil {
			t.Fatalf("failed to create redis client: %v", err)
		}
		sharedClient = client
	})

	db := sharedDBs[driver]
	if db == nil {
		t.Fatalf("no shared database for driver %s", driver)
	}
	cleanState(t, db, sharedClient)

	cfg := testConfig()
	registry := metrics.NewNoOpRegistry()
	repo := resilient.NewRepository(postgresRepo.NewURLRepository(db), cfg.Store, registry, logger)
	cache := redisCache.NewRedisCache(sharedClient, logger)

	generator := application.NewCodeGenerator(repo, cfg)
	clicks := application.NewClickRecorder(repo, cfg, registry, logger)

	return &TestEnvironment{
		DB:          db,
		Repo:        repo,
		Cache:       cache,
		RedisClient: sharedClient,
		Service:     application.NewLinkService(repo, generator, cache, cfg, registry),
		Resolver:    application.NewResolver(repo, cache, clicks, cfg, registry),
		Clicks:      clicks,
	}
}

// Drain waits for the asynchronous click increments issued so far.
func (e *TestEnvironment) Drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Clicks.Wait(ctx); err != nil {
		t.Fatalf("pending clicks not recorded: %v", err)
	}
}

// forEachDriver runs fn once per PostgreSQL driver.
func forEachDriver(t *testing.T, fn func(t *testing.T, env *TestEnvironment)) {
	for _, driver := range postgresDrivers {
		t.Run(driver, func(t *testing.T) {
			fn(t, SetupTestEnvironment(t, driver))
		})
	}
}

// CleanupSharedResources should be called once at the end of all tests
func CleanupSharedResources() {
	cleanupOnce.Do(func() {
		ctx := context.Background()
		for _, db := range sharedDBs {
			_ = db.Close()
		}
		if sharedClient != nil {
			_ = sharedClient.Close()
		}
		if sharedPostgres != nil {
			_ = sharedPostgres.Terminate(ctx)
		}
		if sharedRedis != nil {
			_ = sharedRedis.Terminate(ctx)
		}
	})
}

// cleanState truncates the links table and flushes Redis for test isolation
func cleanState(t *testing.T, db *sqlx.DB, client *redis.Client) {
	if _, err := db.Exec("TRUNCATE TABLE links"); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}
	if err := client.FlushDB(context.Background()).Err(); err != nil {
		t.Fatalf("failed to flush redis: %v", err)
	}
}

// TestMain handles setup and teardown for the entire test suite
func TestMain(m *testing.M) {
	code := m.Run()

	CleanupSharedResources()

	os.Exit(code)
}
