package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/discoverhealth/backend/internal/adapters/auth"
	"github.com/discoverhealth/backend/internal/adapters/cache"
	"github.com/discoverhealth/backend/internal/adapters/database"
	"github.com/discoverhealth/backend/internal/adapters/session"
	"github.com/discoverhealth/backend/internal/api/handlers"
	"github.com/discoverhealth/backend/internal/api/middleware"
	"github.com/discoverhealth/backend/internal/api/routes"
	"github.com/discoverhealth/backend/internal/application/services"
	"github.com/discoverhealth/backend/internal/domain/repositories"
	"github.com/discoverhealth/backend/internal/infrastructure/clients/postgres"
	"github.com/discoverhealth/backend/internal/infrastructure/clients/redis"
	"github.com/discoverhealth/backend/internal/infrastructure/clients/sqlite"
	"github.com/discoverhealth/backend/internal/infrastructure/observability"
	"github.com/discoverhealth/backend/pkg/config"
)

const (
	sessionSweepInterval = time.Minute
	shutdownTimeout      = 10 * time.Second
	cacheKeyPrefix       = "discoverhealth:"
)

// sqlDatabase is the database handle shared by adapters and the readiness probe
type sqlDatabase interface {
	database.SQLClient
	handlers.Pinger
	io.Closer
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.AppEnv, cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize database client and schema
	db, err := openDatabase(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.NewMigrator(db).Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}
	log.Info().Str("driver", db.Driver()).Msg("Database ready")

	// Redis backs the region cache and, when selected, the session store
	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.Session.Store == config.SessionStoreRedis {
		redisClient, err = redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.RedisAddr()).Msg("Redis unavailable, continuing without it")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	// Initialize adapters
	var resourceRepo repositories.ResourceRepository = database.NewResourceAdapter(db)
	if redisClient != nil && cfg.Redis.Enabled {
		resourceRepo = database.NewCachedResourceAdapter(resourceRepo, cache.NewRedisAdapter(redisClient, cacheKeyPrefix), cfg.Cache.TTL)
		log.Info().Dur("ttl", cfg.Cache.TTL).Msg("Region lookups cached in Redis")
	}
	userRepo := database.NewUserAdapter(db)

	sessionStore := newSessionStore(cfg.Session.Store, redisClient)
	defer sessionStore.Close()

	// Initialize services
	sessionService := services.NewSessionService(sessionStore, cfg.Session.TTL)
	authService := services.NewAuthService(userRepo, auth.NewBcryptHasher(bcrypt.DefaultCost), sessionService)
	resourceService := services.NewResourceService(resourceRepo)

	// Initialize handlers
	cookie := middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.CookieSecure,
	}

	router := routes.NewRouter(
		handlers.NewResourceHandler(resourceService),
		handlers.NewAuthHandler(authService, cookie),
		handlers.NewHealthHandler(db),
		handlers.NewStaticHandler(cfg.Server.StaticDir),
		routes.Options{
			Sessions:       sessionService,
			Cookie:         cookie,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Metrics:        metrics,
		},
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Server shutting down")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Server failed")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}

func openDatabase(ctx context.Context, cfg *config.DatabaseConfig) (sqlDatabase, error) {
	if cfg.Driver == config.DriverPostgres {
		return postgres.NewClient(ctx, cfg)
	}
	return sqlite.NewClient(ctx, cfg)
}

// sessionStore is a session repository with resources to release on shutdown
type sessionStore interface {
	repositories.SessionRepository
	Close() error
}

func newSessionStore(kind string, redisClient *redis.Client) sessionStore {
	if kind == config.SessionStoreRedis {
		if redisClient != nil {
			log.Info().Msg("Sessions stored in Redis")
			return session.NewRedisStore(redisClient)
		}
		log.Warn().Msg("SESSION_STORE=redis but Redis is unavailable, using in-memory sessions")
	}
	return session.NewMemoryStore(sessionSweepInterval)
}
