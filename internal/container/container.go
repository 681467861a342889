package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/persona-api/internal/account"
	"github.com/serroba/persona-api/internal/analytics"
	analyticsstore "github.com/serroba/persona-api/internal/analytics/store"
	"github.com/serroba/persona-api/internal/cache"
	"github.com/serroba/persona-api/internal/handlers"
	"github.com/serroba/persona-api/internal/health"
	"github.com/serroba/persona-api/internal/messaging"
	"github.com/serroba/persona-api/internal/middleware"
	"github.com/serroba/persona-api/internal/persona"
	"github.com/serroba/persona-api/internal/ratelimit"
	"github.com/serroba/persona-api/internal/store"
	"go.uber.org/zap"
)

const (
	CacheRedis  = "redis"
	CacheMemory = "memory"

	tokenLength            = 32
	consumerGroupName      = "analytics"
	postgresConnectTimeout = 5 * time.Second
)

type Options struct {
	Port               int    `default:"8888"           help:"Port to listen on"                                  short:"p"`
	RedisAddr          string `default:"localhost:6379" help:"Redis server address"                               short:"r"`
	DatabaseURL        string `default:""               help:"PostgreSQL URL; empty keeps data in memory"         short:"d"`
	LogFormat          string `default:"console"        help:"Log format: json or console"`
	RateLimitMax       int    `default:"5"              help:"Accepted token requests per client per window"`
	RateLimitWindow    int    `default:"60"             help:"Token rate limit window in seconds"`
	RateLimitCache     string `default:"redis"          help:"Rate limit cache backend: redis or memory"`
	ThrottleAnonMax    int    `default:"100"            help:"Accepted anonymous requests per client per window"`
	ThrottleAnonWindow int    `default:"86400"          help:"Anonymous throttle window in seconds"`
	ThrottleUserMax    int    `default:"1000"           help:"Accepted profile requests per user per window"`
	ThrottleUserWindow int    `default:"86400"          help:"User throttle window in seconds"`
	ThrottleLowMax     int    `default:"50"             help:"Accepted API key operations per user per window"`
	ThrottleLowWindow  int    `default:"86400"          help:"API key operation window in seconds"`
	SessionTTL         int    `default:"86400"          help:"Access token lifetime in seconds"`
}

// Policy builds the per-scope throttle settings. The login scope keeps the
// "rl:" prefix of the token limiter.
func (o *Options) Policy() ratelimit.Policy {
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }

	return ratelimit.Policy{
		Limits: map[ratelimit.Scope]ratelimit.Config{
			ratelimit.ScopeAnon: {MaxRequests: o.ThrottleAnonMax, Window: seconds(o.ThrottleAnonWindow)},
			ratelimit.ScopeUser: {MaxRequests: o.ThrottleUserMax, Window: seconds(o.ThrottleUserWindow)},
			ratelimit.ScopeLogin: {
				MaxRequests: o.RateLimitMax,
				Window:      seconds(o.RateLimitWindow),
				KeyPrefix:   ratelimit.DefaultKeyPrefix,
			},
			ratelimit.ScopeLow: {MaxRequests: o.ThrottleLowMax, Window: seconds(o.ThrottleLowWindow)},
		},
	}
}

// RedisClient owns the shared Redis connection pool.
type RedisClient struct {
	*redis.Client
}

// Shutdown closes the connection pool.
func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// Repository is the persistence used by both account and persona services.
type Repository interface {
	account.Repository
	persona.Repository
}

func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// PostgresPackage registers the PostgreSQL store when a database URL is configured.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*store.PostgresStore, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), postgresConnectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		pg := store.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("migrate postgres: %w", err)
		}

		return pg, nil
	})
}

func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (Repository, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			logger.Info("using in-memory repository")

			return store.NewMemoryStore(), nil
		}

		logger.Info("using postgres repository")

		pg, err := do.Invoke[*store.PostgresStore](i)
		if err != nil {
			return nil, err
		}

		return pg, nil
	})
}

func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Cache, error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.RateLimitCache {
		case CacheMemory:
			return cache.NewMemory(), nil
		case CacheRedis:
			return cache.NewRedis(do.MustInvoke[*RedisClient](i).Client), nil
		default:
			return nil, fmt.Errorf("unknown rate limit cache %q", opts.RateLimitCache)
		}
	})

	do.Provide(i, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		opts := do.MustInvoke[*Options](i)

		return ratelimit.NewPolicyLimiter(do.MustInvoke[ratelimit.Cache](i), opts.Policy()), nil
	})
}

func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client.Client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (analytics.Publishers, error) {
		return analytics.NewPublishers(do.MustInvoke[*messaging.PublisherGroup](i).Publisher()), nil
	})
}

func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (*account.Service, error) {
		opts := do.MustInvoke[*Options](i)

		generator, err := nanoid.Standard(tokenLength)
		if err != nil {
			return nil, err
		}

		return account.NewService(
			do.MustInvoke[Repository](i),
			generator,
			time.Duration(opts.SessionTTL)*time.Second,
		), nil
	})

	do.Provide(i, func(i *do.Injector) (*persona.Service, error) {
		keys, err := persona.NewKeyGenerator()
		if err != nil {
			return nil, err
		}

		return persona.NewService(do.MustInvoke[Repository](i), keys, do.MustInvoke[*zap.Logger](i)), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		publishers := do.MustInvoke[analytics.Publishers](i)
		accounts := do.MustInvoke[*account.Service](i)

		policy := do.MustInvoke[*ratelimit.PolicyLimiter](i)

		login, ok := policy.Limiter(ratelimit.ScopeLogin)
		if !ok {
			return nil, fmt.Errorf("rate limit policy has no %q scope", ratelimit.ScopeLogin)
		}

		api := humachi.New(router, huma.DefaultConfig("Persona API", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.Authenticate(accounts, logger))
		api.UseMiddleware(middleware.PolicyRateLimiter(api, policy, ratelimit.NewOperationScopeResolver(),
			publishers.RateLimited, logger))

		handlers.RegisterRoutes(
			api,
			handlers.NewAccountHandler(accounts, logger),
			handlers.NewPersonaHandler(do.MustInvoke[*persona.Service](i), publishers.PersonaAccessed, logger),
			middleware.RateLimiter(api, login, publishers.RateLimited, logger),
		)

		var postgres health.Checker
		if opts.DatabaseURL != "" {
			postgres = do.MustInvoke[*store.PostgresStore](i)
		}

		health.RegisterRoutes(api, health.NewHandler(
			health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client),
			postgres,
		))

		return api, nil
	})
}

func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client.Client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: consumerGroupName,
		}, messaging.NewZapLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		analytics.RegisterConsumers(group, analyticsstore.NewLog(logger), logger)

		return group, nil
	})
}
