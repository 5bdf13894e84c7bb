package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/replyguy/memegen/internal/analytics"
	analyticsstore "github.com/replyguy/memegen/internal/analytics/store"
	"github.com/replyguy/memegen/internal/handlers"
	"github.com/replyguy/memegen/internal/health"
	"github.com/replyguy/memegen/internal/imgflip"
	"github.com/replyguy/memegen/internal/messaging"
	"github.com/replyguy/memegen/internal/middleware"
	"github.com/replyguy/memegen/internal/ratelimit"
	"github.com/replyguy/memegen/internal/selector"
	"github.com/replyguy/memegen/internal/store"
	"github.com/replyguy/memegen/internal/tracker"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// floodGuardLimit caps any single client at this many requests per minute
// across all endpoints, before the scoped policy limits apply.
const floodGuardLimit = 600

// Options holds the service configuration, parsed by humacli.
type Options struct {
	Port            int    `default:"8888"             help:"Port to listen on"                           short:"p"`
	RedisAddr       string `default:"localhost:6379"   help:"Redis server address"                        short:"r"`
	DatabaseURL     string `help:"Postgres connection string for analytics persistence"`
	ImgflipUsername string `help:"Imgflip account username"`
	ImgflipPassword string `help:"Imgflip account password"`
	GenAIKey        string `help:"Google GenAI API key for model-based template selection"`
	GenAIModel      string `default:"gemini-2.0-flash" help:"GenAI model for template selection"`
	LogFormat       string `default:"console"          help:"Log format: console or json"`
	CatalogTTL      int    `default:"10"               help:"Template catalog cache TTL in minutes"`
	CleanupInterval int    `default:"60"               help:"Tracker history cleanup interval in minutes"`
}

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		options := do.MustInvoke[*Options](i)

		if options.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides the Redis client.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		options := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		}), nil
	})
}

// AnalyticsStorePackage provides the analytics event store: Postgres when a
// database is configured, the logging no-op store otherwise.
func AnalyticsStorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (analytics.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.DatabaseURL == "" {
			logger.Info("no database configured, analytics events will only be logged")

			return analyticsstore.NewNoop(logger), nil
		}

		pool, err := pgxpool.New(context.Background(), options.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return store.NewPostgresStore(pool), nil
	})
}

// ImgflipPackage provides the Imgflip client and the cached template catalog.
func ImgflipPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*imgflip.Client, error) {
		options := do.MustInvoke[*Options](i)

		return imgflip.New(options.ImgflipUsername, options.ImgflipPassword), nil
	})

	do.Provide(injector, func(i *do.Injector) (imgflip.Catalog, error) {
		options := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*imgflip.Client](i)

		ttl := time.Duration(options.CatalogTTL) * time.Minute

		return imgflip.NewCachedCatalog(client, ttl), nil
	})
}

// SelectorPackage provides the template selector: model-backed when a GenAI
// key is configured, the tone-based fallback otherwise.
func SelectorPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (selector.Selector, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.GenAIKey == "" {
			logger.Info("no genai key configured, using tone-based template selection")

			return selector.NewToneSelector(), nil
		}

		return selector.NewGenAISelector(context.Background(), options.GenAIKey, options.GenAIModel, logger)
	})
}

// TrackerPackage provides the diversity tracker and its cleanup janitor.
func TrackerPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*tracker.Tracker, error) {
		return tracker.New(), nil
	})

	do.Provide(injector, func(i *do.Injector) (*tracker.Janitor, error) {
		options := do.MustInvoke[*Options](i)
		trk := do.MustInvoke[*tracker.Tracker](i)
		logger := do.MustInvoke[*zap.Logger](i)

		interval := time.Duration(options.CleanupInterval) * time.Minute

		return tracker.NewJanitor(trk, interval, logger), nil
	})
}

// RateLimitPackage provides the rate limit store and policy limiter. Counters
// live in Redis so limits hold across instances; without a Redis address they
// fall back to process-local memory.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if options.RedisAddr == "" {
			logger.Info("no redis configured, rate limit counters are process-local")

			return store.NewRateLimitMemoryStore(), nil
		}

		client := do.MustInvoke[*redis.Client](i)

		return store.NewRateLimitRedisStore(client), nil
	})

	do.Provide(injector, func(i *do.Injector) (*ratelimit.PolicyLimiter, error) {
		limitStore := do.MustInvoke[ratelimit.Store](i)

		return ratelimit.NewPolicyLimiter(limitStore, ratelimit.DefaultPolicy()), nil
	})
}

// PublisherGroupPackage provides the watermill publisher over Redis streams.
func PublisherGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*redis.Client](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: client,
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// ConsumerGroupPackage provides the analytics consumer group over Redis streams.
func ConsumerGroupPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (message.Subscriber, error) {
		client := do.MustInvoke[*redis.Client](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "analytics",
		}, watermill.NewStdLogger(false, false))
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		return subscriber, nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		subscriber := do.MustInvoke[message.Subscriber](i)
		eventStore := do.MustInvoke[analytics.Store](i)
		logger := do.MustInvoke[*zap.Logger](i)

		group := messaging.NewConsumerGroup(logger)
		group.Add(analytics.NewConsumer(subscriber, eventStore, logger))

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with all routes and
// middleware registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[*ratelimit.PolicyLimiter](i)
		catalog := do.MustInvoke[imgflip.Catalog](i)
		client := do.MustInvoke[*imgflip.Client](i)
		sel := do.MustInvoke[selector.Selector](i)
		trk := do.MustInvoke[*tracker.Tracker](i)
		redisClient := do.MustInvoke[*redis.Client](i)
		publishers := do.MustInvoke[*messaging.PublisherGroup](i)

		api := humachi.New(router, huma.DefaultConfig("ReplyGuy Meme Service", "1.0.0"))

		// Coarse per-client flood guard ahead of the scoped policy limits.
		floodGuard := ratelimit.NewSlidingWindowLimiter(limiter.Store(), floodGuardLimit, time.Minute)

		api.UseMiddleware(
			middleware.RequestMeta(api),
			middleware.RateLimiter(api, floodGuard),
			middleware.PolicyRateLimiter(api, limiter, ratelimit.NewOperationScopeResolver(), logger),
		)

		memeID, err := nanoid.Standard(10)
		if err != nil {
			return nil, fmt.Errorf("create id generator: %w", err)
		}

		memeHandler := handlers.NewMemeHandler(
			catalog,
			client,
			sel,
			selector.NewToneSelector(),
			trk,
			handlers.IDGenerator(memeID),
			messaging.NewPublishFunc[analytics.MemeGeneratedEvent](publishers.Publisher(), analytics.TopicMemeGenerated),
			messaging.NewPublishFunc[analytics.TemplateUsedEvent](publishers.Publisher(), analytics.TopicTemplateUsed),
			logger,
		)

		handlers.RegisterRoutes(api, memeHandler)
		health.RegisterRoutes(api, health.NewHandler(health.NewRedisChecker(redisClient), client))

		return api, nil
	})
}
