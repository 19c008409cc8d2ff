package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	domain "github.com/ViviPassos/SiteNikoTrudel/internal/domain"
	"github.com/ViviPassos/SiteNikoTrudel/internal/handlers"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/config"
	pfirebase "github.com/ViviPassos/SiteNikoTrudel/internal/platform/firebase"
	pfirestore "github.com/ViviPassos/SiteNikoTrudel/internal/platform/firestore"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/jobs"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/observability"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/secrets"
	pstorage "github.com/ViviPassos/SiteNikoTrudel/internal/platform/storage"
	"github.com/ViviPassos/SiteNikoTrudel/internal/platform/textutil"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories"
	filerepo "github.com/ViviPassos/SiteNikoTrudel/internal/repositories/file"
	firestoreRepo "github.com/ViviPassos/SiteNikoTrudel/internal/repositories/firestore"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories/memory"
	redisrepo "github.com/ViviPassos/SiteNikoTrudel/internal/repositories/redis"
	"github.com/ViviPassos/SiteNikoTrudel/internal/repositories/rtdb"
	"github.com/ViviPassos/SiteNikoTrudel/internal/services"
)

const meterName = "github.com/ViviPassos/SiteNikoTrudel"

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)
	eventLogger := observability.EventLogger(logger)
	meter := otel.GetMeterProvider().Meter(meterName)

	envValues, err := config.EnvironmentValues()
	if err != nil {
		logger.Fatal("failed to read environment values", zap.Error(err))
	}

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.Names()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	needsFirebase := cfg.Catalog.Source == config.CatalogSourceRTDB || cfg.Firebase.StorageBucket != ""
	var firebaseApp *pfirebase.App
	if needsFirebase {
		firebaseApp, err = pfirebase.NewApp(ctx, cfg.Firebase)
		if err != nil {
			logger.Fatal("failed to initialise firebase app", zap.Error(err))
		}
	}

	firestoreCfg := cfg.Firestore
	if firestoreCfg.ProjectID == "" {
		firestoreCfg.ProjectID = cfg.Firebase.ProjectID
	}
	firestoreProvider := pfirestore.NewProvider(firestoreCfg)
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	var checks []repositories.DependencyCheck

	catalogSource, err := newCatalogSource(ctx, cfg, firestoreProvider, firebaseApp, logger.Named("catalog"))
	if err != nil {
		logger.Fatal("failed to initialise catalog source", zap.Error(err))
	}
	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Source: catalogSource,
		Logger: eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}
	checks = append(checks, repositories.DependencyCheck{
		Name:     "catalog",
		Critical: true,
		Check: func(context.Context) error {
			if !catalogService.Snapshot().Loaded() {
				return errors.New("catalog not loaded")
			}
			return nil
		},
	})

	cartRepo, cartCheck, closeCarts, err := newCartRepository(ctx, cfg, firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise cart repository", zap.Error(err))
	}
	defer closeCarts()
	if cartCheck != nil {
		checks = append(checks, *cartCheck)
	}

	observers := []services.ItemCountObserver{services.LogItemCountObserver(eventLogger)}
	if histogram, err := services.NewItemCountHistogramObserver(meter); err != nil {
		logger.Warn("cart item count histogram disabled", zap.Error(err))
	} else {
		observers = append(observers, histogram)
	}
	cartService, err := services.NewCartService(services.CartServiceDeps{
		Repository: cartRepo,
		Catalog:    catalogService,
		Observers:  observers,
		Logger:     eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise cart service", zap.Error(err))
	}

	customizationService, err := services.NewCustomizationService(services.CustomizationServiceDeps{Catalog: catalogService})
	if err != nil {
		logger.Fatal("failed to initialise customization service", zap.Error(err))
	}

	var assets services.AssetResolver
	if firebaseApp != nil && cfg.Firebase.StorageBucket != "" {
		resolver, err := newAssetResolver(ctx, cfg, firebaseApp)
		if err != nil {
			logger.Warn("asset resolver disabled; serving placeholders", zap.Error(err))
		} else {
			assets = resolver
		}
	}

	locale := language.Make(cfg.Checkout.Locale)
	menuService, err := services.NewMenuService(services.MenuServiceDeps{
		Catalog:          catalogService,
		Assets:           assets,
		PlaceholderURL:   cfg.Assets.PlaceholderURL,
		ImageConcurrency: cfg.Assets.Concurrency,
		Layout:           layoutOptions(cfg.Menu),
		Currency:         cfg.Checkout.Currency,
		Locale:           locale,
		Logger:           eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise menu service", zap.Error(err))
	}

	notifier, closeNotifier, err := newHandoffNotifier(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise checkout events", zap.Error(err))
	}
	defer closeNotifier()

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:       cartService,
		Notifier:    notifier,
		Host:        cfg.Checkout.Host,
		Recipient:   cfg.Checkout.Recipient,
		Greeting:    cfg.Checkout.Greeting,
		Currency:    cfg.Checkout.Currency,
		Locale:      locale,
		IDGenerator: func() string { return ulid.Make().String() },
		Logger:      eventLogger,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}

	if cfg.Catalog.Source == config.CatalogSourceFirestore || cfg.Cart.Store == config.CartStoreFirestore {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "firestore",
			Critical: cfg.Cart.Store == config.CartStoreFirestore,
			Check: func(ctx context.Context) error {
				return firestoreProvider.Ping(ctx, cfg.Catalog.CategoriesCollection)
			},
		})
	}

	healthRepo, err := repositories.NewProbeHealthRepository(checks)
	if err != nil {
		logger.Fatal("failed to initialise health probes", zap.Error(err))
	}

	formatPrice := func(amount domain.Money) string {
		return textutil.FormatCurrency(int64(amount), cfg.Checkout.Currency, locale)
	}
	menuHandlers := handlers.NewMenuHandlers(menuService, customizationService, formatPrice)
	cartHandlers := handlers.NewCartHandlers(cartService, checkoutService, handlers.WithCartPriceFormatter(formatPrice))

	projectID := cfg.Firebase.ProjectID
	router := handlers.NewRouter(
		handlers.WithCORSOrigins(cfg.CORS.AllowedOrigins...),
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(logger),
			observability.TraceMiddleware(projectID),
			observability.RequestLoggerMiddleware(projectID),
			observability.RecoveryMiddleware(logger),
		),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(
			handlers.WithHealthRepository(healthRepo),
			handlers.WithHealthVersion(strings.TrimSpace(envValues["API_BUILD_VERSION"])),
		)),
		handlers.WithPublicRoutes(func(r chi.Router) { menuHandlers.Routes(r) }),
		handlers.WithCartMiddlewares(handlers.CartSessionMiddleware(cfg.Cart.TTL, secureCookies(envValues))),
		handlers.WithCartRoutes(func(r chi.Router) { cartHandlers.Routes(r) }),
	)

	runCtx, stopCatalog := context.WithCancel(ctx)
	var catalogWG sync.WaitGroup
	catalogWG.Add(1)
	go func() {
		defer catalogWG.Done()
		if err := catalogService.Run(runCtx); err != nil {
			logger.Error("catalog watch stopped", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("menu api listening", zap.String("catalogSource", cfg.Catalog.Source), zap.String("cartStore", cfg.Cart.Store))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	stopCatalog()
	catalogWG.Wait()
}

func newCatalogSource(ctx context.Context, cfg config.Config, provider *pfirestore.Provider, app *pfirebase.App, logger *zap.Logger) (repositories.CatalogSource, error) {
	skip := func(kind, id string, err error) {
		logger.Warn("skipping malformed catalog record", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	}

	switch cfg.Catalog.Source {
	case config.CatalogSourceFirestore:
		return firestoreRepo.NewCatalogSource(provider, cfg.Catalog.CategoriesCollection, cfg.Catalog.ProductsCollection, skip)
	case config.CatalogSourceRTDB:
		if app == nil {
			return nil, errors.New("realtime database requires firebase configuration")
		}
		client, err := app.Database(ctx)
		if err != nil {
			return nil, err
		}
		return rtdb.NewCatalogSource(
			client.NewRef(cfg.Catalog.CategoriesCollection),
			client.NewRef(cfg.Catalog.ProductsCollection),
			rtdb.WithPollInterval(cfg.Catalog.PollInterval),
			rtdb.WithSkipHandler(skip),
			rtdb.WithPollErrorHandler(func(kind string, err error) {
				logger.Warn("realtime database poll failed", zap.String("kind", kind), zap.Error(err))
			}),
		)
	case config.CatalogSourceFile:
		return filerepo.NewCatalogSource(cfg.Catalog.File, cfg.Catalog.PollInterval, skip, func(err error) {
			logger.Warn("catalog file reload failed", zap.Error(err))
		})
	default:
		return nil, fmt.Errorf("unsupported catalog source %q", cfg.Catalog.Source)
	}
}

func newCartRepository(ctx context.Context, cfg config.Config, provider *pfirestore.Provider) (repositories.CartRepository, *repositories.DependencyCheck, func(), error) {
	noop := func() {}
	switch cfg.Cart.Store {
	case config.CartStoreMemory:
		return memory.NewCartRepository(), nil, noop, nil
	case config.CartStoreRedis:
		client, err := redisrepo.NewClient(ctx, redisrepo.Options{
			Addr:     cfg.Cart.RedisAddr,
			Password: cfg.Cart.RedisPassword,
			DB:       cfg.Cart.RedisDB,
		})
		if err != nil {
			return nil, nil, noop, err
		}
		repo, err := redisrepo.NewCartRepository(client, cfg.Cart.KeyPrefix, cfg.Cart.TTL)
		if err != nil {
			_ = client.Close()
			return nil, nil, noop, err
		}
		check := redisCheck(client)
		return repo, &check, func() { _ = client.Close() }, nil
	case config.CartStoreFirestore:
		repo, err := firestoreRepo.NewCartRepository(provider, cfg.Cart.Collection)
		if err != nil {
			return nil, nil, noop, err
		}
		return repo, nil, noop, nil
	default:
		return nil, nil, noop, fmt.Errorf("unsupported cart store %q", cfg.Cart.Store)
	}
}

func redisCheck(client *goredis.Client) repositories.DependencyCheck {
	return repositories.DependencyCheck{
		Name:     "redis",
		Critical: true,
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}

func newAssetResolver(ctx context.Context, cfg config.Config, app *pfirebase.App) (*pstorage.Resolver, error) {
	bucket, name, err := app.Bucket(ctx)
	if err != nil {
		return nil, err
	}
	opts := []pstorage.ResolverOption{pstorage.WithSignedURLTTL(cfg.Assets.SignedURLTTL)}
	if cfg.Assets.SignerEmail != "" && cfg.Assets.SignerPrivateKey != "" {
		signer, err := pstorage.NewServiceAccountSigner(cfg.Assets.SignerEmail, cfg.Assets.SignerPrivateKey)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pstorage.WithSigner(signer))
	}
	return pstorage.NewResolver(name, pstorage.BucketReader{Bucket: bucket}, opts...)
}

func newHandoffNotifier(ctx context.Context, cfg config.Config) (services.HandoffNotifier, func(), error) {
	switch cfg.Events.Sink {
	case config.EventsSinkNone, "":
		return nil, func() {}, nil
	case config.EventsSinkPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Firebase.ProjectID)
		if err != nil {
			return nil, func() {}, fmt.Errorf("initialise pubsub client: %w", err)
		}
		publisher, err := jobs.NewPubSubHandoffPublisher(client.Topic(cfg.Events.PubSubTopic))
		if err != nil {
			_ = client.Close()
			return nil, func() {}, err
		}
		return publisher, func() {
			_ = publisher.Close()
			_ = client.Close()
		}, nil
	case config.EventsSinkKafka:
		writer, err := jobs.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		if err != nil {
			return nil, func() {}, err
		}
		publisher, err := jobs.NewKafkaHandoffPublisher(writer)
		if err != nil {
			_ = writer.Close()
			return nil, func() {}, err
		}
		return publisher, func() { _ = publisher.Close() }, nil
	default:
		return nil, func() {}, fmt.Errorf("unsupported events sink %q", cfg.Events.Sink)
	}
}

func layoutOptions(cfg config.MenuConfig) services.LayoutOptions {
	opts := services.DefaultLayoutOptions()
	if marker := strings.TrimSpace(cfg.BuildYourOwnMarker); marker != "" {
		opts.BuildYourOwnMarker = marker
	}
	if cfg.DerivedLabelPolicy == config.DerivedLabelFirstWord {
		opts.DerivedLabel = services.DerivedLabelFirstWord
	}
	return opts
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	project := strings.TrimSpace(env["API_SECRET_DEFAULT_PROJECT_ID"])
	if project == "" {
		project = strings.TrimSpace(env["API_FIREBASE_PROJECT_ID"])
	}
	fallback := strings.TrimSpace(env["API_SECRET_FALLBACK_FILE"])
	if fallback == "" {
		fallback = ".secrets.local"
	}
	return secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithProject(project),
		secrets.WithFallbackFile(fallback),
		secrets.WithMeter(otel.GetMeterProvider().Meter(meterName)),
	)
}

// requiredSecretNames lists secrets that must resolve for the configured features.
func requiredSecretNames(env map[string]string) []string {
	var required []string
	if strings.TrimSpace(env["API_ASSETS_SIGNER_EMAIL"]) != "" {
		required = append(required, "Assets.SignerPrivateKey")
	}
	return required
}

func secureCookies(env map[string]string) bool {
	switch strings.ToLower(strings.TrimSpace(env["API_CART_INSECURE_COOKIES"])) {
	case "1", "true", "yes":
		return false
	default:
		return true
	}
}
