package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/habitus/orderdesk/internal/handlers"
	"github.com/habitus/orderdesk/internal/platform/auth"
	"github.com/habitus/orderdesk/internal/platform/config"
	pfirestore "github.com/habitus/orderdesk/internal/platform/firestore"
	"github.com/habitus/orderdesk/internal/platform/jobs"
	"github.com/habitus/orderdesk/internal/platform/notify"
	"github.com/habitus/orderdesk/internal/platform/observability"
	"github.com/habitus/orderdesk/internal/platform/render"
	"github.com/habitus/orderdesk/internal/platform/secrets"
	"github.com/habitus/orderdesk/internal/platform/sheets"
	platformstorage "github.com/habitus/orderdesk/internal/platform/storage"
	firestoreRepo "github.com/habitus/orderdesk/internal/repositories/firestore"
	"github.com/habitus/orderdesk/internal/services"
)

const meterName = "github.com/habitus/orderdesk"

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger(os.Getenv("ORDERDESK_LOG_LEVEL"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("orderdesk")

	fetcher, err := secrets.NewFetcher(ctx,
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithDefaultProject(firstNonEmpty(os.Getenv("ORDERDESK_SECRET_DEFAULT_PROJECT_ID"), os.Getenv("ORDERDESK_FIREBASE_PROJECT_ID"))),
		secrets.WithMeter(otel.Meter(meterName)),
	)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	defer func() {
		if err := firestoreProvider.Close(); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	orderRepo, err := firestoreRepo.NewOrderRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise order repository", zap.Error(err))
	}
	couponRepo, err := firestoreRepo.NewCouponRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise coupon repository", zap.Error(err))
	}
	customerRepo, err := firestoreRepo.NewCustomerRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise customer repository", zap.Error(err))
	}
	catalogRepo, err := firestoreRepo.NewCatalogRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise catalog repository", zap.Error(err))
	}
	announcementRepo, err := firestoreRepo.NewAnnouncementRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise announcement repository", zap.Error(err))
	}

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()
	artifacts, err := platformstorage.NewArtifactStore(storageClient, cfg.Storage.BillsBucket)
	if err != nil {
		logger.Fatal("failed to initialise artifact store", zap.Error(err))
	}
	keys := platformstorage.Keys{Prefix: cfg.Storage.BillsPrefix, GroceryPrefix: cfg.Storage.GroceryPrefix}

	firebaseApp, err := auth.NewFirebaseApp(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase app", zap.Error(err))
	}
	verifier, err := auth.NewFirebaseVerifier(ctx, firebaseApp)
	if err != nil {
		logger.Fatal("failed to initialise firebase auth", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(verifier)

	var notifier services.Notifier
	if messagingClient, err := firebaseApp.Messaging(ctx); err != nil {
		logger.Warn("push notifications disabled", zap.Error(err))
	} else if topicNotifier, err := notify.NewTopicNotifier(messagingClient, cfg.Notify.Topics); err != nil {
		logger.Warn("push notifications disabled", zap.Error(err))
	} else {
		notifier = topicNotifier
	}

	var events services.OrderEventPublisher
	if topicID := strings.TrimSpace(cfg.PubSub.OrderEventsTopic); topicID != "" {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		topic := pubsubClient.Topic(topicID)
		defer func() {
			topic.Stop()
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewPubSubOrderEventPublisher(topic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		events = publisher
	}

	var (
		sheetWriter    services.OrderSheetWriter
		customerWriter services.CustomerSheetWriter
	)
	if cfg.Sheets.SpreadsheetID != "" {
		writer, err := sheets.NewWriter(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range, cfg.Sheets.CustomersRange, cfg.Sheets.Credentials)
		if err != nil {
			logger.Fatal("failed to initialise sheets writer", zap.Error(err))
		}
		sheetWriter = writer
		customerWriter = writer
	}

	meter := otel.Meter(meterName)
	links := notify.NewWhatsAppLinks(cfg.Notify.CountryCode, cfg.Invoice.Brand, cfg.Invoice.CurrencyLabel, cfg.Invoice.Locale)

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:    orderRepo,
		Customers: customerRepo,
		Artifacts: artifacts,
		Keys:      keys,
		Events:    events,
		Notifier:  notifier,
		Logger:    observability.EventLogger(logger, "orders"),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}

	policy, err := services.TransitionPolicyByName(cfg.Lifecycle.Policy)
	if err != nil {
		logger.Fatal("invalid lifecycle policy", zap.Error(err))
	}
	lifecycleService, err := services.NewOrderLifecycleService(services.OrderLifecycleServiceDeps{
		Orders:       orderRepo,
		Policy:       policy,
		DefaultActor: cfg.Lifecycle.DefaultActor,
		Events:       events,
		Notifier:     notifier,
		Meter:        meter,
		Logger:       observability.EventLogger(logger, "lifecycle"),
	})
	if err != nil {
		logger.Fatal("failed to initialise lifecycle service", zap.Error(err))
	}

	invoiceService, err := services.NewInvoiceService(services.InvoiceServiceDeps{
		Orders:    orderRepo,
		Coupons:   couponRepo,
		Renderer: render.NewInvoicePDF(render.Options{
			Brand:         cfg.Invoice.Brand,
			CurrencyLabel: cfg.Invoice.CurrencyLabel,
			Locale:        cfg.Invoice.Locale,
		}),
		Artifacts:         artifacts,
		Keys:              keys,
		Links:             links,
		Notifier:          notifier,
		Events:            events,
		WriteBackAttempts: cfg.Invoice.WriteBackAttempts,
		Meter:             meter,
		Logger:            observability.EventLogger(logger, "invoices"),
	})
	if err != nil {
		logger.Fatal("failed to initialise invoice service", zap.Error(err))
	}

	couponService, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: couponRepo,
		Logger:  observability.EventLogger(logger, "coupons"),
	})
	if err != nil {
		logger.Fatal("failed to initialise coupon service", zap.Error(err))
	}

	customerService, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers: customerRepo,
		Logger:    observability.EventLogger(logger, "customers"),
	})
	if err != nil {
		logger.Fatal("failed to initialise customer service", zap.Error(err))
	}

	catalogService, err := services.NewCatalogService(services.CatalogServiceDeps{
		Catalog: catalogRepo,
		Logger:  observability.EventLogger(logger, "catalog"),
	})
	if err != nil {
		logger.Fatal("failed to initialise catalog service", zap.Error(err))
	}

	announcementService, err := services.NewAnnouncementService(services.AnnouncementServiceDeps{
		Announcements: announcementRepo,
		Logger:        observability.EventLogger(logger, "announcements"),
	})
	if err != nil {
		logger.Fatal("failed to initialise announcement service", zap.Error(err))
	}

	exportService, err := services.NewExportService(services.ExportServiceDeps{
		Orders:         orderService,
		Customers:      customerService,
		Sheets:         sheetWriter,
		CustomerSheets: customerWriter,
		Logger:         observability.EventLogger(logger, "exports"),
	})
	if err != nil {
		logger.Fatal("failed to initialise export service", zap.Error(err))
	}

	adminOnly := authenticator.RequireRoles(auth.RoleAdmin)
	orderHandlers := handlers.NewOrderHandlers(handlers.OrderHandlerDeps{
		Orders:          orderService,
		Lifecycle:       lifecycleService,
		Invoices:        invoiceService,
		DefaultActor:    cfg.Lifecycle.DefaultActor,
		AdminMiddleware: adminOnly,
	})
	couponHandlers := handlers.NewCouponHandlers(couponService, adminOnly)
	exportHandlers := handlers.NewExportHandlers(exportService)
	catalogHandlers := handlers.NewCatalogHandlers(catalogService, adminOnly)
	customerHandlers := handlers.NewCustomerHandlers(customerService, adminOnly)
	announcementHandlers := handlers.NewAnnouncementHandlers(announcementService, adminOnly)

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     firstNonEmpty(os.Getenv("ORDERDESK_BUILD_VERSION"), "dev"),
			CommitSHA:   os.Getenv("ORDERDESK_BUILD_COMMIT_SHA"),
			Environment: cfg.Security.Environment,
		}),
		handlers.WithReadinessCheck("firestore", firestoreReadiness(firestoreProvider)),
		handlers.WithReadinessCheck("storage", func(ctx context.Context) error {
			_, err := storageClient.Bucket(cfg.Storage.BillsBucket).Attrs(ctx)
			return err
		}),
	)

	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(),
		observability.RequestLoggerMiddleware(),
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithAPIMiddlewares(authenticator.RequireRoles(cfg.Security.StaffRoles...)),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithCouponRoutes(couponHandlers.Routes),
		handlers.WithExportRoutes(exportHandlers.Routes),
		handlers.WithCatalogRoutes(catalogHandlers.Routes),
		handlers.WithCustomerRoutes(customerHandlers.Routes),
		handlers.WithAnnouncementRoutes(announcementHandlers.Routes),
	)
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
		serverLogger.Info("orderdesk api listening")
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
}

func firestoreReadiness(provider *pfirestore.Provider) handlers.ReadinessCheck {
	return func(ctx context.Context) error {
		client, err := provider.Client(ctx)
		if err != nil {
			return err
		}
		iter := client.Collection("orders").Limit(1).Documents(ctx)
		defer iter.Stop()
		if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
			return err
		}
		return nil
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
