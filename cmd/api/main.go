package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/storelinehq/storeline-backend/api/routes"
	"github.com/storelinehq/storeline-backend/internal/cart"
	"github.com/storelinehq/storeline-backend/internal/coupons"
	"github.com/storelinehq/storeline-backend/internal/delivery"
	"github.com/storelinehq/storeline-backend/internal/inventory"
	"github.com/storelinehq/storeline-backend/internal/invoices"
	"github.com/storelinehq/storeline-backend/internal/notifications"
	"github.com/storelinehq/storeline-backend/internal/orders"
	"github.com/storelinehq/storeline-backend/internal/payments"
	"github.com/storelinehq/storeline-backend/internal/shipping"
	"github.com/storelinehq/storeline-backend/internal/webhooks"
	"github.com/storelinehq/storeline-backend/pkg/config"
	"github.com/storelinehq/storeline-backend/pkg/courier"
	"github.com/storelinehq/storeline-backend/pkg/db"
	"github.com/storelinehq/storeline-backend/pkg/gateway"
	"github.com/storelinehq/storeline-backend/pkg/logger"
	"github.com/storelinehq/storeline-backend/pkg/metrics"
	"github.com/storelinehq/storeline-backend/pkg/migrate"
	"github.com/storelinehq/storeline-backend/pkg/outbox"
	"github.com/storelinehq/storeline-backend/pkg/redis"
	"github.com/storelinehq/storeline-backend/pkg/storage"
	"github.com/storelinehq/storeline-backend/pkg/tenant"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.App.ServiceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.WarnStack,
	})

	registry, err := tenant.NewRegistry(cfg.Tenants.SpecJSON, db.PoolOptions{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build tenant registry", err)
		os.Exit(1)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logg.Error(context.Background(), "error closing tenant databases", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, registry); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(promRegistry)

	gatewayClient := gateway.NewClient(
		gateway.WithBaseURL(cfg.Gateway.BaseURL),
		gateway.WithTimeout(cfg.Gateway.Timeout),
	)
	courierClient := courier.NewClient(cfg.Courier.BaseURL,
		courier.WithHTTPClient(&http.Client{Timeout: cfg.Courier.Timeout}),
	)
	storageClient := storage.NewClient(cfg.Storage.BaseURL, cfg.Storage.Bucket,
		storage.WithTimeout(cfg.Storage.Timeout),
	)

	invoiceSvc, err := invoices.NewService(storageClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	couponResolver, err := coupons.NewStaticResolver(cfg.Coupons.RosterJSON)
	if err != nil {
		logg.Error(context.Background(), "failed to parse coupon roster", err)
		os.Exit(1)
	}

	shipmentBooker, err := shipping.NewCourierBooker(courierClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create shipment booker", err)
		os.Exit(1)
	}

	// Repositories bind to each tenant's database per call, so the
	// handles they are constructed with are never used directly.
	outboxSvc := outbox.NewService(outbox.NewRepository(nil), logg)

	notificationSvc, err := notifications.NewService(notifications.NewRepository(nil))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	cartSvc, err := cart.NewService(cart.NewRepository(nil), inventory.NewRepository(nil))
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderSvc, err := orders.NewService(
		orders.NewRepository(nil),
		cart.NewRepository(nil),
		inventory.NewRepository(nil),
		outboxSvc,
		orders.Options{
			Notifier:  notificationSvc,
			Coupons:   couponResolver,
			Shipments: shipmentBooker,
			Invoices:  invoiceSvc,
			Metrics:   orderMetrics,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	deliverySvc, err := delivery.NewService(
		delivery.NewRepository(nil),
		orders.NewRepository(nil),
		orderSvc,
		outboxSvc,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	paymentSvc, err := payments.NewService(
		payments.NewRepository(nil),
		orders.NewRepository(nil),
		gatewayClient,
		outboxSvc,
		notificationSvc,
		orderMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	courierWebhooks, err := webhooks.NewCourierService(
		orders.NewRepository(nil),
		orderSvc,
		redisClient,
		orderMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create courier webhook service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		Registry:      registry,
		Redis:         redisClient,
		Metrics:       promRegistry,
		Cart:          cartSvc,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Delivery:      deliverySvc,
		Notifications: notificationSvc,
		Courier:       courierWebhooks,
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"tenants": len(registry.IDs()),
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
