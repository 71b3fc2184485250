package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/caja-api/internal/application/service"
	"github.com/sangkips/caja-api/internal/config"
	"github.com/sangkips/caja-api/internal/domain/enum"
	"github.com/sangkips/caja-api/internal/infrastructure/broker"
	"github.com/sangkips/caja-api/internal/infrastructure/database"
	"github.com/sangkips/caja-api/internal/infrastructure/repository"
	"github.com/sangkips/caja-api/internal/presentation/http/handler"
	"github.com/sangkips/caja-api/internal/presentation/http/middleware"
	"github.com/sangkips/caja-api/internal/presentation/http/routes"
	"github.com/sangkips/caja-api/pkg/logger"
	"github.com/sangkips/caja-api/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "caja-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Development: !cfg.App.IsProduction(),
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
	})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgresDB(&cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	if err := database.AutoMigrate(db, log); err != nil {
		return err
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)
	transactor := repository.NewTransactor(db)

	if err := database.SeedAdmin(ctx, userRepo, &cfg.Admin, log); err != nil {
		log.Warn("failed to seed admin user", zap.Error(err))
	}

	publisher := broker.NewSalePublisher(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.SalesTopic,
	}, log)
	defer func() { _ = publisher.Close() }()

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Initialize services
	ledger := service.NewInventoryLedger(productRepo, transactor, log.Named("ledger"))
	carts := service.NewCartStore(productRepo, ledger, service.CartStoreConfig{
		IdleTTL:       cfg.Cart.IdleTTL,
		SweepInterval: cfg.Cart.SweepInterval,
	}, log.Named("carts"))
	carts.StartJanitor(ctx)

	paymentMethods := make([]enum.PaymentMethod, 0, len(cfg.Checkout.PaymentMethods))
	for _, m := range cfg.Checkout.PaymentMethods {
		paymentMethods = append(paymentMethods, enum.NormalizePaymentMethod(m))
	}
	checkoutService := service.NewCheckoutService(carts, ledger, saleRepo, publisher, service.CheckoutConfig{
		PaymentMethods: paymentMethods,
		StorageTimeout: cfg.Checkout.StorageTimeout,
	}, log.Named("checkout"))
	catalogService := service.NewCatalogService(productRepo, ledger)
	saleService := service.NewSaleService(saleRepo)
	authService := service.NewAuthService(userRepo, jwtManager, carts, log.Named("auth"))

	middleware.StartIdempotencySweeper(ctx, idempotencyRepo, time.Hour, log)

	handlers := &routes.Handlers{
		Auth:    handler.NewAuthHandler(authService, cfg.JWT),
		Catalog: handler.NewCatalogHandler(catalogService),
		Cart:    handler.NewCartHandler(carts),
		Sale:    handler.NewSaleHandler(checkoutService, saleService),
	}

	router := routes.Setup(ctx, handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: idempotencyRepo,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server",
			zap.String("service", cfg.App.Name),
			zap.String("port", cfg.App.Port),
			zap.String("env", cfg.App.Env),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Int("open_carts", carts.Len()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
