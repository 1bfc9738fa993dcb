package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/orderme/internal/api/http"
	"github.com/spec-kit/orderme/internal/api/http/handlers"
	"github.com/spec-kit/orderme/internal/auth"
	"github.com/spec-kit/orderme/internal/config"
	"github.com/spec-kit/orderme/internal/events"
	"github.com/spec-kit/orderme/internal/observability"
	"github.com/spec-kit/orderme/internal/persistence"
	"github.com/spec-kit/orderme/internal/repository"
	"github.com/spec-kit/orderme/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	verificationRepo := repository.NewVerificationRepository(redis.Client)
	tokenRepo := repository.NewTokenRepository(redis.Client, cfg.Redis.OpTimeout())

	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, nil)
	if err != nil {
		logger.Fatal("failed to init signer", zap.Error(err))
	}
	authority := auth.NewAuthority(auth.AuthorityDependencies{
		Signer:    signer,
		Store:     tokenRepo,
		Lifetimes: auth.LifetimesFromConfig(cfg.Auth),
		Logger:    logger.Named("token_authority"),
		Metrics:   metrics,
	})

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(dispatcher, logger.Named("notifications"), cfg.Verification, nil)
	notifications.RegisterHandlers()

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:         userRepo,
		AdminRepo:        adminRepo,
		VerificationRepo: verificationRepo,
		Authority:        authority,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: cfg.App.Env == "production",
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:               handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:                handlers.NewUsersHandler(authService),
		Kiosk:                handlers.NewKioskHandler(authService),
		Admin:                handlers.NewAdminHandler(authService),
		Gate:                 auth.NewAuthMiddleware(authority, cfg.Auth.PublicPaths),
		Metrics:              metrics,
		LogoutRatePerMinute:  cfg.Auth.LogoutRatePerMinute,
		ConfirmRatePerMinute: cfg.Auth.ConfirmRatePerMinute,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
