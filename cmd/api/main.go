package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	httptransport "github.com/helpline-oss/support-desk/internal/api/http"
	"github.com/helpline-oss/support-desk/internal/api/http/handlers"
	"github.com/helpline-oss/support-desk/internal/auth"
	"github.com/helpline-oss/support-desk/internal/bootstrap"
	"github.com/helpline-oss/support-desk/internal/config"
	"github.com/helpline-oss/support-desk/internal/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	flags := pflag.NewFlagSet("support-desk", pflag.ExitOnError)
	overrides := config.BindFlags(flags)
	hashPassword := flags.String("hash-password", "", "print a bcrypt hash for AUTH_STAFF_PASSWORD_HASH and exit")
	_ = flags.Parse(os.Args[1:])

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword, 0)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := overrides.Apply(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	desk, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to start ticket store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer desk.Close()
	desk.Start(ctx)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, metrics, desk.Dependencies...),
		Tickets:   handlers.NewTicketsHandler(desk.Tickets, desk.Source),
		Staff:     handlers.NewStaffHandler(desk.Auth),
		StaffAuth: auth.NewStaffMiddleware(desk.Auth.TokenManager(), cfg.Auth.RequireStaff),
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("backend", cfg.Store.Backend),
			zap.String("subscription", cfg.SubscriptionMode()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := httptransport.Shutdown(app, routes, shutdownTimeout); err != nil {
		logger.Warn("http shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
