// Package bootstrap assembles the ticket services for the configured backend.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/helpline-oss/support-desk/internal/api/http/handlers"
	"github.com/helpline-oss/support-desk/internal/autoresponse"
	"github.com/helpline-oss/support-desk/internal/config"
	"github.com/helpline-oss/support-desk/internal/events"
	"github.com/helpline-oss/support-desk/internal/persistence"
	"github.com/helpline-oss/support-desk/internal/repository"
	"github.com/helpline-oss/support-desk/internal/service"
	"github.com/helpline-oss/support-desk/internal/subscription"
	"github.com/helpline-oss/support-desk/internal/worker"
	"github.com/helpline-oss/support-desk/migrations"
)

// App holds the wired services. Start launches background loops; Close
// releases everything New acquired.
type App struct {
	Config        *config.Config
	Tickets       *service.TicketService
	Auth          *service.AuthService
	Notifications *service.NotificationService
	Source        subscription.Source
	Dispatcher    events.Dispatcher
	Dependencies  []handlers.Dependency

	logger  *zap.Logger
	runners []func(ctx context.Context)
	closers []func()
}

// New opens the configured backend and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, logger: logger}

	catalog, err := autoresponse.LoadCatalog(cfg.AutoResponse.CatalogPath)
	if err != nil {
		return nil, err
	}

	repo, err := a.openBackend(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:        repo,
		Responder:         autoresponse.NewResponder(catalog),
		Dispatcher:        a.Dispatcher,
		Logger:            logger,
		AutoResponseDelay: cfg.AutoResponse.Delay,
		StatusPolicy:      autoresponse.StatusPolicy(cfg.AutoResponse.StatusPolicy),
	})
	a.Auth = service.NewAuthService(cfg.Auth, logger)
	a.Notifications = service.NewNotificationService(a.Dispatcher, logger, cfg.Notification)

	notifier := worker.NewNotificationWorker(a.Notifications, logger, worker.DefaultQueueSize)
	notifier.Attach(a.Dispatcher)
	a.runners = append(a.runners, notifier.Run)

	switch cfg.SubscriptionMode() {
	case config.SubscriptionPush:
		a.Source = subscription.NewHub(a.Tickets, a.Dispatcher, logger)
	default:
		a.Source = subscription.NewPoller(a.Tickets, cfg.Subscription.PollInterval, logger)
	}
	return a, nil
}

func (a *App) openBackend(ctx context.Context) (repository.TicketRepository, error) {
	cfg := a.Config
	switch cfg.Store.Backend {
	case config.BackendLocal:
		db, err := persistence.OpenSQLite(cfg.Store.LocalPath, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { persistence.CloseSQLite(db) })
		a.Dependencies = append(a.Dependencies, handlers.Dependency{
			Name: "sqlite",
			Ping: func(ctx context.Context) error { return persistence.PingSQLite(ctx, db) },
		})
		a.Dispatcher = events.NewInMemoryDispatcher(a.logger)
		return repository.NewLocalTicketRepository(db), nil

	case config.BackendRemote:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, a.logger); err != nil {
				return nil, err
			}
		}

		redis := persistence.NewRedis(ctx, cfg.Redis, a.logger)
		a.closers = append(a.closers, redis.Close)
		dispatcher := events.NewRedisDispatcher(redis.Client, cfg.Redis.Channel, a.logger)
		a.runners = append(a.runners, func(ctx context.Context) {
			if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("ticket event feed stopped", zap.Error(err))
			}
		})
		a.Dispatcher = dispatcher
		a.Dependencies = append(a.Dependencies,
			handlers.Dependency{Name: "postgres", Ping: pg.Ping},
			handlers.Dependency{Name: "redis", Ping: redis.Ping},
		)
		return repository.NewDocumentTicketRepository(pg.PoolHandle()), nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Store.Backend)
}

// Start runs the background loops until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	for _, run := range a.runners {
		go run(ctx)
	}
}

// Close cancels pending automatic responses and releases the backend.
func (a *App) Close() {
	if a.Tickets != nil {
		a.Tickets.Shutdown()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
