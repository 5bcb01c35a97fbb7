package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/jtec/maintenance-service/internal/api/http"
	"github.com/jtec/maintenance-service/internal/api/http/handlers"
	"github.com/jtec/maintenance-service/internal/auth"
	"github.com/jtec/maintenance-service/internal/config"
	"github.com/jtec/maintenance-service/internal/events"
	"github.com/jtec/maintenance-service/internal/observability"
	"github.com/jtec/maintenance-service/internal/persistence"
	"github.com/jtec/maintenance-service/internal/repository"
	"github.com/jtec/maintenance-service/internal/service"
	"github.com/jtec/maintenance-service/internal/storage"
	"github.com/jtec/maintenance-service/internal/worker"
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
	profileRepo := repository.NewProfileRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	missionRepo := repository.NewMissionRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	signer := storage.NewSigner(cfg.Storage.SigningSecret, cfg.Storage.BaseURL, cfg.Storage.URLTTL())
	slots := storage.NewSlotStore(redis.Client, cfg.Storage.URLTTL())

	authService := service.NewAuthService(*cfg, profileRepo)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MissionRepo: missionRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	missionService := service.NewMissionService(service.MissionDependencies{
		MissionRepo: missionRepo,
		TicketRepo:  ticketRepo,
		ProfileRepo: profileRepo,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	interventionService := service.NewInterventionService(service.InterventionDependencies{
		MissionRepo: missionRepo,
		TicketRepo:  ticketRepo,
		Signer:      signer,
		Slots:       slots,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), profileRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, missionService),
		Missions:       handlers.NewMissionsHandler(missionService),
		Interventions:  handlers.NewInterventionsHandler(interventionService),
		AuthMiddleware: authMiddleware,
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
