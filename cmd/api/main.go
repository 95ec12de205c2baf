package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/erixcast/support-service/internal/api/http"
	"github.com/erixcast/support-service/internal/api/http/handlers"
	"github.com/erixcast/support-service/internal/assistant"
	"github.com/erixcast/support-service/internal/auth"
	"github.com/erixcast/support-service/internal/config"
	"github.com/erixcast/support-service/internal/events"
	"github.com/erixcast/support-service/internal/liveness"
	"github.com/erixcast/support-service/internal/notify"
	"github.com/erixcast/support-service/internal/observability"
	"github.com/erixcast/support-service/internal/persistence"
	"github.com/erixcast/support-service/internal/repository"
	"github.com/erixcast/support-service/internal/service"
	"github.com/erixcast/support-service/internal/transport"
	"github.com/erixcast/support-service/internal/worker"
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
	userRepo := repository.NewUserRepository(pool)
	operatorRepo := repository.NewOperatorRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	auditRepo := repository.NewTicketAuditRepository(pool)
	approvalRepo := repository.NewApprovalRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	deliveryRepo := repository.NewDeliveryLogRepository(pool)
	pingRepo := repository.NewPingRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var chatClient transport.Client
	if cfg.Telegram.BotToken != "" {
		chatClient = transport.NewTelegramClient(cfg.Telegram, logger)
	} else {
		logger.Warn("no bot token configured, using log-only transport")
		chatClient = transport.NewLogClient(logger)
	}

	var replyAssistant assistant.Assistant
	if cfg.Assistant.URL != "" {
		replyAssistant = assistant.NewHTTPAssistant(cfg.Assistant.URL)
	} else {
		logger.Warn("no assistant URL configured, attempts will fail toward escalation")
	}
	tracker := assistant.NewTracker(replyAssistant, cfg.Assistant.Timeout(), cfg.Assistant.MinConfidence, logger)

	renderer, err := notify.NewTemplateTable(cfg.Notify.DefaultLocale)
	if err != nil {
		logger.Fatal("failed to build notification templates", zap.Error(err))
	}
	directory := notify.NewDirectory(userRepo, operatorRepo, redis.Client, cfg.Notify.OperatorCacheTTL(), logger)
	sender := notify.NewDispatcher(directory, renderer, chatClient, deliveryRepo, metrics, logger,
		cfg.Notify.SendTimeout(), cfg.Notify.DefaultLocale)

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		AuditRepo:   auditRepo,
		Tracker:     tracker,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	approvalService := service.NewApprovalService(approvalRepo, subscriptionRepo, dispatcher, logger)
	authService := service.NewAuthService(cfg.Auth, userRepo, operatorRepo)
	notificationService := service.NewNotificationService(dispatcher, sender, logger)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, operatorRepo)

	var coordinator *liveness.Coordinator
	if cfg.Liveness.Enabled {
		targetURL := cfg.Liveness.TargetURL
		if targetURL == "" {
			targetURL = fmt.Sprintf("http://127.0.0.1:%s/health/live", cfg.App.Port)
		}
		coordinator = liveness.NewCoordinator(liveness.Options{
			TargetURL:  targetURL,
			Intervals:  cfg.Liveness.Intervals(),
			Timeout:    cfg.Liveness.ProbeTimeout(),
			Threshold:  cfg.Liveness.FailureThreshold,
			Transport:  chatClient,
			Pings:      pingRepo,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		})
		coordinator.Start(ctx)
		defer coordinator.Stop()
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:          handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, coordinator),
		Users:           handlers.NewUsersHandler(authService),
		Tickets:         handlers.NewTicketsHandler(ticketService),
		OperatorTickets: handlers.NewOperatorTicketsHandler(ticketService),
		Approvals:       handlers.NewApprovalsHandler(approvalService),
		Subscriptions:   handlers.NewSubscriptionsHandler(subscriptionRepo),
		AuthMiddleware:  authMiddleware,
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
