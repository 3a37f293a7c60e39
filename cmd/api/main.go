package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/servicedesk-io/helpdesk-service/internal/api/http"
	"github.com/servicedesk-io/helpdesk-service/internal/api/http/handlers"
	"github.com/servicedesk-io/helpdesk-service/internal/auth"
	"github.com/servicedesk-io/helpdesk-service/internal/config"
	"github.com/servicedesk-io/helpdesk-service/internal/events"
	"github.com/servicedesk-io/helpdesk-service/internal/observability"
	"github.com/servicedesk-io/helpdesk-service/internal/persistence"
	"github.com/servicedesk-io/helpdesk-service/internal/repository"
	"github.com/servicedesk-io/helpdesk-service/internal/service"
	"github.com/servicedesk-io/helpdesk-service/internal/worker"
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
	ticketRepo := repository.NewTicketRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	diagnosisRepo := repository.NewDiagnosisRepository(pool)
	workOrderRepo := repository.NewWorkOrderRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	accountRepo := repository.NewAccountRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	feedbackRepo := repository.NewFeedbackRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, logger)
	bridge := worker.NewEventBridge(cfg.AMQP, dispatcher, logger)
	defer bridge.Close()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	userService := service.NewUserService(userRepo, tokens, cfg.Auth.BcryptCost)
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    ticketRepo,
		TimelineRepo:  timelineRepo,
		DiagnosisRepo: diagnosisRepo,
		WorkOrderRepo: workOrderRepo,
		BookingRepo:   bookingRepo,
		UserRepo:      userRepo,
		FeedbackRepo:  feedbackRepo,
		Dispatcher:    dispatcher,
	})
	diagnosisService := service.NewDiagnosisService(service.DiagnosisDependencies{
		TicketRepo:    ticketRepo,
		DiagnosisRepo: diagnosisRepo,
		Dispatcher:    dispatcher,
	})
	workOrderService := service.NewWorkOrderService(service.WorkOrderDependencies{
		TicketRepo:    ticketRepo,
		DiagnosisRepo: diagnosisRepo,
		WorkOrderRepo: workOrderRepo,
		Dispatcher:    dispatcher,
	})
	bookingService := service.NewBookingService(service.BookingDependencies{
		TicketRepo:  ticketRepo,
		BookingRepo: bookingRepo,
		AccountRepo: accountRepo,
		Cache:       redis.Client,
		Calendar:    cfg.Calendar,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	accountService := service.NewAccountService(accountRepo)
	commentService := service.NewCommentService(ticketRepo, commentRepo, dispatcher)

	authMiddleware := auth.NewAuthMiddleware(tokens, userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(userService),
		Tickets:        handlers.NewTicketsHandler(ticketService, commentService),
		Repair:         handlers.NewRepairHandler(diagnosisService, workOrderService),
		Bookings:       handlers.NewBookingsHandler(bookingService),
		Accounts:       handlers.NewAccountsHandler(accountService),
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
