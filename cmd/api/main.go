package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Thykp/SPM-Team2-sub002/internal/config"
	"github.com/Thykp/SPM-Team2-sub002/internal/email"
	"github.com/Thykp/SPM-Team2-sub002/internal/handler"
	notificationHandler "github.com/Thykp/SPM-Team2-sub002/internal/handler/notification"
	"github.com/Thykp/SPM-Team2-sub002/internal/repository/postgres"
	redisrepo "github.com/Thykp/SPM-Team2-sub002/internal/repository/redis"
	"github.com/Thykp/SPM-Team2-sub002/internal/router"
	"github.com/Thykp/SPM-Team2-sub002/internal/service/delivery"
	notificationService "github.com/Thykp/SPM-Team2-sub002/internal/service/notification"
	"github.com/Thykp/SPM-Team2-sub002/internal/service/scheduler"
	"github.com/Thykp/SPM-Team2-sub002/internal/ws"
	"github.com/Thykp/SPM-Team2-sub002/pkg/logger"
	"github.com/Thykp/SPM-Team2-sub002/pkg/messaging/redis"
	"github.com/Thykp/SPM-Team2-sub002/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	appMetrics := metrics.NewMetrics("spm", "notifications")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	notificationRepo := postgres.NewNotificationRepository(db)
	userRepo := postgres.NewUserRepository(db)
	preferencesRepo := postgres.NewPreferencesRepository(db)

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	scheduleRepo, err := redisrepo.NewScheduleRepository(cfg.Redis.URL, cfg.Redis.ScheduleKey, appMetrics)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis for scheduling")
	}

	emailSvc := email.NewService(cfg.Email)

	registry := ws.NewRegistry()
	gateway := ws.NewGateway(registry, cfg.Websocket.HeartbeatInterval, appLogger, appMetrics)

	deliverySvc := delivery.NewService(
		notificationRepo,
		userRepo,
		preferencesRepo,
		registry,
		emailSvc,
		broker,
		cfg.Redis.Channel,
		appLogger,
		appMetrics,
	)

	poller := scheduler.NewPoller(scheduleRepo, deliverySvc, cfg.Scheduler.PollInterval, appLogger, appMetrics)

	notificationSvc := notificationService.NewService(
		notificationRepo,
		preferencesRepo,
		scheduleRepo,
		broker,
		cfg.Redis.Channel,
	)

	h := handler.NewHandler()
	notificationH := notificationHandler.NewHandler(notificationSvc)

	r := router.NewRouter(notificationH, h, router.DefaultConfig())
	r.Setup()
	gateway.RegisterRoutes(r.Engine())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The subscription is the service's input feed; failing to establish it
	// aborts startup.
	deliveryErr := make(chan error, 1)
	go func() {
		deliveryErr <- deliverySvc.Run(ctx)
	}()

	go poller.Run(ctx)
	go gateway.Run(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("notification service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-deliveryErr:
		if err != nil {
			log.Fatal().Err(err).Msg("delivery worker failed")
		}
	case <-quit:
	}

	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
