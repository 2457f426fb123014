package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskmarket/api/handler"
	"github.com/fastygo/taskmarket/internal/config"
	kafkaInfra "github.com/fastygo/taskmarket/internal/infrastructure/kafka"
	"github.com/fastygo/taskmarket/internal/infrastructure/monitor"
	"github.com/fastygo/taskmarket/internal/infrastructure/outbox"
	redisInfra "github.com/fastygo/taskmarket/internal/infrastructure/redis"
	storeInfra "github.com/fastygo/taskmarket/internal/infrastructure/store"
	"github.com/fastygo/taskmarket/internal/middleware"
	"github.com/fastygo/taskmarket/internal/router"
	"github.com/fastygo/taskmarket/internal/services"
	"github.com/fastygo/taskmarket/internal/services/lifecycle"
	"github.com/fastygo/taskmarket/pkg/httpcontext"
	"github.com/fastygo/taskmarket/pkg/logger"
	"github.com/fastygo/taskmarket/pkg/token"
	redisRepo "github.com/fastygo/taskmarket/repository/redis"
	"github.com/fastygo/taskmarket/usecase"
	authUC "github.com/fastygo/taskmarket/usecase/auth"
	friendUC "github.com/fastygo/taskmarket/usecase/friend"
	ledgerUC "github.com/fastygo/taskmarket/usecase/ledger"
	profileUC "github.com/fastygo/taskmarket/usecase/profile"
	taskUC "github.com/fastygo/taskmarket/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.JWT.Secret == "" {
		zapLogger.Fatal("JWT_SECRET is required")
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	store, err := storeInfra.Open(appCtx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("store unavailable", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	manager.RegisterCloser("store", store)

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, cfg.AppName, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.RegisterCloser("redis", redisClient)

	outboxStore, err := outbox.Open(cfg.Outbox.Path, "outbox")
	if err != nil {
		zapLogger.Fatal("failed to open outbox", zap.Error(err))
	}
	manager.RegisterCloser("outbox", outboxStore)

	mon := monitor.New(store, redisClient, outboxStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.RegisterStop("monitor", mon.Stop)

	notifications := redisRepo.NewNotificationSink(redisClient, 100)
	targets := services.Targets{Notifier: notifications}
	if cfg.Mirror.Enabled {
		targets.Mirror = redisRepo.NewMirror(redisClient)
	}
	if cfg.Kafka.Enabled() {
		publisher, err := kafkaInfra.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			zapLogger.Fatal("kafka publisher", zap.Error(err))
		}
		targets.Publisher = publisher
		manager.RegisterCloser("kafka", publisher)
	}

	relay := services.NewRelay(outboxStore, mon, targets, zapLogger, services.RelayConfig{
		Interval:    cfg.Outbox.SyncInterval,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxRetry,
		Retention:   time.Duration(cfg.Outbox.RetentionHours) * time.Hour,
	})
	relay.Start()
	manager.Register("outbox_relay", func(ctx context.Context) error {
		relay.Stop(ctx)
		return nil
	})

	events := usecase.NewEventDispatcher(zapLogger)
	services.RegisterSideEffects(events, relay)

	sessionRepo := redisRepo.NewSessionRepository(redisClient, 24*time.Hour)

	authUseCase := authUC.New(store, sessionRepo, zapLogger)
	ledgerUseCase := ledgerUC.New(store, events, cfg.Policy.InitialBalance, zapLogger)
	profileUseCase := profileUC.New(store, zapLogger)
	taskUseCase := taskUC.New(store, events, zapLogger)
	friendPolicy := friendUC.DefaultPolicy()
	friendPolicy.DefaultCloseness = cfg.Policy.DefaultCloseness
	friendPolicy.MaxCloseness = cfg.Policy.MaxCloseness
	friendUseCase := friendUC.New(store, events, friendPolicy, zapLogger)

	sweeper := services.NewSweeper(taskUseCase, cfg.Policy.SweepInterval, zapLogger)
	sweeper.Start()
	manager.Register("sweeper", func(ctx context.Context) error {
		sweeper.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	signer := token.NewSigner(cfg.JWT.Secret, cfg.JWT.Issuer)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, ledgerUseCase, signer, ctxAdapter, zapLogger, time.Hour),
		Profile: apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, zapLogger),
		Task:    apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Dispute: apiHandler.NewDisputeHandler(taskUseCase, ctxAdapter, zapLogger),
		Friend:  apiHandler.NewFriendHandler(friendUseCase, ctxAdapter, zapLogger),
		Reward:  apiHandler.NewRewardHandler(ledgerUseCase, ctxAdapter, zapLogger),
		Inbox:   apiHandler.NewNotificationHandler(notifications, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(signer, authUseCase, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("kafka", cfg.Kafka.Enabled()),
			zap.Bool("mirror", cfg.Mirror.Enabled))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
