package main

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	api "fibrodiario-backend/cmd/api"
	accountdelivery "fibrodiario-backend/internal/account/delivery"
	accountdomain "fibrodiario-backend/internal/account/domain"
	accountrepo "fibrodiario-backend/internal/account/repository"
	devicedelivery "fibrodiario-backend/internal/device/delivery"
	devicedomain "fibrodiario-backend/internal/device/domain"
	devicerepo "fibrodiario-backend/internal/device/repository"
	deviceusecase "fibrodiario-backend/internal/device/usecase"
	"fibrodiario-backend/internal/dispatch"
	dispatchdelivery "fibrodiario-backend/internal/dispatch/delivery"
	"fibrodiario-backend/internal/dispatch/trigger"
	"fibrodiario-backend/internal/scheduler"
	"fibrodiario-backend/pkg/config"
	"fibrodiario-backend/pkg/database"
	"fibrodiario-backend/pkg/fcm"
	"fibrodiario-backend/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.AutoMigrate(&accountdomain.Account{}, &devicedomain.DeviceToken{}); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	accountRepository := accountrepo.NewAccountRepository(db)
	tokenRepository := devicerepo.NewTokenRepository(db)

	// Missing provider credentials are fatal at startup, not retried.
	fcmClient, err := fcm.NewClient(context.Background(), fcm.Config{
		ProjectID:       cfg.FirebaseProjectID,
		CredentialsPath: cfg.FirebaseCredentials,
		CredentialsJSON: cfg.FirebaseCredentialsJSON,
	}, log)
	if err != nil {
		log.Fatal("failed to initialize FCM client", zap.Error(err))
	}

	window, err := dispatch.NewWindowResolver(cfg.ZoneCatalog, log)
	if err != nil {
		log.Fatal("invalid zone catalog", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	} else {
		log.Warn("no redis configured, dispatch window dedup disabled")
	}

	dispatcher := dispatch.NewDispatcher(fcmClient, cfg.ThrottleBackoff, log)
	guard := dispatch.NewWindowGuard(redisClient, log)
	dispatchService := dispatch.NewService(window, accountRepository, dispatcher, guard, tokenRepository, log)

	lifecycle := deviceusecase.NewLifecycleManager(accountRepository, tokenRepository, log)

	if cfg.SchedulerEnabled {
		sched := scheduler.New(dispatchService, lifecycle, []scheduler.Entry{
			{Category: dispatch.CategoryMorningCheckIn, Hour: cfg.MorningHour},
			{Category: dispatch.CategoryEveningCheckIn, Hour: cfg.EveningHour},
			{Category: dispatch.CategoryMedicationReminder, Hour: cfg.MedicationHour},
		}, log)
		if err := sched.Start(); err != nil {
			log.Fatal("failed to start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	if cfg.GoogleProjectID != "" {
		listener, err := trigger.NewPubSubListener(context.Background(), cfg.GoogleProjectID, cfg.PubSubTopic, cfg.FirebaseCredentials, dispatchService, log)
		if err != nil {
			log.Error("failed to initialize pubsub trigger listener", zap.Error(err))
		} else {
			go listener.Start(context.Background())
		}
	}

	deviceHandler := devicedelivery.NewDeviceHandler(lifecycle, log)
	accountHandler := accountdelivery.NewAccountHandler(accountRepository, log)
	triggerHandler := dispatchdelivery.NewTriggerHandler(dispatchService, log)

	handler := api.NewHandler(cfg, deviceHandler, accountHandler, triggerHandler, log)
	log.Info("server starting", zap.String("port", cfg.Port))
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
