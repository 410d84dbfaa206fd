// File: mentora/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"mentora/config"
	"mentora/cron"
	"mentora/database"
	availabilityRepo "mentora/database/repository/availability"
	bookingRepo "mentora/database/repository/booking"
	catalogRepo "mentora/database/repository/catalog"
	creditRepo "mentora/database/repository/credit"
	"mentora/services/availability"
	"mentora/services/booking"
	"mentora/services/notification"
	"mentora/utils"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// repositories.
	availRepo := availabilityRepo.NewMongoAvailabilityRepo()
	bookRepo := bookingRepo.NewMongoBookingRepo()
	courseRepo := catalogRepo.NewMongoCatalogRepo()
	ledger := creditRepo.NewMongoCreditRepo()

	if err := availRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure availability indexes: %v", err)
	}
	if err := bookRepo.EnsureIndexes(); err != nil {
		logger.Sugar().Fatalf("main: failed to ensure booking indexes: %v", err)
	}

	// notification queue.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyQueueDB,
	})
	defer asynqClient.Close()
	notifier := notification.NewAsynqNotifier(asynqClient, logger)

	// services.
	availabilityService := availability.NewDefaultAvailabilityService(
		availRepo,
		bookRepo,
		availability.PolicyDefaults{
			MinAdvanceBookingHours: config.AppConfig.DefaultMinAdvanceHours,
			MaxAdvanceBookingDays:  config.AppConfig.DefaultMaxAdvanceDays,
			SlotDurationHours:      config.AppConfig.DefaultSlotDurationHours,
			BufferMinutes:          config.AppConfig.DefaultBufferMinutes,
		},
		logger,
	)

	bookingService := booking.NewDefaultBookingService(
		bookRepo,
		courseRepo,
		ledger,
		availabilityService,
		&booking.StaticRoomProvisioner{BaseURL: "https://rooms.mentora.app"},
		notifier,
		config.AppConfig.DailyBookingLimit,
		time.Duration(config.AppConfig.ExternalTimeoutSec)*time.Second,
		logger,
	)
	_ = bookingService // exposed to the surrounding application layer

	// reconciliation sweeps.
	tracker := &cron.RedisReminderTracker{
		Client: utils.GetCacheClient(),
		TTL:    24 * time.Hour,
	}
	sweeper := cron.NewSweeper(
		bookRepo,
		notifier,
		tracker,
		time.Duration(config.AppConfig.MissedSweepIntervalMin)*time.Minute,
		time.Duration(config.AppConfig.ReminderSweepIntervalMin)*time.Minute,
		time.Duration(config.AppConfig.ReminderLookaheadMin)*time.Minute,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper.Start(ctx)
	cron.InitNotifyWorker(&cron.LogDispatcher{Logger: logger}, logger)

	// Wait for a termination signal, then stop the sweeps cleanly.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	sweeper.Stop()
	cancel()
}
