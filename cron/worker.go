package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"mentora/config"
	"mentora/models"
	"mentora/services/tasks"
)

// Dispatcher is the delivery side of the notification queue. The engine
// never speaks to a delivery channel directly; deployments plug in their
// own dispatcher behind this interface.
type Dispatcher interface {
	Dispatch(ctx context.Context, payload models.NotifyPayload) error
}

// LogDispatcher records dispatches in the log. It is the default when no
// delivery channel is configured.
type LogDispatcher struct {
	Logger *zap.Logger
}

func (d *LogDispatcher) Dispatch(_ context.Context, payload models.NotifyPayload) error {
	d.Logger.Info("Notification dispatched",
		zap.String("user_id", payload.UserID),
		zap.String("kind", payload.Kind),
		zap.String("booking_id", payload.BookingID),
	)
	return nil
}

// InitNotifyWorker runs the async dispatch worker in background.
func InitNotifyWorker(dispatcher Dispatcher, logger *zap.Logger) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisNotifyQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	limiter := rate.NewLimiter(rate.Limit(config.AppConfig.NotifyRatePerSec), config.AppConfig.NotifyRatePerSec)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotifySend, handleNotifyTask(dispatcher, limiter, logger))

	// Start async worker with retry logic.
	go func() {
		log.Println("[NotifyWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[NotifyWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[NotifyWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleNotifyTask(dispatcher Dispatcher, limiter *rate.Limiter, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.NotifyPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid notify payload", zap.Error(err))
			return err
		}

		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		if err := dispatcher.Dispatch(ctx, p); err != nil {
			logger.Warn("Dispatch failed, task will be retried",
				zap.String("user_id", p.UserID),
				zap.String("kind", p.Kind),
				zap.Error(err),
			)
			return err
		}
		return nil
	}
}
