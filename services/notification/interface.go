package notification

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"mentora/models"
	"mentora/services/tasks"
)

// Notifier hands notification payloads to the surrounding application.
// Callers treat it as fire-and-forget: a failed Notify is logged, never
// rolled back against.
type Notifier interface {
	Notify(ctx context.Context, payload models.NotifyPayload) error
}

// AsynqNotifier enqueues payloads onto the dispatch queue consumed by the
// cron worker. Delivery channels live on the other side of the queue.
type AsynqNotifier struct {
	Client *asynq.Client
	Logger *zap.Logger
}

func NewAsynqNotifier(client *asynq.Client, logger *zap.Logger) *AsynqNotifier {
	return &AsynqNotifier{Client: client, Logger: logger}
}

func (n *AsynqNotifier) Notify(ctx context.Context, payload models.NotifyPayload) error {
	task, err := tasks.NewNotifyTask(payload)
	if err != nil {
		return fmt.Errorf("error building notify task: %w", err)
	}
	info, err := n.Client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("error enqueueing notification for %s: %w", payload.UserID, err)
	}
	n.Logger.Debug("Notification enqueued",
		zap.String("task_id", info.ID),
		zap.String("user_id", payload.UserID),
		zap.String("kind", payload.Kind),
	)
	return nil
}
