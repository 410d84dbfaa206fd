package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"mentora/models"
)

const TypeNotifySend = "notify:send"

// NewNotifyTask wraps a notification payload into an asynq task for the
// dispatch worker.
func NewNotifyTask(payload models.NotifyPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotifySend, b), nil
}
