package models

// Notification kinds emitted by the scheduling engine.
const (
	NotifyBookingCreated   = "booking_created"
	NotifyBookingCancelled = "booking_cancelled"
	NotifyBookingCompleted = "booking_completed"
	NotifySessionReminder  = "session_reminder"
)

// NotifyPayload is the payload enqueued for the dispatch worker.
type NotifyPayload struct {
	UserID    string            `json:"userId"`
	Kind      string            `json:"kind"`
	BookingID string            `json:"bookingId,omitempty"`
	Data      map[string]string `json:"data,omitempty"`
}
