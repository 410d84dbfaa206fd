package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mentora/models"
)

// RoomProvisioner creates the session room for a confirmed booking. It is
// invoked once at creation; failure is logged and never aborts the booking.
type RoomProvisioner interface {
	CreateRoom(ctx context.Context, booking *models.Booking) (models.RoomURLs, error)
}

// StaticRoomProvisioner mints deterministic join URLs under a base URL.
// Production deployments substitute a provisioner backed by their video
// backend; the contract stops at the URL pair.
type StaticRoomProvisioner struct {
	BaseURL string
}

func (p *StaticRoomProvisioner) CreateRoom(_ context.Context, booking *models.Booking) (models.RoomURLs, error) {
	room := uuid.New().String()
	return models.RoomURLs{
		Instructor: fmt.Sprintf("%s/rooms/%s?role=instructor&booking=%s", p.BaseURL, room, booking.ID),
		Student:    fmt.Sprintf("%s/rooms/%s?role=student&booking=%s", p.BaseURL, room, booking.ID),
	}, nil
}
