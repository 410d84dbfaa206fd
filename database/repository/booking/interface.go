// File: database/repository/booking/interface.go
package bookingRepo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"mentora/database"
	"mentora/models"
)

// BookingRepository owns persistence of booking records. Every state
// transition is conditional on the record still being in the expected
// prior status; the boolean result reports whether the transition applied,
// so concurrent sweeps and cancellations never clobber each other.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)

	// FindActiveByInstructor returns scheduled and in-progress bookings
	// whose [start, end) interval intersects [from, to).
	FindActiveByInstructor(ctx context.Context, instructorID string, from, to time.Time) ([]models.Booking, error)
	FindUpcomingByStudent(ctx context.Context, studentID string, from time.Time) ([]models.Booking, error)
	FindUpcomingByInstructor(ctx context.Context, instructorID string, from time.Time) ([]models.Booking, error)
	CountByStudentBetween(ctx context.Context, studentID string, from, to time.Time) (int64, error)

	// Sweep queries.
	FindScheduledStartingBefore(ctx context.Context, t time.Time) ([]models.Booking, error)
	FindScheduledStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)

	// Conditional transitions. MarkCancelled and MarkCompleted record the
	// refund or payout amount with its applied flag unset; the flag flips
	// through MarkRefundApplied/MarkPayoutApplied once the ledger credit
	// has actually landed.
	MarkCancelled(ctx context.Context, id string, cancellation models.Cancellation, refund models.Refund) (bool, error)
	MarkCompleted(ctx context.Context, id string, payout models.Payout) (bool, error)
	MarkMissed(ctx context.Context, id string) (bool, error)
	MarkInProgress(ctx context.Context, id string) (bool, error)
	UpdateSchedule(ctx context.Context, id string, newStart, newEnd time.Time) (bool, error)
	MarkRefundApplied(ctx context.Context, id string) (bool, error)
	MarkPayoutApplied(ctx context.Context, id string) (bool, error)

	SetAttendance(ctx context.Context, id string, instructor bool, at time.Time) error
	SetRoom(ctx context.Context, id string, room models.RoomURLs) error

	EnsureIndexes() error
}

type mongoBookingRepo struct {
	coll *mongo.Collection
}

// NewMongoBookingRepo constructs a new MongoDB BookingRepository.
func NewMongoBookingRepo() BookingRepository {
	db := database.MongoClient.Database("mentora")
	return &mongoBookingRepo{
		coll: db.Collection("bookings"),
	}
}
