package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	bookingRepo "mentora/database/repository/booking"
	catalogRepo "mentora/database/repository/catalog"
	creditRepo "mentora/database/repository/credit"
	"mentora/models"
	"mentora/services/availability"
	"mentora/services/notification"
)

// CreateBookingRequest carries the inputs of the creation contract.
type CreateBookingRequest struct {
	CourseID      string
	StudentID     string
	Start         time.Time
	DurationHours float64
	Kind          string // full_course or single_session
	FixedPrice    int    // required for single_session, ignored otherwise
}

// BookingService is the booking lifecycle: creation with an atomic credit
// debit, cancellation with the refund policy, completion, attendance, and
// rescheduling.
type BookingService interface {
	Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, requesterID, reason string) (*models.Booking, error)
	Complete(ctx context.Context, bookingID, instructorID string) (*models.Booking, error)
	MarkJoined(ctx context.Context, bookingID, userID string) (*models.Booking, error)
	Reschedule(ctx context.Context, bookingID, requesterID string, newStart time.Time) (*models.Booking, error)
	ListUpcoming(ctx context.Context, userID string, asInstructor bool) ([]models.Booking, error)
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Repo         bookingRepo.BookingRepository
	Catalog      catalogRepo.CourseRepository
	Credits      creditRepo.CreditRepository
	Availability availability.AvailabilityService
	Rooms        RoomProvisioner
	Notifier     notification.Notifier
	Logger       *zap.Logger

	DailyLimit      int
	ExternalTimeout time.Duration

	locks *keyedMutex
	now   func() time.Time
}

// NewDefaultBookingService wires the lifecycle with its collaborators.
func NewDefaultBookingService(
	repo bookingRepo.BookingRepository,
	catalog catalogRepo.CourseRepository,
	credits creditRepo.CreditRepository,
	availabilitySvc availability.AvailabilityService,
	rooms RoomProvisioner,
	notifier notification.Notifier,
	dailyLimit int,
	externalTimeout time.Duration,
	logger *zap.Logger,
) *DefaultBookingService {
	return &DefaultBookingService{
		Repo:            repo,
		Catalog:         catalog,
		Credits:         credits,
		Availability:    availabilitySvc,
		Rooms:           rooms,
		Notifier:        notifier,
		Logger:          logger,
		DailyLimit:      dailyLimit,
		ExternalTimeout: externalTimeout,
		locks:           newKeyedMutex(),
		now:             time.Now,
	}
}
