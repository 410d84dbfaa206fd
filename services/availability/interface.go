// File: services/availability/interface.go
package availability

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	availabilityRepo "mentora/database/repository/availability"
	bookingRepo "mentora/database/repository/booking"
	"mentora/models"
	"mentora/services/scheduling"
)

// Validation errors surfaced to callers. Never retried automatically.
var (
	ErrInvalidWindow  = errors.New("window start time must be before end time")
	ErrInvalidWeekday = errors.New("weekday must be between 0 and 6")
	ErrPastDate       = errors.New("override date must not be in the past")
	ErrInvalidPolicy  = errors.New("invalid booking policy values")
)

// AvailabilityService manages instructor availability profiles and exposes
// the bookable slots they generate.
type AvailabilityService interface {
	// Get returns the profile for the (instructor, course scope) pair, or a
	// deterministic default when none exists yet. Never returns nil without error.
	Get(ctx context.Context, instructorID, courseID string) (*models.AvailabilityProfile, error)
	Upsert(ctx context.Context, profile *models.AvailabilityProfile) (*models.AvailabilityProfile, error)
	AddRecurringRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error
	RemoveRecurringRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error
	AddOverride(ctx context.Context, instructorID, courseID string, override models.DateOverride) error
	// BlockDate closes a whole calendar date with an unavailable override.
	BlockDate(ctx context.Context, instructorID, courseID, date, reason string) error
	// AvailableSlots generates the free slots between from and to. A zero
	// "to" defaults to the profile's booking horizon.
	AvailableSlots(ctx context.Context, instructorID, courseID string, from, to time.Time) ([]scheduling.Slot, error)
}

// DefaultAvailabilityService implements AvailabilityService.
type DefaultAvailabilityService struct {
	Repo     availabilityRepo.AvailabilityRepository
	Bookings bookingRepo.BookingRepository
	Logger   *zap.Logger

	// Defaults applied when an instructor has no profile yet.
	DefaultPolicy PolicyDefaults

	now func() time.Time
}

// PolicyDefaults are the booking policy knobs of the deterministic
// default profile.
type PolicyDefaults struct {
	MinAdvanceBookingHours int
	MaxAdvanceBookingDays  int
	SlotDurationHours      float64
	BufferMinutes          int
}

// NewDefaultAvailabilityService wires the service with its repositories.
func NewDefaultAvailabilityService(
	repo availabilityRepo.AvailabilityRepository,
	bookings bookingRepo.BookingRepository,
	defaults PolicyDefaults,
	logger *zap.Logger,
) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{
		Repo:          repo,
		Bookings:      bookings,
		DefaultPolicy: defaults,
		Logger:        logger,
		now:           time.Now,
	}
}
