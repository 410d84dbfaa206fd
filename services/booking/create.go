package booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	creditRepo "mentora/database/repository/credit"
	"mentora/models"
	"mentora/services/scheduling"
)

const (
	minSessionHours = 0.5
	maxSessionHours = 4
)

// Create runs the booking creation contract. The conflict check and the
// credit debit execute under the instructor and student locks, so two
// concurrent attempts on the same interval or the same balance are
// serialized; the loser sees the winner's committed state and fails with
// the matching business error. Side effects after the persisted booking
// (room provisioning, notifications) are best-effort.
func (s *DefaultBookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if req.DurationHours < minSessionHours || req.DurationHours > maxSessionHours {
		return nil, fmt.Errorf("%w: duration must be between %.1f and %.0f hours", ErrValidation, minSessionHours, float64(maxSessionHours))
	}
	if req.Kind != models.BookingKindFullCourse && req.Kind != models.BookingKindSingleSession {
		return nil, fmt.Errorf("%w: unknown booking kind %q", ErrValidation, req.Kind)
	}

	now := s.now()
	if !req.Start.After(now) {
		return nil, fmt.Errorf("%w: session start must be in the future", ErrValidation)
	}

	// Step 1: resolve course and instructor.
	course, err := s.Catalog.GetCourse(ctx, req.CourseID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: course %s", ErrNotFound, req.CourseID)
		}
		return nil, err
	}
	if course.Status != models.CourseStatusActive {
		return nil, ErrCourseInactive
	}

	// Step 2: enrollment (full-course) or fixed price (single session).
	creditsNeeded := 0
	switch req.Kind {
	case models.BookingKindFullCourse:
		enrolled, err := s.Catalog.IsEnrolled(ctx, req.StudentID, req.CourseID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
		// Step 3: ceil(duration x hourly rate), whole credits only.
		creditsNeeded = int(math.Ceil(req.DurationHours * course.PricePerHour))
	case models.BookingKindSingleSession:
		creditsNeeded = req.FixedPrice
	}
	if creditsNeeded < 1 {
		return nil, fmt.Errorf("%w: computed price must be at least 1 credit", ErrValidation)
	}

	profile, err := s.profileFor(ctx, course.InstructorID, req.CourseID)
	if err != nil {
		return nil, err
	}

	start := req.Start
	end := start.Add(models.DurationToTime(req.DurationHours))

	// Critical section: one in-flight mutation per instructor and per
	// student balance.
	unlock := s.locks.lockAll("instructor:"+course.InstructorID, "student:"+req.StudentID)
	defer unlock()

	// Step 4: balance precheck. The debit below re-verifies atomically.
	balance, err := s.Credits.Balance(ctx, req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("%w: credit ledger lookup failed: %v", ErrExternalService, err)
	}
	if balance < creditsNeeded {
		return nil, ErrInsufficientCredits
	}

	// Step 5: lead time.
	leadCutoff := now.Add(time.Duration(profile.MinAdvanceBookingHours) * time.Hour)
	if start.Before(leadCutoff) {
		return nil, ErrLeadTimeViolation
	}

	// Step 6: conflict check against the instructor's active bookings.
	active, err := s.Repo.FindActiveByInstructor(ctx, course.InstructorID, start, end)
	if err != nil {
		return nil, err
	}
	if scheduling.ConflictsWith(start, end, active) {
		return nil, ErrSlotUnavailable
	}

	// Step 7: per-student per-day cap, measured on the session date.
	dayStart := startOfDay(start, profile.Location())
	count, err := s.Repo.CountByStudentBetween(ctx, req.StudentID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	if count >= int64(s.DailyLimit) {
		return nil, ErrDailyLimitExceeded
	}

	booking := &models.Booking{
		ID:            uuid.New().String(),
		CourseID:      req.CourseID,
		StudentID:     req.StudentID,
		InstructorID:  course.InstructorID,
		Start:         start,
		End:           end,
		DurationHours: req.DurationHours,
		Kind:          req.Kind,
		Status:        models.BookingStatusScheduled,
		CreditsSpent:  creditsNeeded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Step 8: debit. A ledger failure here aborts the whole sequence.
	extCtx, cancel := context.WithTimeout(ctx, s.ExternalTimeout)
	err = s.Credits.Debit(extCtx, req.StudentID, creditsNeeded, "booking "+booking.ID)
	cancel()
	if err != nil {
		if errors.Is(err, creditRepo.ErrInsufficientBalance) {
			return nil, ErrInsufficientCredits
		}
		return nil, fmt.Errorf("%w: credit debit failed: %v", ErrExternalService, err)
	}

	// Step 9: persist. Compensate the debit if the write fails so no
	// partial state is left behind.
	if err := s.Repo.Create(ctx, booking); err != nil {
		if refundErr := s.Credits.Credit(ctx, req.StudentID, creditsNeeded, "rollback booking "+booking.ID); refundErr != nil {
			s.Logger.Error("Failed to roll back debit after create failure",
				zap.String("booking_id", booking.ID),
				zap.Error(refundErr),
			)
		}
		return nil, err
	}

	s.Logger.Info("Booking created",
		zap.String("booking_id", booking.ID),
		zap.String("student_id", booking.StudentID),
		zap.String("instructor_id", booking.InstructorID),
		zap.Time("start", booking.Start),
		zap.Int("credits_spent", booking.CreditsSpent),
	)

	// Step 10: best-effort side effects.
	s.provisionRoom(ctx, booking)
	s.notify(ctx, booking.StudentID, models.NotifyBookingCreated, booking)
	s.notify(ctx, booking.InstructorID, models.NotifyBookingCreated, booking)

	return booking, nil
}

// profileFor resolves the effective availability profile: the
// course-scoped one when configured, else the instructor's general profile.
func (s *DefaultBookingService) profileFor(ctx context.Context, instructorID, courseID string) (*models.AvailabilityProfile, error) {
	profile, err := s.Availability.Get(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}
	if profile.ID == "" && courseID != "" {
		return s.Availability.Get(ctx, instructorID, "")
	}
	return profile, nil
}

func (s *DefaultBookingService) provisionRoom(ctx context.Context, booking *models.Booking) {
	extCtx, cancel := context.WithTimeout(ctx, s.ExternalTimeout)
	defer cancel()

	room, err := s.Rooms.CreateRoom(extCtx, booking)
	if err != nil {
		s.Logger.Warn("Room provisioning failed, booking stands",
			zap.String("booking_id", booking.ID),
			zap.Error(err),
		)
		return
	}
	booking.Room = room
	if err := s.Repo.SetRoom(ctx, booking.ID, room); err != nil {
		s.Logger.Warn("Failed to store room URLs", zap.String("booking_id", booking.ID), zap.Error(err))
	}
}

func (s *DefaultBookingService) notify(ctx context.Context, userID, kind string, booking *models.Booking) {
	payload := models.NotifyPayload{
		UserID:    userID,
		Kind:      kind,
		BookingID: booking.ID,
		Data: map[string]string{
			"courseId": booking.CourseID,
			"start":    booking.Start.Format(time.RFC3339),
		},
	}
	if err := s.Notifier.Notify(ctx, payload); err != nil {
		s.Logger.Warn("Notification dispatch failed",
			zap.String("user_id", userID),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
