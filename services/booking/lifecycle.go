package booking

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"mentora/models"
	"mentora/services/scheduling"
)

// Cancel moves a scheduled booking to cancelled and applies the refund
// policy. Cancelling an already-cancelled booking is a no-op, not an
// error; any other terminal state rejects with ErrInvalidState. The refund
// amount is recorded on the cancellation transition with its applied flag
// unset and flips only once the ledger credit lands, so a re-invoked
// Cancel replays a credit an earlier call failed to deliver.
func (s *DefaultBookingService) Cancel(ctx context.Context, bookingID, requesterID, reason string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if requesterID != booking.StudentID && requesterID != booking.InstructorID {
		return nil, ErrPermissionDenied
	}
	if booking.Status == models.BookingStatusCancelled {
		if err := s.settleRefund(ctx, booking); err != nil {
			return nil, err
		}
		return booking, nil
	}
	if booking.Status != models.BookingStatusScheduled {
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidState, booking.Status)
	}

	now := s.now()
	byInstructor := requesterID == booking.InstructorID
	hoursUntil := booking.Start.Sub(now).Hours()
	refundAmount := scheduling.RefundAmount(booking.CreditsSpent, hoursUntil, byInstructor)

	cancellation := models.Cancellation{By: requesterID, Reason: reason, At: &now}
	refund := models.Refund{Amount: refundAmount}

	applied, err := s.Repo.MarkCancelled(ctx, bookingID, cancellation, refund)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost a race against the sweep or another cancel; re-read and decide.
		current, err := s.getBooking(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.BookingStatusCancelled {
			if err := s.settleRefund(ctx, current); err != nil {
				return nil, err
			}
			return current, nil
		}
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidState, current.Status)
	}

	booking.Status = models.BookingStatusCancelled
	booking.Cancellation = cancellation
	booking.Refund = refund

	if err := s.settleRefund(ctx, booking); err != nil {
		return nil, err
	}

	s.Logger.Info("Booking cancelled",
		zap.String("booking_id", bookingID),
		zap.String("cancelled_by", requesterID),
		zap.Int("refund", refundAmount),
	)

	s.notify(ctx, booking.StudentID, models.NotifyBookingCancelled, booking)
	s.notify(ctx, booking.InstructorID, models.NotifyBookingCancelled, booking)
	return booking, nil
}

// settleRefund delivers a pending refund credit and flips the applied
// flag. The student lock serializes in-process replays; the conditional
// flag write keeps a raced replay from applying twice. A ledger failure
// leaves the refund pending for the next Cancel call.
func (s *DefaultBookingService) settleRefund(ctx context.Context, booking *models.Booking) error {
	if booking.Refund.Refunded || booking.Refund.Amount == 0 {
		return nil
	}

	unlock := s.locks.lockAll("student:" + booking.StudentID)
	defer unlock()

	current, err := s.getBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	if current.Refund.Refunded {
		booking.Refund = current.Refund
		return nil
	}

	extCtx, cancel := context.WithTimeout(ctx, s.ExternalTimeout)
	err = s.Credits.Credit(extCtx, booking.StudentID, booking.Refund.Amount, "refund booking "+booking.ID)
	cancel()
	if err != nil {
		s.Logger.Error("Refund credit failed, refund stays pending",
			zap.String("booking_id", booking.ID),
			zap.Int("amount", booking.Refund.Amount),
			zap.Error(err),
		)
		return fmt.Errorf("%w: refund credit failed: %v", ErrExternalService, err)
	}

	if _, err := s.Repo.MarkRefundApplied(ctx, booking.ID); err != nil {
		s.Logger.Warn("Failed to mark refund applied",
			zap.String("booking_id", booking.ID),
			zap.Error(err),
		)
	}
	booking.Refund.Refunded = true
	return nil
}

// Complete marks a session as delivered and pays the instructor. Only the
// booking's instructor may complete, and only from scheduled or
// in_progress. The payout follows the same pending-then-applied contract
// as refunds: re-invoking Complete on a completed booking replays a
// payout an earlier call failed to deliver, and rejects with
// ErrInvalidState once the payout has been paid.
func (s *DefaultBookingService) Complete(ctx context.Context, bookingID, instructorID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if instructorID != booking.InstructorID {
		return nil, ErrPermissionDenied
	}
	if booking.Status == models.BookingStatusCompleted {
		if !booking.Payout.Paid && booking.Payout.Amount > 0 {
			if err := s.settlePayout(ctx, booking); err != nil {
				return nil, err
			}
			return booking, nil
		}
		return nil, fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidState, booking.Status)
	}

	// Credits move to the instructor at completion. Any platform take
	// would be applied here.
	payout := models.Payout{Amount: booking.CreditsSpent}
	applied, err := s.Repo.MarkCompleted(ctx, bookingID, payout)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: cannot complete a %s booking", ErrInvalidState, booking.Status)
	}

	booking.Status = models.BookingStatusCompleted
	booking.Payout = payout

	if err := s.settlePayout(ctx, booking); err != nil {
		return nil, err
	}

	s.Logger.Info("Booking completed",
		zap.String("booking_id", bookingID),
		zap.Int("payout", booking.CreditsSpent),
	)

	s.notify(ctx, booking.StudentID, models.NotifyBookingCompleted, booking)
	return booking, nil
}

// settlePayout is the instructor-side twin of settleRefund.
func (s *DefaultBookingService) settlePayout(ctx context.Context, booking *models.Booking) error {
	if booking.Payout.Paid || booking.Payout.Amount == 0 {
		return nil
	}

	unlock := s.locks.lockAll("instructor:" + booking.InstructorID)
	defer unlock()

	current, err := s.getBooking(ctx, booking.ID)
	if err != nil {
		return err
	}
	if current.Payout.Paid {
		booking.Payout = current.Payout
		return nil
	}

	extCtx, cancel := context.WithTimeout(ctx, s.ExternalTimeout)
	err = s.Credits.Credit(extCtx, booking.InstructorID, booking.Payout.Amount, "session payout "+booking.ID)
	cancel()
	if err != nil {
		s.Logger.Error("Instructor payout failed, payout stays pending",
			zap.String("booking_id", booking.ID),
			zap.Int("amount", booking.Payout.Amount),
			zap.Error(err),
		)
		return fmt.Errorf("%w: payout credit failed: %v", ErrExternalService, err)
	}

	if _, err := s.Repo.MarkPayoutApplied(ctx, booking.ID); err != nil {
		s.Logger.Warn("Failed to mark payout applied",
			zap.String("booking_id", booking.ID),
			zap.Error(err),
		)
	}
	booking.Payout.Paid = true
	return nil
}

// MarkJoined records that a party entered the session room. Once both
// parties have joined, a scheduled booking moves to in_progress.
func (s *DefaultBookingService) MarkJoined(ctx context.Context, bookingID, userID string) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if userID != booking.StudentID && userID != booking.InstructorID {
		return nil, ErrPermissionDenied
	}
	if !booking.IsActive() {
		return nil, fmt.Errorf("%w: cannot join a %s booking", ErrInvalidState, booking.Status)
	}

	if err := s.Repo.SetAttendance(ctx, bookingID, userID == booking.InstructorID, s.now()); err != nil {
		return nil, err
	}

	booking, err = s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Attendance.StudentJoined && booking.Attendance.InstructorJoined &&
		booking.Status == models.BookingStatusScheduled {
		if applied, err := s.Repo.MarkInProgress(ctx, bookingID); err != nil {
			return nil, err
		} else if applied {
			booking.Status = models.BookingStatusInProgress
		}
	}
	return booking, nil
}

// Reschedule moves a scheduled booking to a new start. The new interval
// passes the same lead-time and conflict gates as creation; credits do not
// move.
func (s *DefaultBookingService) Reschedule(ctx context.Context, bookingID, requesterID string, newStart time.Time) (*models.Booking, error) {
	booking, err := s.getBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if requesterID != booking.StudentID && requesterID != booking.InstructorID {
		return nil, ErrPermissionDenied
	}
	if booking.Status != models.BookingStatusScheduled {
		return nil, fmt.Errorf("%w: cannot reschedule a %s booking", ErrInvalidState, booking.Status)
	}

	profile, err := s.profileFor(ctx, booking.InstructorID, booking.CourseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	leadCutoff := now.Add(time.Duration(profile.MinAdvanceBookingHours) * time.Hour)
	if newStart.Before(leadCutoff) {
		return nil, ErrLeadTimeViolation
	}
	newEnd := newStart.Add(models.DurationToTime(booking.DurationHours))

	unlock := s.locks.lockAll("instructor:" + booking.InstructorID)
	defer unlock()

	active, err := s.Repo.FindActiveByInstructor(ctx, booking.InstructorID, newStart, newEnd)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if active[i].ID == booking.ID {
			continue
		}
		if scheduling.Overlaps(newStart, newEnd, active[i].Start, active[i].End) {
			return nil, ErrSlotUnavailable
		}
	}

	applied, err := s.Repo.UpdateSchedule(ctx, bookingID, newStart, newEnd)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("%w: booking left the scheduled state", ErrInvalidState)
	}

	s.Logger.Info("Booking rescheduled",
		zap.String("booking_id", bookingID),
		zap.Time("new_start", newStart),
	)

	booking.Start = newStart
	booking.End = newEnd
	other := booking.StudentID
	if requesterID == booking.StudentID {
		other = booking.InstructorID
	}
	s.notify(ctx, other, models.NotifyBookingCreated, booking)
	return booking, nil
}

// ListUpcoming returns the active bookings of one user, soonest first.
func (s *DefaultBookingService) ListUpcoming(ctx context.Context, userID string, asInstructor bool) ([]models.Booking, error) {
	if asInstructor {
		return s.Repo.FindUpcomingByInstructor(ctx, userID, s.now())
	}
	return s.Repo.FindUpcomingByStudent(ctx, userID, s.now())
}

func (s *DefaultBookingService) getBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	booking, err := s.Repo.GetByID(ctx, bookingID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("%w: booking %s", ErrNotFound, bookingID)
		}
		return nil, err
	}
	return booking, nil
}
