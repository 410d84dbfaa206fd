package cron

import (
	"context"
	"time"

	"go.uber.org/zap"

	bookingRepo "mentora/database/repository/booking"
	"mentora/models"
	"mentora/services/notification"
)

// Sweeper runs the periodic reconciliation jobs: transitioning overdue
// scheduled sessions to missed, and emitting reminders for imminent ones.
// Both jobs are idempotent and safe to run concurrently with booking
// creation and cancellation; every status write is conditional on the
// record still being scheduled.
type Sweeper struct {
	Bookings bookingRepo.BookingRepository
	Notifier notification.Notifier
	Tracker  ReminderTracker
	Logger   *zap.Logger

	MissedInterval   time.Duration
	ReminderInterval time.Duration
	Lookahead        time.Duration

	stopChan chan struct{}
	now      func() time.Time
}

// NewSweeper creates a stopped sweeper with the given cadences.
func NewSweeper(
	bookings bookingRepo.BookingRepository,
	notifier notification.Notifier,
	tracker ReminderTracker,
	missedInterval, reminderInterval, lookahead time.Duration,
	logger *zap.Logger,
) *Sweeper {
	return &Sweeper{
		Bookings:         bookings,
		Notifier:         notifier,
		Tracker:          tracker,
		Logger:           logger,
		MissedInterval:   missedInterval,
		ReminderInterval: reminderInterval,
		Lookahead:        lookahead,
		stopChan:         make(chan struct{}),
		now:              time.Now,
	}
}

// Start launches both sweep loops in the background.
func (s *Sweeper) Start(ctx context.Context) {
	s.Logger.Info("Starting reconciliation sweeper",
		zap.Duration("missed_interval", s.MissedInterval),
		zap.Duration("reminder_interval", s.ReminderInterval),
	)
	go s.runLoop(ctx, s.MissedInterval, s.SweepMissed)
	go s.runLoop(ctx, s.ReminderInterval, s.SweepReminders)
}

// Stop halts both loops.
func (s *Sweeper) Stop() {
	s.Logger.Info("Stopping reconciliation sweeper")
	close(s.stopChan)
}

func (s *Sweeper) runLoop(ctx context.Context, interval time.Duration, sweep func(context.Context) error) {
	// First run right at startup, then on the ticker.
	if err := sweep(ctx); err != nil {
		s.Logger.Warn("Sweep failed, will retry on next tick", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := sweep(ctx); err != nil {
				s.Logger.Warn("Sweep failed, will retry on next tick", zap.Error(err))
			}
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepMissed transitions every scheduled booking whose start has passed
// to the terminal missed state. No credits move on this transition.
func (s *Sweeper) SweepMissed(ctx context.Context) error {
	overdue, err := s.Bookings.FindScheduledStartingBefore(ctx, s.now())
	if err != nil {
		return err
	}

	marked := 0
	for i := range overdue {
		applied, err := s.Bookings.MarkMissed(ctx, overdue[i].ID)
		if err != nil {
			s.Logger.Warn("Failed to mark booking missed",
				zap.String("booking_id", overdue[i].ID),
				zap.Error(err),
			)
			continue
		}
		// A lost race means a concurrent cancel or join won; nothing to do.
		if applied {
			marked++
		}
	}

	if marked > 0 {
		s.Logger.Info("Missed-session sweep finished", zap.Int("marked", marked))
	}
	return nil
}

// SweepReminders emits one reminder per recipient for every scheduled
// booking starting within the lookahead window. The tracker keeps
// overlapping runs from double-sending; a failed dispatch clears its mark
// so the next tick retries.
func (s *Sweeper) SweepReminders(ctx context.Context) error {
	now := s.now()
	imminent, err := s.Bookings.FindScheduledStartingBetween(ctx, now, now.Add(s.Lookahead))
	if err != nil {
		return err
	}

	sent := 0
	for i := range imminent {
		b := &imminent[i]
		for _, userID := range []string{b.StudentID, b.InstructorID} {
			first, err := s.Tracker.MarkSent(ctx, b.ID, userID)
			if err != nil {
				s.Logger.Warn("Reminder tracker unavailable", zap.Error(err))
				continue
			}
			if !first {
				continue
			}

			payload := models.NotifyPayload{
				UserID:    userID,
				Kind:      models.NotifySessionReminder,
				BookingID: b.ID,
				Data: map[string]string{
					"start": b.Start.Format(time.RFC3339),
				},
			}
			if err := s.Notifier.Notify(ctx, payload); err != nil {
				s.Logger.Warn("Reminder dispatch failed",
					zap.String("booking_id", b.ID),
					zap.String("user_id", userID),
					zap.Error(err),
				)
				if clearErr := s.Tracker.Clear(ctx, b.ID, userID); clearErr != nil {
					s.Logger.Warn("Failed to clear reminder mark", zap.Error(clearErr))
				}
				continue
			}
			sent++
		}
	}

	if sent > 0 {
		s.Logger.Info("Reminder sweep finished", zap.Int("sent", sent))
	}
	return nil
}
