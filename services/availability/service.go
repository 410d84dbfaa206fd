// File: services/availability/service.go
package availability

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"mentora/models"
	"mentora/services/scheduling"
)

const minutesPerDay = 24 * 60

func (s *DefaultAvailabilityService) Get(ctx context.Context, instructorID, courseID string) (*models.AvailabilityProfile, error) {
	profile, err := s.Repo.Get(ctx, instructorID, courseID)
	if err == mongo.ErrNoDocuments {
		return s.defaultProfile(instructorID, courseID), nil
	}
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// defaultProfile is the deterministic empty profile for instructors who
// have not configured availability yet: no windows, policy knobs from the
// service defaults.
func (s *DefaultAvailabilityService) defaultProfile(instructorID, courseID string) *models.AvailabilityProfile {
	return &models.AvailabilityProfile{
		Instructor:             instructorID,
		CourseID:               courseID,
		Timezone:               "UTC",
		Rules:                  []models.RecurringRule{},
		Overrides:              []models.DateOverride{},
		MinAdvanceBookingHours: s.DefaultPolicy.MinAdvanceBookingHours,
		MaxAdvanceBookingDays:  s.DefaultPolicy.MaxAdvanceBookingDays,
		SlotDurationHours:      s.DefaultPolicy.SlotDurationHours,
		BufferMinutes:          s.DefaultPolicy.BufferMinutes,
		Active:                 true,
	}
}

func (s *DefaultAvailabilityService) Upsert(ctx context.Context, profile *models.AvailabilityProfile) (*models.AvailabilityProfile, error) {
	if err := s.validateProfile(profile); err != nil {
		return nil, err
	}
	if err := s.Repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	stored, err := s.Repo.Get(ctx, profile.Instructor, profile.CourseID)
	if err != nil {
		return nil, fmt.Errorf("error reloading upserted profile: %w", err)
	}
	s.Logger.Info("Availability profile upserted",
		zap.String("instructor_id", profile.Instructor),
		zap.String("course_id", profile.CourseID),
		zap.Int("rules", len(stored.Rules)),
	)
	return stored, nil
}

func (s *DefaultAvailabilityService) AddRecurringRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	err := s.Repo.AddRule(ctx, instructorID, courseID, rule)
	if err == mongo.ErrNoDocuments {
		// First touch for this pair: materialize the default profile, then retry.
		if _, err := s.Upsert(ctx, s.defaultProfile(instructorID, courseID)); err != nil {
			return err
		}
		return s.Repo.AddRule(ctx, instructorID, courseID, rule)
	}
	return err
}

func (s *DefaultAvailabilityService) RemoveRecurringRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error {
	return s.Repo.RemoveRule(ctx, instructorID, courseID, rule)
}

func (s *DefaultAvailabilityService) AddOverride(ctx context.Context, instructorID, courseID string, override models.DateOverride) error {
	profile, err := s.Get(ctx, instructorID, courseID)
	if err != nil {
		return err
	}
	if err := s.validateOverride(override, profile.Location()); err != nil {
		return err
	}
	if profile.ID == "" {
		if _, err := s.Upsert(ctx, profile); err != nil {
			return err
		}
	}
	return s.Repo.AddOverride(ctx, instructorID, courseID, override)
}

func (s *DefaultAvailabilityService) BlockDate(ctx context.Context, instructorID, courseID, date, reason string) error {
	return s.AddOverride(ctx, instructorID, courseID, models.DateOverride{
		Date:      date,
		Start:     0,
		End:       minutesPerDay,
		Available: false,
		Reason:    reason,
	})
}

func (s *DefaultAvailabilityService) AvailableSlots(ctx context.Context, instructorID, courseID string, from, to time.Time) ([]scheduling.Slot, error) {
	profile, err := s.Get(ctx, instructorID, courseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if from.IsZero() {
		from = now
	}
	horizon := now.AddDate(0, 0, profile.MaxAdvanceBookingDays)
	if to.IsZero() || to.After(horizon) {
		to = horizon
	}

	booked, err := s.Bookings.FindActiveByInstructor(ctx, instructorID, from, to)
	if err != nil {
		return nil, err
	}

	return scheduling.GenerateSlots(*profile, from, to, now, booked), nil
}

func (s *DefaultAvailabilityService) validateProfile(profile *models.AvailabilityProfile) error {
	if profile.MinAdvanceBookingHours < 0 || profile.MaxAdvanceBookingDays <= 0 ||
		profile.SlotDurationHours <= 0 || profile.BufferMinutes < 0 {
		return ErrInvalidPolicy
	}
	for _, rule := range profile.Rules {
		if err := validateRule(rule); err != nil {
			return err
		}
	}
	loc := profile.Location()
	for _, ov := range profile.Overrides {
		if err := s.validateOverride(ov, loc); err != nil {
			return err
		}
	}
	return nil
}

func validateRule(rule models.RecurringRule) error {
	if rule.Weekday < 0 || rule.Weekday > 6 {
		return ErrInvalidWeekday
	}
	if rule.Start < 0 || rule.End > minutesPerDay || rule.Start >= rule.End {
		return ErrInvalidWindow
	}
	return nil
}

func (s *DefaultAvailabilityService) validateOverride(override models.DateOverride, loc *time.Location) error {
	date, err := time.ParseInLocation("2006-01-02", override.Date, loc)
	if err != nil {
		return fmt.Errorf("invalid override date %q: %w", override.Date, err)
	}
	if override.Available && (override.Start < 0 || override.End > minutesPerDay || override.Start >= override.End) {
		return ErrInvalidWindow
	}
	// The date is in the past only once the whole day has elapsed locally.
	if date.AddDate(0, 0, 1).Before(s.now().In(loc)) {
		return ErrPastDate
	}
	return nil
}
