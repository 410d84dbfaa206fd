package models

import "time"

// RecurringRule declares a weekly availability window for an instructor.
type RecurringRule struct {
	Weekday int  `bson:"weekday" json:"weekday"` // 0 = Sunday ... 6 = Saturday
	Start   int  `bson:"start" json:"start"`     // minutes from midnight (e.g., 1080 for 6:00 PM)
	End     int  `bson:"end" json:"end"`         // minutes from midnight
	Active  bool `bson:"active" json:"active"`
}

// DateOverride replaces all recurring rules for one calendar date.
// When Available is false the whole date is closed regardless of Start/End.
type DateOverride struct {
	Date      string `bson:"date" json:"date"` // "YYYY-MM-DD" in the profile's timezone
	Start     int    `bson:"start" json:"start"`
	End       int    `bson:"end" json:"end"`
	Available bool   `bson:"available" json:"available"`
	Reason    string `bson:"reason,omitempty" json:"reason,omitempty"`
}

// AvailabilityProfile holds an instructor's availability configuration.
// CourseID scopes the profile to one course; an empty CourseID is the
// instructor's general profile. Exactly one profile exists per
// (instructor, course scope) pair.
type AvailabilityProfile struct {
	ID         string `bson:"id" json:"id"`
	Instructor string `bson:"instructor_id" json:"instructorId"`
	CourseID   string `bson:"course_id" json:"courseId,omitempty"`
	Timezone   string `bson:"timezone" json:"timezone"`

	Rules     []RecurringRule `bson:"rules" json:"rules"`
	Overrides []DateOverride  `bson:"overrides" json:"overrides"`

	// Booking policy knobs.
	MinAdvanceBookingHours int     `bson:"min_advance_booking_hours" json:"minAdvanceBookingHours"`
	MaxAdvanceBookingDays  int     `bson:"max_advance_booking_days" json:"maxAdvanceBookingDays"`
	SlotDurationHours      float64 `bson:"slot_duration_hours" json:"slotDurationHours"`
	BufferMinutes          int     `bson:"buffer_minutes" json:"bufferMinutes"`

	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// Location resolves the profile timezone, falling back to UTC.
func (p *AvailabilityProfile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OverrideFor returns the override for a calendar date, if any.
func (p *AvailabilityProfile) OverrideFor(date string) *DateOverride {
	for i := range p.Overrides {
		if p.Overrides[i].Date == date {
			return &p.Overrides[i]
		}
	}
	return nil
}
