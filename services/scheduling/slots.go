package scheduling

import (
	"sort"
	"time"

	"mentora/models"
)

// Slot is a candidate bookable window of exactly the profile's slot
// duration. It is not yet committed to a booking.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// GenerateSlots computes the free, bookable slots for a profile between
// periodStart and periodEnd. It instantiates each recurring rule per day
// (date overrides replace the rules for their date), tiles the windows
// into slot-duration chunks separated by the buffer, then drops chunks
// inside the lead-time cutoff or overlapping an existing active booking.
//
// The function is pure: same inputs, same output, no side effects.
func GenerateSlots(
	profile models.AvailabilityProfile,
	periodStart, periodEnd, now time.Time,
	bookings []models.Booking,
) []Slot {
	if !profile.Active || periodEnd.Before(periodStart) {
		return nil
	}

	loc := profile.Location()
	slotDur := models.DurationToTime(profile.SlotDurationHours)
	if slotDur <= 0 {
		return nil
	}
	buffer := time.Duration(profile.BufferMinutes) * time.Minute
	leadCutoff := now.Add(time.Duration(profile.MinAdvanceBookingHours) * time.Hour)

	// Normalize the period to day boundaries in the profile's timezone.
	start := periodStart.In(loc)
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	end := periodEnd.In(loc)

	var slots []Slot
	for ; day.Before(end); day = day.AddDate(0, 0, 1) {
		for _, w := range windowsForDay(&profile, day) {
			cursor := day.Add(time.Duration(w.start) * time.Minute)
			windowEnd := day.Add(time.Duration(w.end) * time.Minute)

			for !cursor.Add(slotDur).After(windowEnd) {
				slotEnd := cursor.Add(slotDur)
				if !cursor.Before(leadCutoff) && !ConflictsWith(cursor, slotEnd, bookings) {
					slots = append(slots, Slot{Start: cursor, End: slotEnd})
				}
				cursor = slotEnd.Add(buffer)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

type window struct {
	start, end int // minutes from midnight
}

// windowsForDay resolves the availability windows for one calendar day.
// An override for the date replaces, never merges with, recurring rules.
func windowsForDay(profile *models.AvailabilityProfile, day time.Time) []window {
	if ov := profile.OverrideFor(day.Format("2006-01-02")); ov != nil {
		if !ov.Available {
			return nil
		}
		return []window{{start: ov.Start, end: ov.End}}
	}

	var windows []window
	weekday := int(day.Weekday())
	for _, rule := range profile.Rules {
		if rule.Active && rule.Weekday == weekday {
			windows = append(windows, window{start: rule.Start, end: rule.End})
		}
	}
	return windows
}
