package scheduling

import (
	"time"

	"mentora/models"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. This is the single overlap predicate for the whole engine:
// slot generation and the pre-commit booking check both go through it.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// ConflictsWith reports whether the interval [start,end) overlaps any
// active booking in the list. Bookings already in a terminal state do not
// occupy instructor time.
func ConflictsWith(start, end time.Time, bookings []models.Booking) bool {
	for i := range bookings {
		if !bookings[i].IsActive() {
			continue
		}
		bs, be := bookings[i].Interval()
		if Overlaps(start, end, bs, be) {
			return true
		}
	}
	return false
}
