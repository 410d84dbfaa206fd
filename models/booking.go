package models

import "time"

// Booking status values. Transitions only move forward:
// scheduled -> in_progress -> completed, or scheduled -> cancelled/missed.
const (
	BookingStatusScheduled  = "scheduled"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
	BookingStatusMissed     = "missed"
)

// Booking kinds. Full-course bookings draw on an enrollment and the course
// hourly rate; single-session bookings carry a fixed price from the caller.
const (
	BookingKindFullCourse    = "full_course"
	BookingKindSingleSession = "single_session"
)

// Refund records the credit movement of a cancellation. Amount is fixed
// when the booking is cancelled; Refunded flips only once the credit has
// reached the student's ledger, so an unapplied refund can be replayed.
type Refund struct {
	Refunded bool `bson:"refunded" json:"refunded"`
	Amount   int  `bson:"amount" json:"amount"`
}

// Payout records the instructor's credit for a delivered session. Same
// shape as Refund: Amount is fixed at completion, Paid only after the
// ledger credit succeeds.
type Payout struct {
	Paid   bool `bson:"paid" json:"paid"`
	Amount int  `bson:"amount" json:"amount"`
}

// Attendance tracks which parties joined the session room.
type Attendance struct {
	StudentJoined      bool       `bson:"student_joined" json:"studentJoined"`
	InstructorJoined   bool       `bson:"instructor_joined" json:"instructorJoined"`
	StudentJoinedAt    *time.Time `bson:"student_joined_at,omitempty" json:"studentJoinedAt,omitempty"`
	InstructorJoinedAt *time.Time `bson:"instructor_joined_at,omitempty" json:"instructorJoinedAt,omitempty"`
}

// Cancellation records who cancelled a booking and why.
type Cancellation struct {
	By     string     `bson:"by,omitempty" json:"by,omitempty"`
	Reason string     `bson:"reason,omitempty" json:"reason,omitempty"`
	At     *time.Time `bson:"at,omitempty" json:"at,omitempty"`
}

// RoomURLs are the provisioned session-room join links.
type RoomURLs struct {
	Instructor string `bson:"instructor,omitempty" json:"instructor,omitempty"`
	Student    string `bson:"student,omitempty" json:"student,omitempty"`
}

// Booking represents one scheduled session. Terminal records are retained
// for history, never deleted.
type Booking struct {
	ID            string       `bson:"id" json:"id"`
	CourseID      string       `bson:"course_id" json:"courseId"`
	StudentID     string       `bson:"student_id" json:"studentId"`
	InstructorID  string       `bson:"instructor_id" json:"instructorId"`
	Start         time.Time    `bson:"start" json:"start"`
	End           time.Time    `bson:"end" json:"end"` // derived from Start + DurationHours, stored for interval queries
	DurationHours float64      `bson:"duration_hours" json:"durationHours"`
	Kind          string       `bson:"kind" json:"kind"`
	Status        string       `bson:"status" json:"status"`
	CreditsSpent  int          `bson:"credits_spent" json:"creditsSpent"`
	Refund        Refund       `bson:"refund" json:"refund"`
	Payout        Payout       `bson:"payout" json:"payout"`
	Attendance    Attendance   `bson:"attendance" json:"attendance"`
	Cancellation  Cancellation `bson:"cancellation,omitempty" json:"cancellation,omitempty"`
	Room          RoomURLs     `bson:"room,omitempty" json:"room,omitempty"`
	CreatedAt     time.Time    `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time    `bson:"updated_at" json:"updatedAt"`
}

// Interval returns the booking's half-open [start, end) interval.
func (b *Booking) Interval() (time.Time, time.Time) {
	return b.Start, b.End
}

// IsActive reports whether the booking still occupies its instructor's time.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusScheduled || b.Status == BookingStatusInProgress
}

// DurationToTime converts a fractional hour count to a duration.
func DurationToTime(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
