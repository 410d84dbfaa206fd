package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	creditRepo "mentora/database/repository/credit"
	"mentora/models"
	"mentora/services/scheduling"
)

// ── in-memory booking repository ──

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (r *memBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) FindActiveByInstructor(_ context.Context, instructorID string, from, to time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.InstructorID == instructorID && b.IsActive() &&
			scheduling.Overlaps(b.Start, b.End, from, to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindUpcomingByStudent(_ context.Context, studentID string, from time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.StudentID == studentID && b.IsActive() && b.End.After(from) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindUpcomingByInstructor(_ context.Context, instructorID string, from time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.InstructorID == instructorID && b.IsActive() && b.End.After(from) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) CountByStudentBetween(_ context.Context, studentID string, from, to time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, b := range r.bookings {
		if b.StudentID == studentID && b.Status != models.BookingStatusCancelled &&
			!b.Start.Before(from) && b.Start.Before(to) {
			count++
		}
	}
	return count, nil
}

func (r *memBookingRepo) FindScheduledStartingBefore(_ context.Context, t time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.BookingStatusScheduled && b.Start.Before(t) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) FindScheduledStartingBetween(_ context.Context, from, to time.Time) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.Status == models.BookingStatusScheduled && !b.Start.Before(from) && b.Start.Before(to) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) transition(id string, from []string, apply func(*models.Booking)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	for _, status := range from {
		if b.Status == status {
			apply(b)
			b.UpdatedAt = time.Now()
			return true, nil
		}
	}
	return false, nil
}

func (r *memBookingRepo) MarkCancelled(_ context.Context, id string, c models.Cancellation, refund models.Refund) (bool, error) {
	return r.transition(id, []string{models.BookingStatusScheduled}, func(b *models.Booking) {
		b.Status = models.BookingStatusCancelled
		b.Cancellation = c
		b.Refund = refund
	})
}

func (r *memBookingRepo) MarkCompleted(_ context.Context, id string, payout models.Payout) (bool, error) {
	return r.transition(id, []string{models.BookingStatusScheduled, models.BookingStatusInProgress}, func(b *models.Booking) {
		b.Status = models.BookingStatusCompleted
		b.Payout = payout
	})
}

func (r *memBookingRepo) MarkRefundApplied(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Refund.Refunded {
		return false, nil
	}
	b.Refund.Refunded = true
	return true, nil
}

func (r *memBookingRepo) MarkPayoutApplied(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Payout.Paid {
		return false, nil
	}
	b.Payout.Paid = true
	return true, nil
}

func (r *memBookingRepo) MarkMissed(_ context.Context, id string) (bool, error) {
	return r.transition(id, []string{models.BookingStatusScheduled}, func(b *models.Booking) {
		b.Status = models.BookingStatusMissed
	})
}

func (r *memBookingRepo) MarkInProgress(_ context.Context, id string) (bool, error) {
	return r.transition(id, []string{models.BookingStatusScheduled}, func(b *models.Booking) {
		b.Status = models.BookingStatusInProgress
	})
}

func (r *memBookingRepo) UpdateSchedule(_ context.Context, id string, newStart, newEnd time.Time) (bool, error) {
	return r.transition(id, []string{models.BookingStatusScheduled}, func(b *models.Booking) {
		b.Start = newStart
		b.End = newEnd
	})
}

func (r *memBookingRepo) SetAttendance(_ context.Context, id string, instructor bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if instructor {
		b.Attendance.InstructorJoined = true
		b.Attendance.InstructorJoinedAt = &at
	} else {
		b.Attendance.StudentJoined = true
		b.Attendance.StudentJoinedAt = &at
	}
	return nil
}

func (r *memBookingRepo) SetRoom(_ context.Context, id string, room models.RoomURLs) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		b.Room = room
	}
	return nil
}

func (r *memBookingRepo) EnsureIndexes() error { return nil }

// ── in-memory catalog ──

type memCatalogRepo struct {
	courses  map[string]*models.Course
	enrolled map[string]bool // studentID|courseID
}

func newMemCatalogRepo() *memCatalogRepo {
	return &memCatalogRepo{
		courses:  make(map[string]*models.Course),
		enrolled: make(map[string]bool),
	}
}

func (r *memCatalogRepo) GetCourse(_ context.Context, id string) (*models.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return c, nil
}

func (r *memCatalogRepo) IsEnrolled(_ context.Context, studentID, courseID string) (bool, error) {
	return r.enrolled[studentID+"|"+courseID], nil
}

// ── in-memory credit ledger ──

type memCreditRepo struct {
	mu       sync.Mutex
	balances map[string]int
	debits   []int
	credits  []int

	// creditFailures makes the next N Credit calls fail, for exercising
	// the pending-settlement replay paths.
	creditFailures int
}

func newMemCreditRepo() *memCreditRepo {
	return &memCreditRepo{balances: make(map[string]int)}
}

func (r *memCreditRepo) Debit(_ context.Context, userID string, amount int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[userID] < amount {
		return creditRepo.ErrInsufficientBalance
	}
	r.balances[userID] -= amount
	r.debits = append(r.debits, amount)
	return nil
}

func (r *memCreditRepo) Credit(_ context.Context, userID string, amount int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.creditFailures > 0 {
		r.creditFailures--
		return errors.New("ledger unavailable")
	}
	r.balances[userID] += amount
	r.credits = append(r.credits, amount)
	return nil
}

func (r *memCreditRepo) Balance(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID], nil
}

// ── stub availability service ──

type stubAvailability struct {
	profile models.AvailabilityProfile
}

func (s *stubAvailability) Get(_ context.Context, instructorID, courseID string) (*models.AvailabilityProfile, error) {
	p := s.profile
	p.Instructor = instructorID
	p.CourseID = courseID
	return &p, nil
}

func (s *stubAvailability) Upsert(_ context.Context, p *models.AvailabilityProfile) (*models.AvailabilityProfile, error) {
	return p, nil
}
func (s *stubAvailability) AddRecurringRule(context.Context, string, string, models.RecurringRule) error {
	return nil
}
func (s *stubAvailability) RemoveRecurringRule(context.Context, string, string, models.RecurringRule) error {
	return nil
}
func (s *stubAvailability) AddOverride(context.Context, string, string, models.DateOverride) error {
	return nil
}
func (s *stubAvailability) BlockDate(context.Context, string, string, string, string) error {
	return nil
}
func (s *stubAvailability) AvailableSlots(context.Context, string, string, time.Time, time.Time) ([]scheduling.Slot, error) {
	return nil, nil
}

// ── notification and room stubs ──

type memNotifier struct {
	mu       sync.Mutex
	payloads []models.NotifyPayload
}

func (n *memNotifier) Notify(_ context.Context, p models.NotifyPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, p)
	return nil
}

type memRooms struct{}

func (memRooms) CreateRoom(_ context.Context, b *models.Booking) (models.RoomURLs, error) {
	return models.RoomURLs{
		Instructor: "https://rooms.test/" + b.ID + "/instructor",
		Student:    "https://rooms.test/" + b.ID + "/student",
	}, nil
}
