package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"mentora/models"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	svc      *DefaultBookingService
	bookings *memBookingRepo
	credits  *memCreditRepo
	catalog  *memCatalogRepo
	notifier *memNotifier
}

func setupTestBookingService(balance int) *testEnv {
	bookings := newMemBookingRepo()
	credits := newMemCreditRepo()
	catalog := newMemCatalogRepo()
	notifier := &memNotifier{}

	catalog.courses["course-1"] = &models.Course{
		ID:           "course-1",
		InstructorID: "ins-1",
		PricePerHour: 2,
		Status:       models.CourseStatusActive,
	}
	catalog.enrolled["stu-1|course-1"] = true
	credits.balances["stu-1"] = balance

	avail := &stubAvailability{
		profile: models.AvailabilityProfile{
			ID:                     "prof-1",
			Timezone:               "UTC",
			MinAdvanceBookingHours: 2,
			MaxAdvanceBookingDays:  30,
			SlotDurationHours:      1,
			Active:                 true,
		},
	}

	svc := NewDefaultBookingService(
		bookings, catalog, credits, avail,
		memRooms{}, notifier,
		5, 5*time.Second,
		zap.NewNop(),
	)
	svc.now = func() time.Time { return testNow }

	return &testEnv{svc: svc, bookings: bookings, credits: credits, catalog: catalog, notifier: notifier}
}

func fullCourseRequest(start time.Time, hours float64) CreateBookingRequest {
	return CreateBookingRequest{
		CourseID:      "course-1",
		StudentID:     "stu-1",
		Start:         start,
		DurationHours: hours,
		Kind:          models.BookingKindFullCourse,
	}
}

// ── Create ──

func TestCreateBooking(t *testing.T) {
	env := setupTestBookingService(10)

	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(48*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.Status != models.BookingStatusScheduled {
		t.Errorf("status = %s, want scheduled", b.Status)
	}
	if b.CreditsSpent != 2 {
		t.Errorf("creditsSpent = %d, want 2", b.CreditsSpent)
	}
	if got := env.credits.balances["stu-1"]; got != 8 {
		t.Errorf("balance = %d, want 8", got)
	}

	stored, err := env.bookings.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("booking not persisted: %v", err)
	}
	if stored.Room.Student == "" || stored.Room.Instructor == "" {
		t.Error("room URLs were not stored on the booking")
	}
	if len(env.notifier.payloads) != 2 {
		t.Errorf("expected 2 creation notifications, got %d", len(env.notifier.payloads))
	}
}

func TestCreateBookingFractionalDurationRoundsUp(t *testing.T) {
	env := setupTestBookingService(10)

	// 1.5h at 2 credits/hour is 3 credits exactly; 0.5h rounds 1.0 up to 1.
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(48*time.Hour), 1.5))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if b.CreditsSpent != 3 {
		t.Errorf("creditsSpent = %d, want 3", b.CreditsSpent)
	}
}

func TestCreateBookingInsufficientCredits(t *testing.T) {
	env := setupTestBookingService(3)

	// 2h at 2 credits/hour needs 4 credits; the student has 3.
	_, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(48*time.Hour), 2))
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if len(env.bookings.bookings) != 0 {
		t.Error("no booking may be persisted on a failed creation")
	}
	if len(env.credits.debits) != 0 {
		t.Error("no debit may be applied on a failed creation")
	}
}

func TestCreateBookingLeadTimeViolation(t *testing.T) {
	env := setupTestBookingService(10)

	_, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(1*time.Hour), 1))
	if !errors.Is(err, ErrLeadTimeViolation) {
		t.Fatalf("expected ErrLeadTimeViolation, got %v", err)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	env := setupTestBookingService(10)
	ctx := context.Background()

	if _, err := env.svc.Create(ctx, fullCourseRequest(testNow.Add(-1*time.Hour), 1)); !errors.Is(err, ErrValidation) {
		t.Errorf("past start: expected ErrValidation, got %v", err)
	}
	if _, err := env.svc.Create(ctx, fullCourseRequest(testNow.Add(48*time.Hour), 0.25)); !errors.Is(err, ErrValidation) {
		t.Errorf("too short: expected ErrValidation, got %v", err)
	}
	if _, err := env.svc.Create(ctx, fullCourseRequest(testNow.Add(48*time.Hour), 5)); !errors.Is(err, ErrValidation) {
		t.Errorf("too long: expected ErrValidation, got %v", err)
	}

	req := fullCourseRequest(testNow.Add(48*time.Hour), 1)
	req.Kind = "subscription"
	if _, err := env.svc.Create(ctx, req); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown kind: expected ErrValidation, got %v", err)
	}
}

func TestCreateBookingCourseChecks(t *testing.T) {
	env := setupTestBookingService(10)
	ctx := context.Background()

	req := fullCourseRequest(testNow.Add(48*time.Hour), 1)
	req.CourseID = "missing"
	if _, err := env.svc.Create(ctx, req); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing course: expected ErrNotFound, got %v", err)
	}

	env.catalog.courses["course-1"].Status = models.CourseStatusArchived
	if _, err := env.svc.Create(ctx, fullCourseRequest(testNow.Add(48*time.Hour), 1)); !errors.Is(err, ErrCourseInactive) {
		t.Errorf("archived course: expected ErrCourseInactive, got %v", err)
	}
}

func TestCreateBookingEnrollmentRequired(t *testing.T) {
	env := setupTestBookingService(10)
	env.catalog.enrolled["stu-1|course-1"] = false

	_, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(48*time.Hour), 1))
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("expected ErrNotEnrolled, got %v", err)
	}

	// A single paid session does not need an enrollment.
	req := fullCourseRequest(testNow.Add(48*time.Hour), 1)
	req.Kind = models.BookingKindSingleSession
	req.FixedPrice = 3
	b, err := env.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("single session Create failed: %v", err)
	}
	if b.CreditsSpent != 3 {
		t.Errorf("creditsSpent = %d, want the fixed price 3", b.CreditsSpent)
	}
}

func TestCreateBookingConflict(t *testing.T) {
	env := setupTestBookingService(10)
	start := testNow.Add(48 * time.Hour)

	if _, err := env.svc.Create(context.Background(), fullCourseRequest(start, 1)); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// A second booking overlapping the first by half an hour must be rejected.
	_, err := env.svc.Create(context.Background(), fullCourseRequest(start.Add(30*time.Minute), 1))
	if !errors.Is(err, ErrSlotUnavailable) {
		t.Fatalf("expected ErrSlotUnavailable, got %v", err)
	}
}

func TestCreateBookingDailyLimit(t *testing.T) {
	env := setupTestBookingService(100)
	day := testNow.Add(48 * time.Hour)

	for i := 0; i < 5; i++ {
		start := day.Add(time.Duration(i) * 2 * time.Hour)
		if _, err := env.svc.Create(context.Background(), fullCourseRequest(start, 1)); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}

	_, err := env.svc.Create(context.Background(), fullCourseRequest(day.Add(11*time.Hour), 1))
	if !errors.Is(err, ErrDailyLimitExceeded) {
		t.Fatalf("expected ErrDailyLimitExceeded, got %v", err)
	}
}

func TestCreateBookingConcurrentSameInterval(t *testing.T) {
	env := setupTestBookingService(100)
	start := testNow.Add(48 * time.Hour)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Create(context.Background(), fullCourseRequest(start, 1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflict int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSlotUnavailable):
			conflict++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflict != 1 {
		t.Fatalf("want exactly one success and one conflict, got %d/%d", ok, conflict)
	}
	if len(env.credits.debits) != 1 {
		t.Errorf("exactly one debit expected, got %d", len(env.credits.debits))
	}
}

// ── Cancel ──

func TestCancelShortNoticeNoRefund(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(10*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	balanceAfterCreate := env.credits.balances["stu-1"]

	cancelled, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", "conflict came up")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != models.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.Refund.Refunded || cancelled.Refund.Amount != 0 {
		t.Errorf("10h notice must refund nothing, got %+v", cancelled.Refund)
	}
	if env.credits.balances["stu-1"] != balanceAfterCreate {
		t.Error("no credit movement expected on a zero refund")
	}
}

func TestCancelFullNotice(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cancelled, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Refund.Amount != b.CreditsSpent {
		t.Errorf("refund = %d, want full %d", cancelled.Refund.Amount, b.CreditsSpent)
	}
	if env.credits.balances["stu-1"] != 10 {
		t.Errorf("balance = %d, want restored 10", env.credits.balances["stu-1"])
	}
}

func TestCancelHalfNoticeFloors(t *testing.T) {
	env := setupTestBookingService(10)
	// 1.5h at 2/hour is 3 credits; half refund floors to 1.
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(18*time.Hour), 1.5))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cancelled, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", "")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Refund.Amount != 1 {
		t.Errorf("refund = %d, want floored 1", cancelled.Refund.Amount)
	}
}

func TestCancelByInstructorAlwaysFullRefund(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(3*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	cancelled, err := env.svc.Cancel(context.Background(), b.ID, "ins-1", "instructor is ill")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Refund.Amount != b.CreditsSpent {
		t.Errorf("instructor cancel refund = %d, want full %d", cancelled.Refund.Amount, b.CreditsSpent)
	}
	if env.credits.balances["stu-1"] != 10 {
		t.Errorf("balance = %d, want restored 10", env.credits.balances["stu-1"])
	}
}

func TestCancelIdempotent(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", ""); err != nil {
		t.Fatalf("first Cancel failed: %v", err)
	}
	creditsAfterFirst := len(env.credits.credits)

	again, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", "")
	if err != nil {
		t.Fatalf("second Cancel must be a no-op, got %v", err)
	}
	if again.Status != models.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", again.Status)
	}
	if len(env.credits.credits) != creditsAfterFirst {
		t.Error("second Cancel must not move credits again")
	}
}

func TestCancelReplaysUnappliedRefund(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	env.credits.creditFailures = 1
	if _, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", ""); !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService on ledger failure, got %v", err)
	}

	// The cancellation is durable but the refund stayed pending: no
	// credit reached the student and the record does not claim it did.
	stored, err := env.bookings.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != models.BookingStatusCancelled {
		t.Errorf("status = %s, want cancelled", stored.Status)
	}
	if stored.Refund.Refunded {
		t.Error("refund marked applied although the credit never landed")
	}
	if stored.Refund.Amount != b.CreditsSpent {
		t.Errorf("pending refund amount = %d, want %d", stored.Refund.Amount, b.CreditsSpent)
	}
	if env.credits.balances["stu-1"] != 8 {
		t.Errorf("balance = %d, want unchanged 8", env.credits.balances["stu-1"])
	}

	// Re-invoking Cancel replays the pending credit.
	again, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", "")
	if err != nil {
		t.Fatalf("retry Cancel failed: %v", err)
	}
	if !again.Refund.Refunded {
		t.Error("retry must mark the refund applied")
	}
	if env.credits.balances["stu-1"] != 10 {
		t.Errorf("balance = %d, want restored 10", env.credits.balances["stu-1"])
	}

	// Once applied, further re-invokes stay no-ops.
	if _, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", ""); err != nil {
		t.Fatalf("third Cancel failed: %v", err)
	}
	if len(env.credits.credits) != 1 {
		t.Errorf("refund credited %d times, want exactly once", len(env.credits.credits))
	}
}

func TestCompleteReplaysUnappliedPayout(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	env.credits.creditFailures = 1
	if _, err := env.svc.Complete(context.Background(), b.ID, "ins-1"); !errors.Is(err, ErrExternalService) {
		t.Fatalf("expected ErrExternalService on ledger failure, got %v", err)
	}

	stored, err := env.bookings.GetByID(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Status != models.BookingStatusCompleted {
		t.Errorf("status = %s, want completed", stored.Status)
	}
	if stored.Payout.Paid {
		t.Error("payout marked paid although the credit never landed")
	}
	if env.credits.balances["ins-1"] != 0 {
		t.Errorf("instructor balance = %d, want unchanged 0", env.credits.balances["ins-1"])
	}

	// Re-invoking Complete replays the pending payout.
	again, err := env.svc.Complete(context.Background(), b.ID, "ins-1")
	if err != nil {
		t.Fatalf("retry Complete failed: %v", err)
	}
	if !again.Payout.Paid {
		t.Error("retry must mark the payout paid")
	}
	if env.credits.balances["ins-1"] != b.CreditsSpent {
		t.Errorf("instructor balance = %d, want %d", env.credits.balances["ins-1"], b.CreditsSpent)
	}

	// A paid-out completion rejects further completes.
	if _, err := env.svc.Complete(context.Background(), b.ID, "ins-1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState after payout, got %v", err)
	}
	if len(env.credits.credits) != 1 {
		t.Errorf("payout credited %d times, want exactly once", len(env.credits.credits))
	}
}

func TestCancelPermissionAndState(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := env.svc.Cancel(context.Background(), b.ID, "someone-else", ""); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}

	if _, err := env.svc.Complete(context.Background(), b.ID, "ins-1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := env.svc.Cancel(context.Background(), b.ID, "stu-1", ""); !errors.Is(err, ErrInvalidState) {
		t.Errorf("cancelling a completed booking: expected ErrInvalidState, got %v", err)
	}
}

// ── Complete ──

func TestCompletePaysInstructor(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	done, err := env.svc.Complete(context.Background(), b.ID, "ins-1")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if done.Status != models.BookingStatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if env.credits.balances["ins-1"] != b.CreditsSpent {
		t.Errorf("instructor balance = %d, want %d", env.credits.balances["ins-1"], b.CreditsSpent)
	}
}

func TestCompleteOnlyInstructor(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := env.svc.Complete(context.Background(), b.ID, "stu-1"); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", err)
	}

	if _, err := env.svc.Complete(context.Background(), b.ID, "ins-1"); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := env.svc.Complete(context.Background(), b.ID, "ins-1"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("double completion: expected ErrInvalidState, got %v", err)
	}
}

// ── Attendance ──

func TestMarkJoinedStartsSession(t *testing.T) {
	env := setupTestBookingService(10)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	joined, err := env.svc.MarkJoined(context.Background(), b.ID, "stu-1")
	if err != nil {
		t.Fatalf("MarkJoined failed: %v", err)
	}
	if joined.Status != models.BookingStatusScheduled {
		t.Errorf("one party joined: status = %s, want still scheduled", joined.Status)
	}

	joined, err = env.svc.MarkJoined(context.Background(), b.ID, "ins-1")
	if err != nil {
		t.Fatalf("MarkJoined failed: %v", err)
	}
	if joined.Status != models.BookingStatusInProgress {
		t.Errorf("both joined: status = %s, want in_progress", joined.Status)
	}

	// An in-progress session can still be completed.
	if _, err := env.svc.Complete(context.Background(), b.ID, "ins-1"); err != nil {
		t.Fatalf("Complete from in_progress failed: %v", err)
	}
}

// ── Reschedule ──

func TestReschedule(t *testing.T) {
	env := setupTestBookingService(100)
	b, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(30*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	balance := env.credits.balances["stu-1"]

	newStart := testNow.Add(72 * time.Hour)
	moved, err := env.svc.Reschedule(context.Background(), b.ID, "stu-1", newStart)
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if !moved.Start.Equal(newStart) {
		t.Errorf("start = %v, want %v", moved.Start, newStart)
	}
	if env.credits.balances["stu-1"] != balance {
		t.Error("rescheduling must not move credits")
	}

	// Rescheduling onto another active booking is rejected.
	other, err := env.svc.Create(context.Background(), fullCourseRequest(testNow.Add(96*time.Hour), 1))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := env.svc.Reschedule(context.Background(), b.ID, "stu-1", other.Start); !errors.Is(err, ErrSlotUnavailable) {
		t.Errorf("expected ErrSlotUnavailable, got %v", err)
	}

	// Inside the lead window is rejected too.
	if _, err := env.svc.Reschedule(context.Background(), b.ID, "stu-1", testNow.Add(30*time.Minute)); !errors.Is(err, ErrLeadTimeViolation) {
		t.Errorf("expected ErrLeadTimeViolation, got %v", err)
	}
}
