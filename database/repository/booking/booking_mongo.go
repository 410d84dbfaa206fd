// File: database/repository/booking/booking_mongo.go
package bookingRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentora/models"
)

func (r *mongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepo) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var booking models.Booking
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&booking); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", id, err)
	}
	return &booking, nil
}

func (r *mongoBookingRepo) FindActiveByInstructor(ctx context.Context, instructorID string, from, to time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"instructor_id": instructorID,
		"status":        bson.M{"$in": []string{models.BookingStatusScheduled, models.BookingStatusInProgress}},
		"start":         bson.M{"$lt": to},
		"end":           bson.M{"$gt": from},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepo) FindUpcomingByStudent(ctx context.Context, studentID string, from time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"student_id": studentID,
		"status":     bson.M{"$in": []string{models.BookingStatusScheduled, models.BookingStatusInProgress}},
		"end":        bson.M{"$gt": from},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepo) FindUpcomingByInstructor(ctx context.Context, instructorID string, from time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"instructor_id": instructorID,
		"status":        bson.M{"$in": []string{models.BookingStatusScheduled, models.BookingStatusInProgress}},
		"end":           bson.M{"$gt": from},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepo) CountByStudentBetween(ctx context.Context, studentID string, from, to time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"student_id": studentID,
		"status":     bson.M{"$ne": models.BookingStatusCancelled},
		"start":      bson.M{"$gte": from, "$lt": to},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting student bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepo) FindScheduledStartingBefore(ctx context.Context, t time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status": models.BookingStatusScheduled,
		"start":  bson.M{"$lt": t},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepo) FindScheduledStartingBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	filter := bson.M{
		"status": models.BookingStatusScheduled,
		"start":  bson.M{"$gte": from, "$lt": to},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepo) findSorted(ctx context.Context, filter bson.M) ([]models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}

// transition applies a conditional status change. The filter requires the
// record to still be in one of the expected prior statuses, so a lost race
// surfaces as applied=false rather than a clobbered write.
func (r *mongoBookingRepo) transition(ctx context.Context, id string, from []string, set bson.M) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set["updated_at"] = time.Now()
	filter := bson.M{"id": id, "status": bson.M{"$in": from}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("error transitioning booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoBookingRepo) MarkCancelled(ctx context.Context, id string, cancellation models.Cancellation, refund models.Refund) (bool, error) {
	return r.transition(ctx, id, []string{models.BookingStatusScheduled}, bson.M{
		"status":       models.BookingStatusCancelled,
		"cancellation": cancellation,
		"refund":       refund,
	})
}

func (r *mongoBookingRepo) MarkCompleted(ctx context.Context, id string, payout models.Payout) (bool, error) {
	return r.transition(ctx, id,
		[]string{models.BookingStatusScheduled, models.BookingStatusInProgress},
		bson.M{
			"status": models.BookingStatusCompleted,
			"payout": payout,
		})
}

func (r *mongoBookingRepo) MarkMissed(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, []string{models.BookingStatusScheduled},
		bson.M{"status": models.BookingStatusMissed})
}

func (r *mongoBookingRepo) MarkInProgress(ctx context.Context, id string) (bool, error) {
	return r.transition(ctx, id, []string{models.BookingStatusScheduled},
		bson.M{"status": models.BookingStatusInProgress})
}

func (r *mongoBookingRepo) UpdateSchedule(ctx context.Context, id string, newStart, newEnd time.Time) (bool, error) {
	return r.transition(ctx, id, []string{models.BookingStatusScheduled}, bson.M{
		"start": newStart,
		"end":   newEnd,
	})
}

// MarkRefundApplied flips the refund's applied flag. The filter requires
// the flag to still be unset, so concurrent replays apply at most once.
func (r *mongoBookingRepo) MarkRefundApplied(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "refund.refunded": false}
	update := bson.M{"$set": bson.M{"refund.refunded": true, "updated_at": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error marking refund applied on booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

// MarkPayoutApplied flips the payout's paid flag, same contract as
// MarkRefundApplied.
func (r *mongoBookingRepo) MarkPayoutApplied(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "payout.paid": false}
	update := bson.M{"$set": bson.M{"payout.paid": true, "updated_at": time.Now()}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("error marking payout applied on booking %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *mongoBookingRepo) SetAttendance(ctx context.Context, id string, instructor bool, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{"updated_at": time.Now()}
	if instructor {
		set["attendance.instructor_joined"] = true
		set["attendance.instructor_joined_at"] = at
	} else {
		set["attendance.student_joined"] = true
		set["attendance.student_joined_at"] = at
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error setting attendance on booking %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoBookingRepo) SetRoom(ctx context.Context, id string, room models.RoomURLs) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{"room": room, "updated_at": time.Now()}}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update); err != nil {
		return fmt.Errorf("error setting room on booking %s: %w", id, err)
	}
	return nil
}
