// File: database/repository/availability/availability_mongo.go
package availabilityRepo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mentora/models"
)

func (r *mongoAvailabilityRepo) Get(ctx context.Context, instructorID, courseID string) (*models.AvailabilityProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var profile models.AvailabilityProfile
	filter := bson.M{"instructor_id": instructorID, "course_id": courseID}
	if err := r.coll.FindOne(ctx, filter).Decode(&profile); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching availability profile for instructor %s: %w", instructorID, err)
	}
	return &profile, nil
}

// Upsert creates or updates the profile in one atomic operation keyed on
// the (instructor, course scope) uniqueness invariant.
func (r *mongoAvailabilityRepo) Upsert(ctx context.Context, profile *models.AvailabilityProfile) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	filter := bson.M{"instructor_id": profile.Instructor, "course_id": profile.CourseID}
	update := bson.M{
		"$set": bson.M{
			"timezone":                  profile.Timezone,
			"rules":                     profile.Rules,
			"overrides":                 profile.Overrides,
			"min_advance_booking_hours": profile.MinAdvanceBookingHours,
			"max_advance_booking_days":  profile.MaxAdvanceBookingDays,
			"slot_duration_hours":       profile.SlotDurationHours,
			"buffer_minutes":            profile.BufferMinutes,
			"active":                    profile.Active,
			"updated_at":                now,
		},
		"$setOnInsert": bson.M{
			"id":            uuid.New().String(),
			"instructor_id": profile.Instructor,
			"course_id":     profile.CourseID,
			"created_at":    now,
		},
	}
	if _, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("error upserting availability profile: %w", err)
	}
	return nil
}

func (r *mongoAvailabilityRepo) AddRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"instructor_id": instructorID, "course_id": courseID}
	update := bson.M{
		"$push": bson.M{"rules": rule},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error adding recurring rule: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// RemoveRule removes every rule matching the given weekday and window.
func (r *mongoAvailabilityRepo) RemoveRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"instructor_id": instructorID, "course_id": courseID}
	update := bson.M{
		"$pull": bson.M{"rules": bson.M{
			"weekday": rule.Weekday,
			"start":   rule.Start,
			"end":     rule.End,
		}},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("error removing recurring rule: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// AddOverride replaces any existing override for the same date, keeping
// the one-override-per-date precedence rule intact.
func (r *mongoAvailabilityRepo) AddOverride(ctx context.Context, instructorID, courseID string, override models.DateOverride) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"instructor_id": instructorID, "course_id": courseID}
	pull := bson.M{
		"$pull": bson.M{"overrides": bson.M{"date": override.Date}},
	}
	if _, err := r.coll.UpdateOne(ctx, filter, pull); err != nil {
		return fmt.Errorf("error clearing existing override: %w", err)
	}

	push := bson.M{
		"$push": bson.M{"overrides": override},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, push)
	if err != nil {
		return fmt.Errorf("error adding override: %w", err)
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
