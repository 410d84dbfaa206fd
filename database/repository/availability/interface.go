// File: database/repository/availability/interface.go
package availabilityRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"mentora/database"
	"mentora/models"
)

// AvailabilityRepository owns persistence of availability profiles.
// Get returns mongo.ErrNoDocuments when no profile exists for the pair;
// the service layer is responsible for the deterministic default.
type AvailabilityRepository interface {
	Get(ctx context.Context, instructorID, courseID string) (*models.AvailabilityProfile, error)
	Upsert(ctx context.Context, profile *models.AvailabilityProfile) error
	AddRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error
	RemoveRule(ctx context.Context, instructorID, courseID string, rule models.RecurringRule) error
	AddOverride(ctx context.Context, instructorID, courseID string, override models.DateOverride) error
	EnsureIndexes() error
}

type mongoAvailabilityRepo struct {
	coll *mongo.Collection
}

// NewMongoAvailabilityRepo constructs a new MongoDB AvailabilityRepository.
func NewMongoAvailabilityRepo() AvailabilityRepository {
	db := database.MongoClient.Database("mentora")
	return &mongoAvailabilityRepo{
		coll: db.Collection("availability_profiles"),
	}
}
