// File: database/repository/catalog/interface.go
package catalogRepo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"mentora/database"
	"mentora/models"
)

// CourseRepository is the narrow catalog contract the engine consumes:
// resolve a course and answer enrollment checks. The catalog itself is
// owned elsewhere.
type CourseRepository interface {
	GetCourse(ctx context.Context, id string) (*models.Course, error)
	IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

type mongoCatalogRepo struct {
	courseColl     *mongo.Collection
	enrollmentColl *mongo.Collection
}

// NewMongoCatalogRepo constructs a new MongoDB CourseRepository.
func NewMongoCatalogRepo() CourseRepository {
	db := database.MongoClient.Database("mentora")
	return &mongoCatalogRepo{
		courseColl:     db.Collection("courses"),
		enrollmentColl: db.Collection("enrollments"),
	}
}
