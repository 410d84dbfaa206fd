// File: database/repository/catalog/catalog_mongo.go
package catalogRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"mentora/models"
)

func (r *mongoCatalogRepo) GetCourse(ctx context.Context, id string) (*models.Course, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var course models.Course
	if err := r.courseColl.FindOne(ctx, bson.M{"id": id}).Decode(&course); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, err
		}
		return nil, fmt.Errorf("error fetching course %s: %w", id, err)
	}
	return &course, nil
}

func (r *mongoCatalogRepo) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"student_id": studentID, "course_id": courseID, "active": true}
	count, err := r.enrollmentColl.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("error checking enrollment: %w", err)
	}
	return count > 0, nil
}
