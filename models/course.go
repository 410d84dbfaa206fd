package models

// Course status values.
const (
	CourseStatusActive   = "active"
	CourseStatusArchived = "archived"
)

// Course is the narrow catalog view the scheduling engine needs: who teaches
// it, what an hour costs in credits, and whether it is open for booking.
type Course struct {
	ID           string  `bson:"id" json:"id"`
	InstructorID string  `bson:"instructor_id" json:"instructorId"`
	PricePerHour float64 `bson:"price_per_hour" json:"pricePerHour"` // credits per hour
	Status       string  `bson:"status" json:"status"`
}

// Enrollment links a student to a course. The engine only consults its
// active flag when a full-course booking is requested.
type Enrollment struct {
	ID        string `bson:"id" json:"id"`
	StudentID string `bson:"student_id" json:"studentId"`
	CourseID  string `bson:"course_id" json:"courseId"`
	Active    bool   `bson:"active" json:"active"`
}
