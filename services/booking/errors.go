package booking

import "fmt"

// ServiceError is a business-rule failure returned synchronously to the
// caller. These are never retried automatically.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

var (
	ErrNotFound            = &ServiceError{Code: "notFound", Message: "course, booking, or profile not found"}
	ErrValidation          = &ServiceError{Code: "validationError", Message: "invalid booking request"}
	ErrInsufficientCredits = &ServiceError{Code: "insufficientCredits", Message: "student credit balance is too low"}
	ErrSlotUnavailable     = &ServiceError{Code: "slotUnavailable", Message: "requested interval conflicts with an existing session"}
	ErrLeadTimeViolation   = &ServiceError{Code: "leadTimeViolation", Message: "session start is inside the minimum advance window"}
	ErrDailyLimitExceeded  = &ServiceError{Code: "dailyLimitExceeded", Message: "daily booking limit reached for this student"}
	ErrPermissionDenied    = &ServiceError{Code: "permissionDenied", Message: "requester is not a party to this booking"}
	ErrInvalidState        = &ServiceError{Code: "invalidState", Message: "booking is in a terminal state"}
	ErrCourseInactive      = &ServiceError{Code: "courseInactive", Message: "course is not open for booking"}
	ErrNotEnrolled         = &ServiceError{Code: "notEnrolled", Message: "student has no active enrollment for this course"}
	ErrExternalService     = &ServiceError{Code: "externalServiceError", Message: "external collaborator failed"}
)
