package scheduling

// Cancellation notice thresholds, in hours before the session start.
const (
	fullRefundNoticeHours = 24
	halfRefundNoticeHours = 12
)

// RefundAmount computes how many credits a cancellation returns to the
// student. Instructor-initiated cancellations always refund in full;
// otherwise the refund degrades with shrinking notice: 100% at 24h or
// more, 50% (floored to whole credits) at 12h, nothing below that.
func RefundAmount(creditsSpent int, hoursUntilStart float64, initiatedByInstructor bool) int {
	switch {
	case initiatedByInstructor:
		return creditsSpent
	case hoursUntilStart >= fullRefundNoticeHours:
		return creditsSpent
	case hoursUntilStart >= halfRefundNoticeHours:
		return creditsSpent / 2
	default:
		return 0
	}
}
