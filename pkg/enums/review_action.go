package enums

import "fmt"

// ReviewAction is an admin decision on a payout or refund request.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "APPROVE"
	ReviewActionReject  ReviewAction = "REJECT"
)

var validReviewActions = []ReviewAction{
	ReviewActionApprove,
	ReviewActionReject,
}

// String implements fmt.Stringer.
func (r ReviewAction) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReviewAction.
func (r ReviewAction) IsValid() bool {
	for _, candidate := range validReviewActions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReviewAction converts raw input into a ReviewAction.
func ParseReviewAction(value string) (ReviewAction, error) {
	for _, candidate := range validReviewActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid review action %q", value)
}
