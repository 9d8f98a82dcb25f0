package enums

import "fmt"

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusProcessed RefundStatus = "PROCESSED"
	RefundStatusRejected  RefundStatus = "REJECTED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

func (r RefundStatus) String() string {
	return string(r)
}

func (r RefundStatus) IsValid() bool {
	switch r {
	case RefundStatusPending, RefundStatusProcessed, RefundStatusRejected, RefundStatusFailed:
		return true
	}
	return false
}

// IsOpen reports whether the refund still holds part of the order's
// refundable amount.
func (r RefundStatus) IsOpen() bool {
	return r == RefundStatusPending || r == RefundStatusProcessed
}

// OpenRefundStatuses returns the statuses for which IsOpen is true.
func OpenRefundStatuses() []RefundStatus {
	return []RefundStatus{RefundStatusPending, RefundStatusProcessed}
}

func ParseRefundStatus(value string) (RefundStatus, error) {
	r := RefundStatus(value)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid refund status %q", value)
	}
	return r, nil
}
