package enums

import "fmt"

// OutboxDLQErrorReason records why the publisher dead-lettered an event.
type OutboxDLQErrorReason string

const (
	// OutboxDLQReasonMaxAttempts: every retry failed.
	OutboxDLQReasonMaxAttempts OutboxDLQErrorReason = "max_attempts"
	// OutboxDLQReasonNonRetryable: the event can never publish (unknown type,
	// bad payload, aggregate mismatch).
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

// OutboxDLQErrorReasons lists every reason in a stable order.
func OutboxDLQErrorReasons() []OutboxDLQErrorReason {
	return []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}
}

func (r OutboxDLQErrorReason) IsValid() bool {
	switch r {
	case OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable:
		return true
	}
	return false
}

func ParseOutboxDLQErrorReason(v string) (OutboxDLQErrorReason, error) {
	r := OutboxDLQErrorReason(v)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid outbox dlq reason %q", v)
	}
	return r, nil
}
