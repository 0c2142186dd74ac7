package quota

import (
	"errors"
	"fmt"
)

var (
	ErrUndefinedLimit  = errors.New("quota: limit not defined for plan and category")
	ErrInvalidTable    = errors.New("quota: invalid plan table")
	ErrUnknownCategory = errors.New("quota: unknown usage category")
	ErrInvalidWeight   = errors.New("quota: usage weight must be positive")
	ErrLimitExceeded   = errors.New("quota: limit exceeded")
	// ErrPersistence wraps storage failures. The gate fails closed on it.
	ErrPersistence = errors.New("quota: usage storage unavailable")
	ErrNoCounter   = errors.New("quota: no counter registered for capacity category")
)

// LimitError describes a denied request. It matches ErrLimitExceeded.
type LimitError struct {
	Plan     PlanType
	Category Category
	Limit    Limit
	Current  int64
}

func (e *LimitError) Error() string {
	if e.Category.Capacity() {
		return fmt.Sprintf("your %s plan allows %s %s", e.Plan, e.Limit, e.Category)
	}
	return fmt.Sprintf("monthly limit reached for %s (%s). Upgrade your plan to continue.", e.Category, e.Limit)
}

func (e *LimitError) Is(target error) bool {
	return target == ErrLimitExceeded
}
