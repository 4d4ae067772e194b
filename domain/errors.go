package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missed actor, post or activity lookup.
	ErrNotFound = errors.New("not found")

	// ErrInvalidActivity signals an unsupported or malformed activity type.
	ErrInvalidActivity = errors.New("invalid activity type")

	// ErrNotImplemented marks extension points that must fail loudly instead
	// of silently succeeding.
	ErrNotImplemented = errors.New("not implemented")

	// ErrOutOfRange signals pagination parameters outside valid bounds.
	ErrOutOfRange = errors.New("page out of range")
)

// DeliveryError carries the status and message of a failed inbox delivery.
// A fan-out aggregates into the first branch's DeliveryError.
type DeliveryError struct {
	Status  int
	Message string
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed with status %d: %s", e.Status, e.Message)
}
