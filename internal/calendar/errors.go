package calendar

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures the calendar surfaces to the user.
type ErrorKind string

const (
	FetchStationsFailed ErrorKind = "FetchStationsFailed"
	FetchBookingsFailed ErrorKind = "FetchBookingsFailed"
	UpdateBookingFailed ErrorKind = "UpdateBookingFailed"
)

// Error is a collaborator failure tagged with its kind.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the user-facing text for the error.
func (e *Error) Message() string {
	switch e.Kind {
	case FetchStationsFailed:
		return "Failed to load stations"
	case FetchBookingsFailed:
		return "Failed to load bookings"
	case UpdateBookingFailed:
		return "Failed to update booking"
	default:
		return "Something went wrong"
	}
}

// IsKind reports whether err carries a calendar Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
