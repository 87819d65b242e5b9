package calendar

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{FetchStationsFailed, "Failed to load stations"},
		{FetchBookingsFailed, "Failed to load bookings"},
		{UpdateBookingFailed, "Failed to update booking"},
		{ErrorKind("Other"), "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			e := &Error{Kind: tt.kind, Err: errors.New("cause")}
			assert.Equal(t, tt.want, e.Message())
			assert.Equal(t, string(tt.kind)+": cause", e.Error())
		})
	}
}

func TestIsKind(t *testing.T) {
	cause := errors.New("cause")
	wrapped := fmt.Errorf("select: %w", &Error{Kind: FetchBookingsFailed, Err: cause})

	assert.True(t, IsKind(wrapped, FetchBookingsFailed))
	assert.False(t, IsKind(wrapped, UpdateBookingFailed))
	assert.False(t, IsKind(cause, FetchBookingsFailed))
	assert.False(t, IsKind(nil, FetchBookingsFailed))
	assert.ErrorIs(t, wrapped, cause)
}

func TestDraggingEndpoint_Hint(t *testing.T) {
	assert.Equal(t, "Dragging pickup date… Drop on a day tile.", DraggingEndpoint{Kind: EndpointStart}.Hint())
	assert.Equal(t, "Dragging return date… Drop on a day tile.", DraggingEndpoint{Kind: EndpointEnd}.Hint())
}
