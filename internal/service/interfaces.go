package service

import (
	"context"

	"github.com/EpicMandM/station-calendar/internal/models"
	"google.golang.org/api/calendar/v3"
)

// BookingAPI is the remote station/booking collaborator. Every call may be slow;
// callers pass a context to bound it.
type BookingAPI interface {
	// SearchStations returns stations whose name contains query
	// (trimmed, case-insensitive). A blank query returns every station.
	SearchStations(ctx context.Context, query string) ([]models.Station, error)
	// GetBookingsByStation returns the station's bookings, or none for an unknown station.
	GetBookingsByStation(ctx context.Context, stationID string) ([]models.Booking, error)
	// GetBookingDetails returns the first booking with bookingID across all stations,
	// or nil if there is none.
	GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error)
	// UpdateBookingDates records the change and returns current with change merged in.
	UpdateBookingDates(ctx context.Context, bookingID string, change models.DateChange, current models.Booking) (models.Booking, error)
}

// CalendarClient abstracts Google Calendar operations for testability.
type CalendarClient interface {
	ListEvents(ctx context.Context, timeMin, timeMax string) ([]*calendar.Event, error)
	ImportEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error)
}
