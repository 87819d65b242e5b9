package models

import "github.com/EpicMandM/station-calendar/internal/dates"

// Booking is a rental with a pickup (start) and return (end) day.
type Booking struct {
	ID                    string    `json:"id" yaml:"id"`
	CustomerName          string    `json:"customerName" yaml:"customerName"`
	StartDate             dates.Key `json:"startDate" yaml:"startDate"`
	EndDate               dates.Key `json:"endDate" yaml:"endDate"`
	PickupReturnStationID string    `json:"pickupReturnStationId" yaml:"pickupReturnStationId"`
}

// DateChange is a partial update of a booking's endpoints. Nil fields are left as they are.
type DateChange struct {
	StartDate *dates.Key `json:"startDate,omitempty"`
	EndDate   *dates.Key `json:"endDate,omitempty"`
}

// Apply returns b with the non-nil fields of c merged in.
func (c DateChange) Apply(b Booking) Booking {
	if c.StartDate != nil {
		b.StartDate = *c.StartDate
	}
	if c.EndDate != nil {
		b.EndDate = *c.EndDate
	}
	return b
}

// IsEmpty reports whether c changes nothing.
func (c DateChange) IsEmpty() bool {
	return c.StartDate == nil && c.EndDate == nil
}

// DayBucket groups the bookings picked up and returned on one day.
type DayBucket struct {
	Day     dates.Key
	Pickups []Booking
	Returns []Booking
}

// Empty reports whether nothing happens on the day.
func (b DayBucket) Empty() bool {
	return len(b.Pickups) == 0 && len(b.Returns) == 0
}
