package models

// Station is a pickup/return location together with its bookings.
type Station struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Bookings []Booking `json:"bookings" yaml:"bookings"`
}

// Clone returns a deep copy so callers can't alias a shared bookings slice.
func (s Station) Clone() Station {
	if s.Bookings != nil {
		s.Bookings = append([]Booking(nil), s.Bookings...)
	}
	return s
}

// FindBooking returns the booking with id, if the station holds it.
func (s Station) FindBooking(id string) (Booking, bool) {
	for _, b := range s.Bookings {
		if b.ID == id {
			return b, true
		}
	}
	return Booking{}, false
}
