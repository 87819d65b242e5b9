package ui

import (
	"fmt"
	"strings"
)

// Page identifies which screen a Route shows.
type Page int

const (
	PageCalendar Page = iota
	PageDetail
)

// Route is a parsed location: "/" for the calendar, "/booking/:id" for a detail page.
type Route struct {
	Page      Page
	BookingID string
}

func CalendarRoute() Route {
	return Route{Page: PageCalendar}
}

func DetailRoute(bookingID string) Route {
	return Route{Page: PageDetail, BookingID: bookingID}
}

// ParseRoute maps a path onto a Route.
func ParseRoute(path string) (Route, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return CalendarRoute(), nil
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 2 && parts[0] == "booking" && parts[1] != "" {
		return DetailRoute(parts[1]), nil
	}
	return Route{}, fmt.Errorf("unknown route %q", path)
}

func (r Route) Path() string {
	if r.Page == PageDetail {
		return "/booking/" + r.BookingID
	}
	return "/"
}
