package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/models"
)

// Detail is a booking together with the name of its pickup/return station.
type Detail struct {
	Booking     models.Booking
	StationName string
	Duration    int
}

// DurationLabel renders the rental length, e.g. "1 day" or "5 days".
func (d Detail) DurationLabel() string {
	if d.Duration == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", d.Duration)
}

// LoadDetail fetches a booking and resolves its station name.
// It returns nil, nil when no booking has the id.
func (a *App) LoadDetail(ctx context.Context, bookingID string) (*Detail, error) {
	if a.api == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	b, err := a.api.GetBookingDetails(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load booking %s: %w", bookingID, err)
	}
	if b == nil {
		a.logger.Info("Booking not found", logger.Booking(bookingID), logger.Status("not_found"))
		return nil, nil
	}

	d := &Detail{
		Booking:     *b,
		StationName: "Station ID: " + b.PickupReturnStationID,
		Duration:    dates.CalculateDuration(b.StartDate, b.EndDate),
	}
	stations, err := a.api.SearchStations(ctx, "")
	if err != nil {
		a.logger.Warn("Station lookup failed, showing id", logger.Booking(bookingID), logger.Error(err))
		return d, nil
	}
	for _, s := range stations {
		if s.ID == b.PickupReturnStationID {
			d.StationName = s.Name
			break
		}
	}
	return d, nil
}

// PrintDetail writes the booking detail table to the app's output.
func (a *App) PrintDetail(ctx context.Context, bookingID string) error {
	d, err := a.LoadDetail(ctx, bookingID)
	if err != nil {
		return err
	}
	if d == nil {
		_, err := fmt.Fprintln(a.output, "Booking not found.")
		return err
	}

	w := tabwriter.NewWriter(a.output, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Booking #%s\n\n", d.Booking.ID)
	_, _ = fmt.Fprintf(w, "Customer\t%s\n", d.Booking.CustomerName)
	_, _ = fmt.Fprintf(w, "Booking ID\t%s\n", d.Booking.ID)
	_, _ = fmt.Fprintf(w, "Start date\t%s\n", dates.FormatLong(d.Booking.StartDate))
	_, _ = fmt.Fprintf(w, "End date\t%s\n", dates.FormatLong(d.Booking.EndDate))
	_, _ = fmt.Fprintf(w, "Duration\t%s\n", d.DurationLabel())
	_, _ = fmt.Fprintf(w, "Pickup & Return Station\t%s\n", d.StationName)
	return w.Flush()
}

// PrintWeek writes the station's pickups and returns for the week containing day.
func (a *App) PrintWeek(ctx context.Context, ref string, day dates.Key) error {
	ctrl, err := a.LoadWeek(ctx, ref, day)
	if err != nil {
		return err
	}
	defer ctrl.Close()
	return a.printWeek(ctrl)
}

func (a *App) printWeek(ctrl *calendar.Controller) error {
	w := tabwriter.NewWriter(a.output, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "%s\t%s\n\n", ctrl.StationLabel(), dates.FormatRange(ctrl.VisibleDays()))
	_, _ = fmt.Fprintln(w, "DAY\tDATE\tKIND\tBOOKING\tCUSTOMER")
	for _, bucket := range ctrl.Week() {
		day := dates.FormatWeekday(bucket.Day)
		date := dates.FormatDate(bucket.Day)
		if bucket.Empty() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t-\t\t\n", day, date)
			continue
		}
		for _, b := range bucket.Pickups {
			_, _ = fmt.Fprintf(w, "%s\t%s\tpickup\t#%s\t%s\n", day, date, b.ID, b.CustomerName)
		}
		for _, b := range bucket.Returns {
			_, _ = fmt.Fprintf(w, "%s\t%s\treturn\t#%s\t%s\n", day, date, b.ID, b.CustomerName)
		}
	}
	return w.Flush()
}
