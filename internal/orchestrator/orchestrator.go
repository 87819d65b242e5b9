package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/metrics"
	"github.com/EpicMandM/station-calendar/internal/models"
	"github.com/EpicMandM/station-calendar/internal/service"
	"google.golang.org/api/calendar/v3"
)

const uidDomain = "stationcal"

// ExportResult summarises one week export.
type ExportResult struct {
	Created int
	Updated int
	Failed  int
}

// Total is the number of events written.
func (r ExportResult) Total() int {
	return r.Created + r.Updated
}

// Orchestrator coordinates the week export to Google Calendar.
type Orchestrator struct {
	Logger   *logger.Logger
	Calendar service.CalendarClient
}

// ExportWeek writes one all-day event per pickup and per return in week.
// Events are keyed by iCalUID, so exporting the same week twice updates
// rather than duplicates. Individual event failures are counted, not fatal.
func (o *Orchestrator) ExportWeek(ctx context.Context, station models.Station, week []models.DayBucket) (ExportResult, error) {
	var result ExportResult
	if len(week) == 0 {
		return result, nil
	}

	existing, err := o.FetchExistingUIDs(ctx, week[0].Day, week[len(week)-1].Day.AddDays(1))
	if err != nil {
		return result, err
	}

	events := BuildWeekEvents(station, week)
	o.Logger.Info("Exporting week",
		logger.Action("export"),
		logger.Station(station.ID),
		logger.DateKey(week[0].Day.String()),
		logger.Count(len(events)))

	for _, ev := range events {
		if _, err := o.Calendar.ImportEvent(ctx, ev); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Failed++
			o.Logger.Error("Failed to export event", logger.F("UID", ev.ICalUID), logger.Error(err))
			continue
		}
		metrics.ExportedEvents.Inc()
		if existing[ev.ICalUID] {
			result.Updated++
		} else {
			result.Created++
		}
	}

	o.Logger.Info("Week exported",
		logger.Action("export"),
		logger.Status("done"),
		logger.F("CREATED", result.Created),
		logger.F("UPDATED", result.Updated),
		logger.F("FAILED", result.Failed))

	if result.Failed > 0 && result.Total() == 0 {
		return result, fmt.Errorf("all %d events failed to export", result.Failed)
	}
	return result, nil
}

// FetchExistingUIDs returns the iCalUIDs of events already in [from, to).
func (o *Orchestrator) FetchExistingUIDs(ctx context.Context, from, to dates.Key) (map[string]bool, error) {
	timeMin := from.Time().Format(time.RFC3339)
	timeMax := to.Time().Format(time.RFC3339)

	events, err := o.Calendar.ListEvents(ctx, timeMin, timeMax)
	if err != nil {
		o.Logger.Error("Failed to fetch calendar events", logger.Error(err))
		return nil, err
	}

	uids := make(map[string]bool, len(events))
	for _, ev := range events {
		if ev.ICalUID != "" {
			uids[ev.ICalUID] = true
		}
	}
	return uids, nil
}

// BuildWeekEvents converts a week of buckets into all-day calendar events.
func BuildWeekEvents(station models.Station, week []models.DayBucket) []*calendar.Event {
	var events []*calendar.Event
	for _, day := range week {
		for _, b := range day.Pickups {
			events = append(events, newEvent(station, b, "pickup", day.Day))
		}
		for _, b := range day.Returns {
			events = append(events, newEvent(station, b, "return", day.Day))
		}
	}
	return events
}

func newEvent(station models.Station, b models.Booking, kind string, day dates.Key) *calendar.Event {
	label := "Pickup"
	if kind == "return" {
		label = "Return"
	}
	return &calendar.Event{
		ICalUID:      EventUID(station.ID, b.ID, kind),
		Summary:      fmt.Sprintf("%s: %s (Booking #%s)", label, b.CustomerName, b.ID),
		Description:  fmt.Sprintf("Station: %s\nBooking: %s\nDates: %s to %s", station.Name, b.ID, b.StartDate, b.EndDate),
		Location:     station.Name,
		Start:        &calendar.EventDateTime{Date: day.String()},
		End:          &calendar.EventDateTime{Date: day.AddDays(1).String()},
		Transparency: "transparent",
	}
}

// EventUID identifies one endpoint of one booking at one station.
func EventUID(stationID, bookingID, kind string) string {
	return fmt.Sprintf("%s-%s-%s@%s", stationID, bookingID, kind, uidDomain)
}
