package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/config"
	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/models"
	"github.com/EpicMandM/station-calendar/internal/orchestrator"
	"github.com/EpicMandM/station-calendar/internal/search"
	"github.com/EpicMandM/station-calendar/internal/service"
)

const searchPlaceholder = "Search station by name"

// ErrStationNotFound is returned when a station reference matches nothing.
var ErrStationNotFound = errors.New("station not found")

type App struct {
	config   *config.Config
	features *service.FeatureConfig
	logger   *logger.Logger
	output   io.Writer
	api      service.BookingAPI
	calendar service.CalendarClient
	now      func() time.Time
}

func New(cfg *config.Config, features *service.FeatureConfig, l *logger.Logger, output io.Writer) *App {
	if features == nil {
		features = service.DefaultFeatureConfig()
	}
	if l == nil {
		l = logger.Nop()
	}
	if output == nil {
		output = io.Discard
	}
	return &App{
		config:   cfg,
		features: features,
		logger:   l,
		output:   output,
		now:      time.Now,
	}
}

// NewWithAPI builds an already initialized App around api.
func NewWithAPI(api service.BookingAPI, features *service.FeatureConfig, l *logger.Logger, output io.Writer) *App {
	a := New(nil, features, l, output)
	a.api = api
	return a
}

// Initialize connects the booking API client.
func (a *App) Initialize(ctx context.Context) error {
	if a.api != nil {
		return nil
	}
	if a.config == nil {
		return fmt.Errorf("config is required")
	}
	delays := a.features.Delays()
	if a.config.NoDelay {
		delays = service.Delays{}
	}
	a.api = service.NewAPIClient(a.config.APIURL,
		service.WithLogger(a.logger),
		service.WithDelays(delays),
		service.WithRateLimit(a.features.API.RequestsPerSecond, 1),
	)
	a.logger.Info("Booking API client ready", logger.URL(a.config.APIURL), logger.Status("ready"))
	return nil
}

// SetClock overrides the clock used for "this week".
func (a *App) SetClock(now func() time.Time) {
	a.now = now
}

// SetCalendarClient injects the Google Calendar client used by ExportWeek.
func (a *App) SetCalendarClient(c service.CalendarClient) {
	a.calendar = c
}

// Today is the current date on the app's clock.
func (a *App) Today() dates.Key {
	return dates.ToKey(a.now())
}

func (a *App) API() service.BookingAPI {
	return a.api
}

func (a *App) Logger() *logger.Logger {
	return a.logger
}

// NewController returns a week calendar bound to the booking API.
func (a *App) NewController(onChange func()) (*calendar.Controller, error) {
	if a.api == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return calendar.New(calendar.Options{
		API:      a.api,
		Logger:   a.logger,
		Now:      a.now,
		OnChange: onChange,
	}), nil
}

// NewStationSearch returns the debounced station search box.
func (a *App) NewStationSearch(onSelect func(models.Station), onChange func()) (*search.Box[models.Station], error) {
	if a.api == nil {
		return nil, fmt.Errorf("service not initialized")
	}
	return search.New(search.Options[models.Station]{
		Fetch:       a.api.SearchStations,
		Key:         func(s models.Station) string { return s.ID },
		Label:       func(s models.Station) string { return s.Name },
		OnSelect:    onSelect,
		OnChange:    onChange,
		Placeholder: searchPlaceholder,
		Delay:       a.features.DebounceDelay(),
		Logger:      a.logger,
		Name:        "station_search",
	}), nil
}

// ResolveStation finds a station by id, exact name, or unique name fragment.
func (a *App) ResolveStation(ctx context.Context, ref string) (models.Station, error) {
	if a.api == nil {
		return models.Station{}, fmt.Errorf("service not initialized")
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.Station{}, fmt.Errorf("station reference is required")
	}
	stations, err := a.api.SearchStations(ctx, "")
	if err != nil {
		return models.Station{}, fmt.Errorf("failed to load stations: %w", err)
	}

	var partial []models.Station
	for _, s := range stations {
		if s.ID == ref || strings.EqualFold(s.Name, ref) {
			return s, nil
		}
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(ref)) {
			partial = append(partial, s)
		}
	}
	switch len(partial) {
	case 0:
		return models.Station{}, fmt.Errorf("%w: %q", ErrStationNotFound, ref)
	case 1:
		return partial[0], nil
	default:
		names := make([]string, len(partial))
		for i, s := range partial {
			names[i] = s.Name
		}
		return models.Station{}, fmt.Errorf("station %q is ambiguous: %s", ref, strings.Join(names, ", "))
	}
}

// LoadWeek selects station and positions the calendar on the week containing day.
func (a *App) LoadWeek(ctx context.Context, ref string, day dates.Key) (*calendar.Controller, error) {
	st, err := a.ResolveStation(ctx, ref)
	if err != nil {
		return nil, err
	}
	ctrl, err := a.NewController(nil)
	if err != nil {
		return nil, err
	}
	if day != "" {
		ctrl.NavigateWeek(daysBetween(ctrl.WeekStart(), dates.StartOfWeek(day)))
	}
	if err := ctrl.SelectStation(ctx, st); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func daysBetween(from, to dates.Key) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}

// Reschedule moves one endpoint of a booking through the calendar's drag-and-drop path.
func (a *App) Reschedule(ctx context.Context, ref, bookingID string, kind calendar.Endpoint, day dates.Key) (*models.Booking, error) {
	ctrl, err := a.LoadWeek(ctx, ref, day)
	if err != nil {
		return nil, err
	}
	defer ctrl.Close()

	if !ctrl.BeginDrag(bookingID, kind) {
		return nil, fmt.Errorf("booking %s is not at station %s or endpoint %q is invalid", bookingID, ref, kind)
	}
	updated, err := ctrl.DropOnDay(ctx, day)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fmt.Errorf("booking %s was not updated", bookingID)
	}
	a.logger.Info("Booking rescheduled",
		logger.Action("reschedule"),
		logger.Booking(bookingID),
		logger.Endpoint(string(kind)),
		logger.DateKey(day.String()))
	return updated, nil
}

// NewExporter returns the week exporter, connecting to Google Calendar on first use.
func (a *App) NewExporter(ctx context.Context) (*orchestrator.Orchestrator, error) {
	if a.calendar == nil {
		svc, err := service.NewCalendarService(ctx, a.features.Calendar)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize calendar service: %w", err)
		}
		a.calendar = svc
	}
	return &orchestrator.Orchestrator{Logger: a.logger, Calendar: a.calendar}, nil
}

// ExportWeek pushes the station's pickups and returns for the week containing day.
func (a *App) ExportWeek(ctx context.Context, ref string, day dates.Key) (orchestrator.ExportResult, error) {
	ctrl, err := a.LoadWeek(ctx, ref, day)
	if err != nil {
		return orchestrator.ExportResult{}, err
	}
	defer ctrl.Close()
	return a.ExportController(ctx, ctrl)
}

// ExportController exports the week currently shown by ctrl.
func (a *App) ExportController(ctx context.Context, ctrl *calendar.Controller) (orchestrator.ExportResult, error) {
	st, ok := ctrl.Station()
	if !ok {
		return orchestrator.ExportResult{}, fmt.Errorf("no station selected")
	}
	exp, err := a.NewExporter(ctx)
	if err != nil {
		return orchestrator.ExportResult{}, err
	}
	return exp.ExportWeek(ctx, st, ctrl.Week())
}

func (a *App) Close(ctx context.Context) error {
	if err := a.logger.Sync(); err != nil && !isIgnorableSyncError(err) {
		return fmt.Errorf("failed to flush logger: %w", err)
	}
	return nil
}

// isIgnorableSyncError reports the errors fsync returns for terminals and pipes.
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") || strings.Contains(msg, "inappropriate ioctl")
}
