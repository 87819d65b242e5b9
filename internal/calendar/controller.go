// Package calendar holds the week-view state for one station: which week is
// visible, the station's bookings, and the keyboard/mouse drag that moves a
// booking's pickup or return day.
package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/metrics"
	"github.com/EpicMandM/station-calendar/internal/models"
	"github.com/EpicMandM/station-calendar/internal/service"
	"github.com/EpicMandM/station-calendar/internal/supersede"
)

const noStationLabel = "Select station"

// Options configures a Controller. Only API is required.
type Options struct {
	API    service.BookingAPI
	Logger *logger.Logger
	// Now is the clock used for the initial and "this week" positions.
	Now func() time.Time
	// OnChange runs after every state change, outside the controller's lock.
	OnChange func()
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Station   *models.Station
	WeekStart dates.Key
	Days      []dates.Key
	Bookings  []models.Booking
	Drag      Drag
	Loading   bool
	Err       *Error
}

// Controller is the week calendar for the selected station.
// All methods are safe for concurrent use.
type Controller struct {
	api      service.BookingAPI
	logger   *logger.Logger
	now      func() time.Time
	onChange func()

	mu        sync.Mutex
	station   *models.Station
	weekStart dates.Key
	bookings  []models.Booking
	drag      Drag
	loading   bool
	err       *Error

	// selection guards the station and its bookings fetch.
	selection supersede.Slot
}

func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		api:       opts.API,
		logger:    opts.Logger,
		now:       opts.Now,
		onChange:  opts.OnChange,
		weekStart: dates.WeekStartOf(opts.Now()),
		bookings:  []models.Booking{},
		drag:      NoDrag{},
	}
}

// LoadInitialStation fetches every station and selects the first one.
// A station selected while this is in flight takes precedence.
func (c *Controller) LoadInitialStation(ctx context.Context) error {
	c.mu.Lock()
	tok := c.selection.Issue()
	c.loading = true
	c.err = nil
	c.mu.Unlock()
	c.changed()

	c.logger.Info("Loading stations", logger.Action("load_stations"), logger.Generation(tok.Generation()))
	stations, err := c.api.SearchStations(ctx, "")

	c.mu.Lock()
	if !tok.Current() {
		c.mu.Unlock()
		c.superseded("load_stations", tok)
		return nil
	}
	if err != nil {
		c.loading = false
		c.err = &Error{Kind: FetchStationsFailed, Err: err}
		cerr := c.err
		c.mu.Unlock()
		c.logger.Error("Failed to load stations", logger.Error(err))
		c.changed()
		return cerr
	}
	if len(stations) == 0 {
		c.loading = false
		c.mu.Unlock()
		c.logger.Info("No stations available", logger.Action("load_stations"), logger.Status("empty"))
		c.changed()
		return nil
	}
	first := stations[0]
	tok = c.beginSelectLocked(first)
	c.mu.Unlock()
	c.changed()

	return c.loadBookings(ctx, first, tok)
}

// SelectStation makes st the current station and loads its bookings.
// If another selection starts before the fetch completes, this call's result
// is discarded and it returns nil.
func (c *Controller) SelectStation(ctx context.Context, st models.Station) error {
	c.mu.Lock()
	tok := c.beginSelectLocked(st)
	c.mu.Unlock()
	c.changed()

	return c.loadBookings(ctx, st, tok)
}

func (c *Controller) beginSelectLocked(st models.Station) supersede.Token {
	tok := c.selection.Issue()
	selected := st.Clone()
	c.station = &selected
	c.loading = true
	c.err = nil
	c.drag = NoDrag{}
	return tok
}

func (c *Controller) loadBookings(ctx context.Context, st models.Station, tok supersede.Token) error {
	c.logger.Info("Fetching bookings",
		logger.Action("select_station"),
		logger.Station(st.ID),
		logger.Generation(tok.Generation()))

	list, err := c.api.GetBookingsByStation(ctx, st.ID)

	c.mu.Lock()
	if !tok.Current() {
		c.mu.Unlock()
		c.superseded("select_station", tok)
		return nil
	}
	c.loading = false
	if err != nil {
		c.err = &Error{Kind: FetchBookingsFailed, Err: err}
		cerr := c.err
		c.mu.Unlock()
		c.logger.Error("Failed to load bookings", logger.Station(st.ID), logger.Error(err))
		c.changed()
		return cerr
	}
	c.bookings = append([]models.Booking{}, list...)
	c.err = nil
	c.mu.Unlock()

	c.logger.Info("Bookings loaded", logger.Station(st.ID), logger.Count(len(list)))
	c.changed()
	return nil
}

// NavigateWeek moves the visible week by deltaDays (normally ±7).
func (c *Controller) NavigateWeek(deltaDays int) {
	c.mu.Lock()
	c.weekStart = c.weekStart.AddDays(deltaDays)
	c.drag = NoDrag{}
	c.mu.Unlock()
	c.changed()
}

// ThisWeek jumps back to the week containing today.
func (c *Controller) ThisWeek() {
	c.mu.Lock()
	c.weekStart = dates.WeekStartOf(c.now())
	c.drag = NoDrag{}
	c.mu.Unlock()
	c.changed()
}

func (c *Controller) WeekStart() dates.Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.weekStart
}

// VisibleDays returns the seven days of the current week, Monday first.
func (c *Controller) VisibleDays() []dates.Key {
	return dates.WeekDays(c.WeekStart())
}

// BucketForDay lists the bookings picked up and returned on day.
func (c *Controller) BucketForDay(day dates.Key) models.DayBucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bucket(c.bookings, day)
}

// Week returns the buckets of every visible day.
func (c *Controller) Week() []models.DayBucket {
	c.mu.Lock()
	defer c.mu.Unlock()
	days := dates.WeekDays(c.weekStart)
	out := make([]models.DayBucket, len(days))
	for i, d := range days {
		out[i] = bucket(c.bookings, d)
	}
	return out
}

func bucket(bookings []models.Booking, day dates.Key) models.DayBucket {
	b := models.DayBucket{Day: day, Pickups: []models.Booking{}, Returns: []models.Booking{}}
	for _, bk := range bookings {
		if bk.StartDate == day {
			b.Pickups = append(b.Pickups, bk)
		}
		if bk.EndDate == day {
			b.Returns = append(b.Returns, bk)
		}
	}
	return b
}

// BeginDrag starts moving one endpoint of a loaded booking. It is a no-op,
// returning false, when the booking is not loaded or kind is unknown.
func (c *Controller) BeginDrag(bookingID string, kind Endpoint) bool {
	if kind != EndpointStart && kind != EndpointEnd {
		return false
	}
	c.mu.Lock()
	if _, ok := c.findLocked(bookingID); !ok {
		c.mu.Unlock()
		return false
	}
	c.drag = DraggingEndpoint{Kind: kind, BookingID: bookingID}
	c.mu.Unlock()

	c.logger.Debug("Drag started", logger.Booking(bookingID), logger.Endpoint(string(kind)))
	c.changed()
	return true
}

// CancelDrag abandons any active drag.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	_, active := c.drag.(DraggingEndpoint)
	c.drag = NoDrag{}
	c.mu.Unlock()
	if active {
		c.changed()
	}
}

func (c *Controller) Drag() Drag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drag
}

// DropOnDay moves the dragged endpoint to day and persists it through the API.
// Without an active drag it does nothing and returns nil, nil. The drag is
// consumed either way; on failure the booking list is left unchanged.
func (c *Controller) DropOnDay(ctx context.Context, day dates.Key) (*models.Booking, error) {
	c.mu.Lock()
	d, ok := c.drag.(DraggingEndpoint)
	if !ok {
		c.mu.Unlock()
		return nil, nil
	}
	c.drag = NoDrag{}
	current, found := c.findLocked(d.BookingID)
	if !found {
		c.mu.Unlock()
		c.logger.Debug("Dragged booking no longer loaded", logger.Booking(d.BookingID))
		c.changed()
		return nil, nil
	}
	// A station switch during the update makes the result irrelevant.
	tok := c.selection.Peek()
	c.mu.Unlock()
	c.changed()

	var change models.DateChange
	if d.Kind == EndpointStart {
		change.StartDate = &day
	} else {
		change.EndDate = &day
	}

	c.logger.Info("Moving booking endpoint",
		logger.Action("drop"),
		logger.Booking(d.BookingID),
		logger.Endpoint(string(d.Kind)),
		logger.DateKey(day.String()))

	updated, err := c.api.UpdateBookingDates(ctx, d.BookingID, change, current)
	if err != nil {
		c.mu.Lock()
		c.err = &Error{Kind: UpdateBookingFailed, Err: err}
		cerr := c.err
		c.mu.Unlock()
		c.logger.Error("Failed to update booking", logger.Booking(d.BookingID), logger.Error(err))
		c.changed()
		return nil, cerr
	}

	c.mu.Lock()
	if !tok.Current() {
		c.mu.Unlock()
		c.superseded("drop", tok)
		return &updated, nil
	}
	for i := range c.bookings {
		if c.bookings[i].ID == updated.ID {
			c.bookings[i] = updated
			break
		}
	}
	if c.err != nil && c.err.Kind == UpdateBookingFailed {
		c.err = nil
	}
	c.mu.Unlock()

	c.changed()
	return &updated, nil
}

func (c *Controller) findLocked(id string) (models.Booking, bool) {
	for _, b := range c.bookings {
		if b.ID == id {
			return b, true
		}
	}
	return models.Booking{}, false
}

// Bookings returns a copy of the loaded bookings.
func (c *Controller) Bookings() []models.Booking {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Booking{}, c.bookings...)
}

// Station returns the selected station, if any.
func (c *Controller) Station() (models.Station, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.station == nil {
		return models.Station{}, false
	}
	return c.station.Clone(), true
}

// StationLabel is the selected station's name or a prompt to pick one.
func (c *Controller) StationLabel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.station == nil {
		return noStationLabel
	}
	return c.station.Name
}

func (c *Controller) Err() *Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		WeekStart: c.weekStart,
		Days:      dates.WeekDays(c.weekStart),
		Bookings:  append([]models.Booking{}, c.bookings...),
		Drag:      c.drag,
		Loading:   c.loading,
		Err:       c.err,
	}
	if c.station != nil {
		st := c.station.Clone()
		s.Station = &st
	}
	return s
}

// Close invalidates any in-flight fetch so its result is never applied.
func (c *Controller) Close() {
	c.mu.Lock()
	c.selection.Invalidate()
	c.loading = false
	c.mu.Unlock()
}

func (c *Controller) superseded(action string, tok supersede.Token) {
	metrics.Superseded.WithLabelValues(action).Inc()
	c.logger.Debug("Discarding superseded result", logger.Action(action), logger.Generation(tok.Generation()))
}

func (c *Controller) changed() {
	if c.onChange != nil {
		c.onChange()
	}
}
