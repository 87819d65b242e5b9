package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/config"
	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/models"
	"github.com/EpicMandM/station-calendar/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

// --- mocks ---

type fakeAPI struct {
	mu        sync.Mutex
	stations  []models.Station
	searchErr error
	detailErr error
	updates   []models.DateChange
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{stations: []models.Station{
		{ID: "1", Name: "Berlin", Bookings: []models.Booking{
			{ID: "1", CustomerName: "Test Customer", StartDate: "2024-01-08", EndDate: "2024-01-09", PickupReturnStationID: "1"},
			{ID: "4", CustomerName: "Ada Lovelace", StartDate: "2024-01-10", EndDate: "2024-01-15", PickupReturnStationID: "1"},
		}},
		{ID: "2", Name: "Munich", Bookings: []models.Booking{
			{ID: "2", CustomerName: "Grace Hopper", StartDate: "2024-01-08", EndDate: "2024-01-12", PickupReturnStationID: "2"},
			{ID: "3", CustomerName: "Alan Turing", StartDate: "2024-01-12", EndDate: "2024-01-12", PickupReturnStationID: "2"},
		}},
		{ID: "3", Name: "Hamburg"},
	}}
}

func (f *fakeAPI) SearchStations(_ context.Context, query string) ([]models.Station, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	term := strings.ToLower(strings.TrimSpace(query))
	var out []models.Station
	for _, s := range f.stations {
		if strings.Contains(strings.ToLower(s.Name), term) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *fakeAPI) GetBookingsByStation(_ context.Context, stationID string) ([]models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stations {
		if s.ID == stationID {
			return append([]models.Booking{}, s.Bookings...), nil
		}
	}
	return []models.Booking{}, nil
}

func (f *fakeAPI) GetBookingDetails(_ context.Context, bookingID string) (*models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	for _, s := range f.stations {
		if b, ok := s.FindBooking(bookingID); ok {
			return &b, nil
		}
	}
	return nil, nil
}

func (f *fakeAPI) UpdateBookingDates(_ context.Context, _ string, change models.DateChange, current models.Booking) (models.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, change)
	return change.Apply(current), nil
}

type mockCalendar struct {
	existing []*gcal.Event
	imported []*gcal.Event
}

func (m *mockCalendar) ListEvents(context.Context, string, string) ([]*gcal.Event, error) {
	return m.existing, nil
}

func (m *mockCalendar) ImportEvent(_ context.Context, ev *gcal.Event) (*gcal.Event, error) {
	m.imported = append(m.imported, ev)
	return ev, nil
}

// --- helper ---

func fixedClock() time.Time {
	return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)
}

func newTestApp(t *testing.T) (*App, *fakeAPI, *bytes.Buffer) {
	t.Helper()
	api := newFakeAPI()
	out := &bytes.Buffer{}
	a := NewWithAPI(api, nil, logger.Nop(), out)
	a.SetClock(fixedClock)
	return a, api, out
}

// --- tests ---

func TestNew(t *testing.T) {
	cfg := &config.Config{APIURL: "http://localhost:8089", LogLevel: "info", MockAddr: ":8089"}

	t.Run("with all parameters", func(t *testing.T) {
		output := &bytes.Buffer{}
		l := logger.NewWithWriter(output)
		features := service.DefaultFeatureConfig()

		app := New(cfg, features, l, output)

		assert.NotNil(t, app)
		assert.Equal(t, cfg, app.config)
		assert.Equal(t, features, app.features)
		assert.Equal(t, l, app.logger)
		assert.Equal(t, output, app.output)
	})

	t.Run("with nil logger", func(t *testing.T) {
		app := New(cfg, nil, nil, &bytes.Buffer{})

		assert.NotNil(t, app.logger)
		assert.NotNil(t, app.features)
	})

	t.Run("with nil output", func(t *testing.T) {
		app := New(cfg, nil, logger.Nop(), nil)

		assert.NotNil(t, app.output)
	})
}

func TestInitialize(t *testing.T) {
	t.Run("builds the API client", func(t *testing.T) {
		cfg := &config.Config{APIURL: "http://localhost:8089", NoDelay: true}
		app := New(cfg, nil, nil, nil)

		require.NoError(t, app.Initialize(context.Background()))
		assert.IsType(t, &service.APIClient{}, app.API())
	})

	t.Run("requires config", func(t *testing.T) {
		app := New(nil, nil, nil, nil)

		err := app.Initialize(context.Background())
		require.Error(t, err)
		assert.Nil(t, app.API())
	})

	t.Run("keeps an injected API", func(t *testing.T) {
		app, api, _ := newTestApp(t)

		require.NoError(t, app.Initialize(context.Background()))
		assert.Same(t, api, app.API())
	})
}

func TestNotInitialized(t *testing.T) {
	app := New(&config.Config{APIURL: "http://localhost:8089"}, nil, nil, &bytes.Buffer{})
	ctx := context.Background()

	_, err := app.NewController(nil)
	assert.ErrorContains(t, err, "service not initialized")

	_, err = app.NewStationSearch(nil, nil)
	assert.ErrorContains(t, err, "service not initialized")

	_, err = app.ResolveStation(ctx, "1")
	assert.ErrorContains(t, err, "service not initialized")

	_, err = app.LoadDetail(ctx, "1")
	assert.ErrorContains(t, err, "service not initialized")
}

func TestClose_NotInitialized(t *testing.T) {
	app := New(nil, nil, nil, nil)

	assert.NoError(t, app.Close(context.Background()))
}

func TestNewStationSearch(t *testing.T) {
	app, _, _ := newTestApp(t)

	box, err := app.NewStationSearch(nil, nil)
	require.NoError(t, err)
	t.Cleanup(box.Close)

	assert.Equal(t, "Search station by name", box.Placeholder())
	assert.Equal(t, "2", box.Key(models.Station{ID: "2", Name: "Munich"}))
	assert.Equal(t, "Munich", box.Label(models.Station{ID: "2", Name: "Munich"}))

	box.Mount()
	require.Eventually(t, func() bool { return len(box.Session().Results) == 3 }, time.Second, 5*time.Millisecond)
}

func TestResolveStation(t *testing.T) {
	app, api, _ := newTestApp(t)
	api.stations = append(api.stations, models.Station{ID: "5", Name: "Berlin Tegel"})
	ctx := context.Background()

	tests := []struct {
		name   string
		ref    string
		wantID string
		errMsg string
	}{
		{name: "by id", ref: "2", wantID: "2"},
		{name: "by exact name", ref: "berlin", wantID: "1"},
		{name: "by unique fragment", ref: "ham", wantID: "3"},
		{name: "trims input", ref: "  Munich ", wantID: "2"},
		{name: "ambiguous fragment", ref: "ber", errMsg: "ambiguous"},
		{name: "unknown", ref: "paris", errMsg: "station not found"},
		{name: "blank", ref: " ", errMsg: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := app.ResolveStation(ctx, tt.ref)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, st.ID)
		})
	}

	_, err := app.ResolveStation(ctx, "paris")
	assert.ErrorIs(t, err, ErrStationNotFound)
}

func TestResolveStation_SearchError(t *testing.T) {
	app, api, _ := newTestApp(t)
	api.searchErr = errors.New("offline")

	_, err := app.ResolveStation(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load stations")
}

func TestLoadDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves station name", func(t *testing.T) {
		app, _, _ := newTestApp(t)

		d, err := app.LoadDetail(ctx, "4")
		require.NoError(t, err)
		require.NotNil(t, d)
		assert.Equal(t, "Ada Lovelace", d.Booking.CustomerName)
		assert.Equal(t, "Berlin", d.StationName)
		assert.Equal(t, 5, d.Duration)
		assert.Equal(t, "5 days", d.DurationLabel())
	})

	t.Run("same-day booking lasts one day", func(t *testing.T) {
		app, _, _ := newTestApp(t)

		d, err := app.LoadDetail(ctx, "3")
		require.NoError(t, err)
		assert.Equal(t, "1 day", d.DurationLabel())
	})

	t.Run("unknown station falls back to id", func(t *testing.T) {
		app, api, _ := newTestApp(t)
		api.stations[2].Bookings = []models.Booking{
			{ID: "9", CustomerName: "Orphan", StartDate: "2024-02-01", EndDate: "2024-02-03", PickupReturnStationID: "42"},
		}

		d, err := app.LoadDetail(ctx, "9")
		require.NoError(t, err)
		assert.Equal(t, "Station ID: 42", d.StationName)
	})

	t.Run("station lookup failure falls back to id", func(t *testing.T) {
		app, api, _ := newTestApp(t)
		api.searchErr = errors.New("offline")

		d, err := app.LoadDetail(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "Station ID: 2", d.StationName)
	})

	t.Run("not found", func(t *testing.T) {
		app, _, _ := newTestApp(t)

		d, err := app.LoadDetail(ctx, "999")
		require.NoError(t, err)
		assert.Nil(t, d)
	})

	t.Run("details error", func(t *testing.T) {
		app, api, _ := newTestApp(t)
		api.detailErr = errors.New("boom")

		_, err := app.LoadDetail(ctx, "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load booking 1")
	})
}

func TestPrintDetail(t *testing.T) {
	app, _, out := newTestApp(t)

	require.NoError(t, app.PrintDetail(context.Background(), "2"))

	text := out.String()
	assert.Contains(t, text, "Booking #2")
	assert.Contains(t, text, "Grace Hopper")
	assert.Contains(t, text, "Mon, Jan 8 2024")
	assert.Contains(t, text, "Fri, Jan 12 2024")
	assert.Contains(t, text, "4 days")
	assert.Contains(t, text, "Munich")
}

func TestPrintDetail_NotFound(t *testing.T) {
	app, _, out := newTestApp(t)

	require.NoError(t, app.PrintDetail(context.Background(), "999"))
	assert.Equal(t, "Booking not found.\n", out.String())
}

func TestPrintWeek(t *testing.T) {
	app, _, out := newTestApp(t)

	require.NoError(t, app.PrintWeek(context.Background(), "munich", ""))

	text := out.String()
	assert.Contains(t, text, "Munich")
	assert.Contains(t, text, "Jan 8 - Jan 14")
	assert.Regexp(t, `Mon\s+Jan 8\s+pickup\s+#2\s+Grace Hopper`, text)
	assert.Regexp(t, `Fri\s+Jan 12\s+pickup\s+#3\s+Alan Turing`, text)
	assert.Regexp(t, `Fri\s+Jan 12\s+return\s+#2\s+Grace Hopper`, text)
	assert.Regexp(t, `Sun\s+Jan 14\s+-`, text)
}

func TestPrintWeek_OtherWeek(t *testing.T) {
	app, _, out := newTestApp(t)

	require.NoError(t, app.PrintWeek(context.Background(), "1", dates.MustParse("2024-01-17")))

	text := out.String()
	assert.Contains(t, text, "Jan 15 - Jan 21")
	assert.Regexp(t, `Mon\s+Jan 15\s+return\s+#4\s+Ada Lovelace`, text)
	assert.NotContains(t, text, "Test Customer")
}

func TestLoadWeek_PositionsOnDay(t *testing.T) {
	app, _, _ := newTestApp(t)

	ctrl, err := app.LoadWeek(context.Background(), "1", dates.MustParse("2023-12-31"))
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)

	assert.Equal(t, dates.Key("2023-12-25"), ctrl.WeekStart())
	assert.Equal(t, "Berlin", ctrl.StationLabel())
	assert.Len(t, ctrl.Bookings(), 2)
}

func TestReschedule(t *testing.T) {
	app, api, _ := newTestApp(t)

	updated, err := app.Reschedule(context.Background(), "Berlin", "4", calendar.EndpointEnd, dates.MustParse("2024-01-16"))
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, dates.Key("2024-01-10"), updated.StartDate)
	assert.Equal(t, dates.Key("2024-01-16"), updated.EndDate)
	require.Len(t, api.updates, 1)
	assert.Nil(t, api.updates[0].StartDate)
	require.NotNil(t, api.updates[0].EndDate)
	assert.Equal(t, dates.Key("2024-01-16"), *api.updates[0].EndDate)
}

func TestReschedule_BookingAtOtherStation(t *testing.T) {
	app, api, _ := newTestApp(t)

	_, err := app.Reschedule(context.Background(), "Berlin", "2", calendar.EndpointStart, dates.MustParse("2024-01-09"))
	require.Error(t, err)
	assert.Empty(t, api.updates)
}

func TestExportWeek(t *testing.T) {
	app, _, _ := newTestApp(t)
	cal := &mockCalendar{existing: []*gcal.Event{{ICalUID: "2-2-pickup@stationcal"}}}
	app.SetCalendarClient(cal)

	result, err := app.ExportWeek(context.Background(), "munich", "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, cal.imported, 4)
	assert.Equal(t, "2024-01-08", cal.imported[0].Start.Date)
}

func TestExportController_NoStation(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.SetCalendarClient(&mockCalendar{})

	ctrl, err := app.NewController(nil)
	require.NoError(t, err)

	_, err = app.ExportController(context.Background(), ctrl)
	assert.ErrorContains(t, err, "no station selected")
}
