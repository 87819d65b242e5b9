package integration

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/EpicMandM/station-calendar/internal/app"
	"github.com/EpicMandM/station-calendar/internal/calendar"
	"github.com/EpicMandM/station-calendar/internal/config"
	"github.com/EpicMandM/station-calendar/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApp_FullFlow runs the calendar against the API named by STATIONCAL_API_URL
// (the hosted API by default). It needs network access, so it's skipped by default.
func TestApp_FullFlow(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	output := &bytes.Buffer{}
	application := app.New(cfg, service.DefaultFeatureConfig(), nil, output)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, application.Initialize(ctx))

	ctrl, err := application.NewController(nil)
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.LoadInitialStation(ctx))
	st, ok := ctrl.Station()
	require.True(t, ok, "the API should list at least one station")
	assert.Equal(t, st.Name, ctrl.StationLabel())
	assert.Nil(t, ctrl.Err())

	bookings := ctrl.Bookings()
	for _, b := range bookings {
		assert.True(t, b.StartDate.Valid(), "start date of booking %s normalized", b.ID)
		assert.True(t, b.EndDate.Valid(), "end date of booking %s normalized", b.ID)
	}

	if len(bookings) > 0 {
		b := bookings[0]
		detail, err := application.LoadDetail(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, detail)
		assert.Equal(t, b.ID, detail.Booking.ID)

		require.True(t, ctrl.BeginDrag(b.ID, calendar.EndpointEnd))
		updated, err := ctrl.DropOnDay(ctx, b.EndDate.AddDays(1))
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, b.EndDate.AddDays(1), updated.EndDate)
	}

	require.NoError(t, application.Close(ctx))
}
