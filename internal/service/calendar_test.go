package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

func newFakeCalendar(t *testing.T, handler http.HandlerFunc) *CalendarService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewCalendarService(context.Background(),
		CalendarConfig{CalendarID: "ops"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return svc
}

func TestNewCalendarService_RequiresServiceAccount(t *testing.T) {
	t.Setenv("STATIONCAL_SERVICE_ACCOUNT", "")
	_, err := NewCalendarService(context.Background(), CalendarConfig{CalendarID: "ops"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service_account_path is not configured")
}

func TestCalendarService_ListEvents(t *testing.T) {
	svc := newFakeCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/calendars/ops/events", r.URL.Path)
		assert.Equal(t, "startTime", r.URL.Query().Get("orderBy"))
		_ = json.NewEncoder(w).Encode(calendar.Events{Items: []*calendar.Event{{Summary: "Pickup: Ada"}}})
	})

	events, err := svc.ListEvents(context.Background(), "2024-01-08T00:00:00Z", "2024-01-15T00:00:00Z")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Pickup: Ada", events[0].Summary)
}

func TestCalendarService_ImportEvent(t *testing.T) {
	svc := newFakeCalendar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/calendars/ops/events/import", r.URL.Path)
		var ev calendar.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		ev.Id = "generated"
		_ = json.NewEncoder(w).Encode(ev)
	})

	got, err := svc.ImportEvent(context.Background(), &calendar.Event{
		ICalUID: "uid@stationcal",
		Summary: "Return: Ada",
		Start:   &calendar.EventDateTime{Date: "2024-01-15"},
		End:     &calendar.EventDateTime{Date: "2024-01-16"},
	})
	require.NoError(t, err)
	assert.Equal(t, "generated", got.Id)
	assert.Equal(t, "uid@stationcal", got.ICalUID)
}
