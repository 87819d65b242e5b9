package service

import (
	"context"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

type CalendarService struct {
	srv    *calendar.Service
	config CalendarConfig
}

func NewCalendarService(ctx context.Context, config CalendarConfig, opts ...option.ClientOption) (*CalendarService, error) {
	if len(opts) == 0 {
		tokenJSON, err := config.LoadServiceAccountToken()
		if err != nil {
			return nil, err
		}
		opts = []option.ClientOption{option.WithAuthCredentialsJSON(option.ServiceAccount, tokenJSON)}
	}

	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &CalendarService{srv: srv, config: config}, nil
}

func (s *CalendarService) ListEvents(ctx context.Context, timeMin, timeMax string) ([]*calendar.Event, error) {
	events, err := s.srv.Events.List(s.config.CalendarID).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(timeMin).
		TimeMax(timeMax).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return events.Items, nil
}

// ImportEvent creates the event, or updates the one already carrying its iCalUID.
func (s *CalendarService) ImportEvent(ctx context.Context, event *calendar.Event) (*calendar.Event, error) {
	return s.srv.Events.Import(s.config.CalendarID, event).Context(ctx).Do()
}
