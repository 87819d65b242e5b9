package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/logger"
	"github.com/EpicMandM/station-calendar/internal/metrics"
	"github.com/EpicMandM/station-calendar/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// StatusError reports a non-2xx response from the booking API.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Delays are the artificial latencies applied before each operation.
type Delays struct {
	Search   time.Duration
	Bookings time.Duration
	Details  time.Duration
	Update   time.Duration
}

// DefaultDelays mirrors the latency profile of the hosted mock API.
func DefaultDelays() Delays {
	return Delays{
		Search:   200 * time.Millisecond,
		Bookings: 200 * time.Millisecond,
		Details:  150 * time.Millisecond,
		Update:   150 * time.Millisecond,
	}
}

// APIClient implements BookingAPI on top of the mock API's GET /stations.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
	delays     Delays
	limiter    *rate.Limiter
	group      singleflight.Group
}

type ClientOption func(*APIClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(a *APIClient) { a.httpClient = c }
}

func WithLogger(l *logger.Logger) ClientOption {
	return func(a *APIClient) { a.logger = l }
}

func WithDelays(d Delays) ClientOption {
	return func(a *APIClient) { a.delays = d }
}

// WithRateLimit paces outgoing requests. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(a *APIClient) {
		if rps <= 0 {
			a.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewAPIClient(baseURL string, opts ...ClientOption) *APIClient {
	c := &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
		logger:     logger.Nop(),
		delays:     DefaultDelays(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) SearchStations(ctx context.Context, query string) ([]models.Station, error) {
	if err := sleep(ctx, c.delays.Search); err != nil {
		return nil, err
	}
	stations, err := c.fetchStations(ctx)
	c.record("search_stations", err)
	if err != nil {
		return nil, fmt.Errorf("search stations: %w", err)
	}

	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return stations, nil
	}
	matches := make([]models.Station, 0, len(stations))
	for _, s := range stations {
		if strings.Contains(strings.ToLower(s.Name), term) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

func (c *APIClient) GetBookingsByStation(ctx context.Context, stationID string) ([]models.Booking, error) {
	if err := sleep(ctx, c.delays.Bookings); err != nil {
		return nil, err
	}
	stations, err := c.fetchStations(ctx)
	c.record("get_bookings", err)
	if err != nil {
		return nil, fmt.Errorf("get bookings for station %s: %w", stationID, err)
	}
	for _, s := range stations {
		if s.ID == stationID {
			return s.Bookings, nil
		}
	}
	return []models.Booking{}, nil
}

func (c *APIClient) GetBookingDetails(ctx context.Context, bookingID string) (*models.Booking, error) {
	if err := sleep(ctx, c.delays.Details); err != nil {
		return nil, err
	}
	stations, err := c.fetchStations(ctx)
	c.record("get_booking_details", err)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", bookingID, err)
	}
	for _, s := range stations {
		if b, ok := s.FindBooking(bookingID); ok {
			return &b, nil
		}
	}
	return nil, nil
}

// UpdateBookingDates does not persist anything: the hosted API is read-only,
// so the intended PATCH is logged and the merged booking returned.
func (c *APIClient) UpdateBookingDates(ctx context.Context, bookingID string, change models.DateChange, current models.Booking) (models.Booking, error) {
	if err := sleep(ctx, c.delays.Update); err != nil {
		return models.Booking{}, err
	}
	fields := []logger.Field{logger.Action("patch"), logger.URL("/bookings/" + bookingID), logger.Booking(bookingID)}
	if change.StartDate != nil {
		fields = append(fields, logger.F("START_DATE", change.StartDate.String()))
	}
	if change.EndDate != nil {
		fields = append(fields, logger.F("END_DATE", change.EndDate.String()))
	}
	c.logger.Info("PATCH /bookings/"+bookingID, fields...)
	c.record("update_booking_dates", nil)
	return change.Apply(current), nil
}

// fetchStations collapses concurrent GET /stations calls into one request.
// Each caller receives its own copy of the result.
func (c *APIClient) fetchStations(ctx context.Context) ([]models.Station, error) {
	ch := c.group.DoChan("stations", func() (interface{}, error) {
		// The shared request must not die with whichever caller started it.
		return c.getStations(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]models.Station)
		out := make([]models.Station, len(shared))
		for i, s := range shared {
			out[i] = s.Clone()
		}
		return out, nil
	}
}

func (c *APIClient) getStations(ctx context.Context) ([]models.Station, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	url := c.baseURL + "/stations"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Station fetch failed", logger.URL(url), logger.RequestID(requestID), logger.Error(err))
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("Failed to close response body", logger.Error(cerr))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, URL: url}
	}

	var stations []models.Station
	if err := json.NewDecoder(resp.Body).Decode(&stations); err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	for i := range stations {
		c.normalizeBookings(stations[i].Bookings)
	}

	c.logger.Debug("Stations fetched",
		logger.URL(url),
		logger.RequestID(requestID),
		logger.Count(len(stations)),
		logger.Duration(time.Since(start)))
	return stations, nil
}

// normalizeBookings reduces the API's ISO timestamps to DateKeys in place.
func (c *APIClient) normalizeBookings(bookings []models.Booking) {
	for i := range bookings {
		b := &bookings[i]
		if k, err := dates.NormalizeKey(string(b.StartDate)); err == nil {
			b.StartDate = k
		} else {
			c.logger.Warn("Unparseable booking date", logger.Booking(b.ID), logger.DateKey(string(b.StartDate)), logger.Error(err))
		}
		if k, err := dates.NormalizeKey(string(b.EndDate)); err == nil {
			b.EndDate = k
		} else {
			c.logger.Warn("Unparseable booking date", logger.Booking(b.ID), logger.DateKey(string(b.EndDate)), logger.Error(err))
		}
	}
}

func (c *APIClient) record(operation string, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ClientCalls.WithLabelValues(operation, outcome).Inc()
}

// sleep waits d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
