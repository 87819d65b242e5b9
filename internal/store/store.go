package store

import (
	"context"
	"errors"

	"github.com/EpicMandM/station-calendar/internal/models"
)

// ErrNotFound is returned when a station does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the read operations the mock API serves.
type Store interface {
	ListStations(ctx context.Context) ([]models.Station, error)
	GetStation(ctx context.Context, id string) (*models.Station, error)
	Close() error
}
