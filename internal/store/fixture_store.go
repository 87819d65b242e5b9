package store

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/EpicMandM/station-calendar/internal/dates"
	"github.com/EpicMandM/station-calendar/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default_stations.yaml
var defaultFixture []byte

// FixtureStore serves stations loaded once from a YAML document.
type FixtureStore struct {
	stations []models.Station
}

type fixtureFile struct {
	Stations []models.Station `yaml:"stations"`
}

// NewFixtureStore loads path, or the built-in fixture when path is empty.
func NewFixtureStore(path string) (*FixtureStore, error) {
	data := defaultFixture
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixture file: %w", err)
		}
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates a fixture document.
func ParseFixture(data []byte) (*FixtureStore, error) {
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}

	seen := make(map[string]bool, len(f.Stations))
	for i := range f.Stations {
		st := &f.Stations[i]
		if strings.TrimSpace(st.ID) == "" {
			return nil, fmt.Errorf("station %d: id is required", i)
		}
		if seen[st.ID] {
			return nil, fmt.Errorf("station %s: duplicate id", st.ID)
		}
		seen[st.ID] = true
		if st.Bookings == nil {
			st.Bookings = []models.Booking{}
		}
		for j := range st.Bookings {
			b := &st.Bookings[j]
			for _, d := range []*dates.Key{&b.StartDate, &b.EndDate} {
				k, err := dates.NormalizeKey(string(*d))
				if err != nil {
					return nil, fmt.Errorf("station %s booking %s: %w", st.ID, b.ID, err)
				}
				*d = k
			}
			if b.PickupReturnStationID == "" {
				b.PickupReturnStationID = st.ID
			}
		}
	}
	return &FixtureStore{stations: f.Stations}, nil
}

func (s *FixtureStore) ListStations(ctx context.Context) ([]models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]models.Station, len(s.stations))
	for i, st := range s.stations {
		out[i] = st.Clone()
	}
	return out, nil
}

func (s *FixtureStore) GetStation(ctx context.Context, id string) (*models.Station, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, st := range s.stations {
		if st.ID == id {
			c := st.Clone()
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FixtureStore) Close() error {
	return nil
}
