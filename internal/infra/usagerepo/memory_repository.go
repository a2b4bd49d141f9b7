package usagerepo

import (
	"context"
	"sync"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
)

// LocationRow mirrors a row of the locations table.
type LocationRow struct {
	ID        int64
	Name      string
	Latitude  float64
	Longitude float64
}

// ApplianceRow mirrors a row of the appliances table.
type ApplianceRow struct {
	ID         int64
	LocationID int64
	Submission string
	Usage      forecast.ApplianceUsage
}

// MemoryRepository is an in-memory UsageStore used for tests/dev.
type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64

	locations  map[string]LocationRow
	appliances []ApplianceRow
	weather    map[int64]forecast.WeatherSnapshot
	saves      int
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		nextID:    1,
		locations: make(map[string]LocationRow),
		weather:   make(map[int64]forecast.WeatherSnapshot),
	}
}

// Save implements forecast.UsageStore with the same upsert rules as Postgres.
func (r *MemoryRepository) Save(_ context.Context, facts forecast.UsageFacts) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc, ok := r.locations[facts.Location]
	if !ok {
		loc = LocationRow{ID: r.allocate(), Name: facts.Location}
	}
	loc.Latitude = facts.Coordinates.Latitude
	loc.Longitude = facts.Coordinates.Longitude
	r.locations[facts.Location] = loc

	for _, appliance := range facts.Appliances {
		r.appliances = append(r.appliances, ApplianceRow{
			ID:         r.allocate(),
			LocationID: loc.ID,
			Submission: facts.SubmissionID.String(),
			Usage:      appliance,
		})
	}
	r.weather[loc.ID] = facts.Weather
	r.saves++
	return nil
}

// Location returns the stored row for a location name.
func (r *MemoryRepository) Location(name string) (LocationRow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loc, ok := r.locations[name]
	return loc, ok
}

// Appliances returns a copy of all appliance rows.
func (r *MemoryRepository) Appliances() []ApplianceRow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ApplianceRow, len(r.appliances))
	copy(out, r.appliances)
	return out
}

// Weather returns the latest snapshot stored for a location.
func (r *MemoryRepository) Weather(locationID int64) (forecast.WeatherSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.weather[locationID]
	return w, ok
}

// Saves counts completed Save calls.
func (r *MemoryRepository) Saves() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.saves
}

func (r *MemoryRepository) allocate() int64 {
	id := r.nextID
	r.nextID++
	return id
}

var _ forecast.UsageStore = (*MemoryRepository)(nil)
