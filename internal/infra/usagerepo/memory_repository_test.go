package usagerepo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
)

func facts(location string, lat float64, temp float64, names ...string) forecast.UsageFacts {
	apps := make([]forecast.ApplianceUsage, 0, len(names))
	for _, name := range names {
		apps = append(apps, forecast.ApplianceUsage{Name: name, PowerRatingWatts: 100, Count: 1, TotalUsageMinutes: 60})
	}
	return forecast.UsageFacts{
		SubmissionID: uuid.New(),
		Location:     location,
		Coordinates:  forecast.Coordinates{Latitude: lat, Longitude: 77.6},
		Appliances:   apps,
		Weather:      forecast.WeatherSnapshot{Temperature: &temp},
	}
}

func TestMemoryRepositoryUpsertsLocationAndWeather(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, facts("Lat: 12.9, Lng: 77.6", 12.9, 20, "Fan", "Lamp")))
	first, ok := repo.Location("Lat: 12.9, Lng: 77.6")
	require.True(t, ok)

	require.NoError(t, repo.Save(ctx, facts("Lat: 12.9, Lng: 77.6", 12.9, 25, "Heater")))
	second, ok := repo.Location("Lat: 12.9, Lng: 77.6")
	require.True(t, ok)
	require.Equal(t, first.ID, second.ID)

	weather, ok := repo.Weather(first.ID)
	require.True(t, ok)
	require.Equal(t, 25.0, *weather.Temperature)

	rows := repo.Appliances()
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, first.ID, row.LocationID)
	}
	require.Equal(t, 2, repo.Saves())
}

func TestMemoryRepositorySeparatesLocations(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, facts("a", 1, 20, "Fan")))
	require.NoError(t, repo.Save(ctx, facts("b", 2, 21, "Fan")))

	a, _ := repo.Location("a")
	b, _ := repo.Location("b")
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, 2.0, b.Latitude)
}
