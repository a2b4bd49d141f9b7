package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
)

var keyMu sync.Mutex

// Client resolves place names through the Google geocoding API.
type Client struct {
	lookup func(geocoder.Address) (geocoder.Location, error)
}

// NewClient configures the API key and returns a client.
func NewClient(apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("geocoding api key is required")
	}
	keyMu.Lock()
	geocoder.ApiKey = apiKey
	keyMu.Unlock()
	return &Client{lookup: geocoder.Geocoding}, nil
}

// Geocode implements forecast.Geocoder. The underlying library has no context
// support, so cancellation abandons the lookup rather than aborting it.
func (c *Client) Geocode(ctx context.Context, place string) (forecast.Coordinates, error) {
	place = strings.TrimSpace(place)
	if place == "" {
		return forecast.Coordinates{}, errors.New("place name is empty")
	}

	type outcome struct {
		loc geocoder.Location
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		loc, err := c.lookup(geocoder.Address{City: place})
		done <- outcome{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return forecast.Coordinates{}, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return forecast.Coordinates{}, fmt.Errorf("geocode %q: %w", place, res.err)
		}
		if res.loc.Latitude == 0 && res.loc.Longitude == 0 {
			return forecast.Coordinates{}, fmt.Errorf("geocode %q: no result", place)
		}
		return forecast.Coordinates{Latitude: res.loc.Latitude, Longitude: res.loc.Longitude}, nil
	}
}

var _ forecast.Geocoder = (*Client)(nil)
