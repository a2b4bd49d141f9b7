package forecast

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/yanqian/energy-forecast/pkg/errors"
)

var coordinatePattern = regexp.MustCompile(`(?i)lat\s*:\s*([-+]?\d+(?:\.\d+)?)\s*,\s*lng\s*:\s*([-+]?\d+(?:\.\d+)?)`)

// LocationResolver turns the free-form location into coordinates.
type LocationResolver struct {
	geocoder Geocoder
}

// NewLocationResolver builds a resolver; geocoder may be nil to disable place-name lookup.
func NewLocationResolver(geocoder Geocoder) *LocationResolver {
	return &LocationResolver{geocoder: geocoder}
}

// Resolve extracts an embedded "Lat: x, Lng: y" pair, falling back to the geocoder
// for plain place names.
func (r *LocationResolver) Resolve(ctx context.Context, location string) (Coordinates, error) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return Coordinates{}, apperrors.Wrap(CodeInvalidLocation, "location cannot be empty", nil)
	}
	coords, found, err := ParseCoordinates(trimmed)
	if err != nil {
		return Coordinates{}, apperrors.Wrap(CodeInvalidLocation, "location coordinates out of range", err)
	}
	if found {
		return coords, nil
	}
	if r.geocoder == nil {
		return Coordinates{}, apperrors.Wrap(CodeInvalidLocation, "location must contain \"Lat: <lat>, Lng: <lng>\"", nil)
	}
	coords, err = r.geocoder.Geocode(ctx, trimmed)
	if err != nil {
		return Coordinates{}, apperrors.Wrap(CodeInvalidLocation, "location could not be geocoded", err)
	}
	if err := checkRange(coords); err != nil {
		return Coordinates{}, apperrors.Wrap(CodeInvalidLocation, "geocoder returned invalid coordinates", err)
	}
	return coords, nil
}

// ParseCoordinates is the pure part of resolution. found is false when the string
// carries no coordinate pattern.
func ParseCoordinates(location string) (coords Coordinates, found bool, err error) {
	match := coordinatePattern.FindStringSubmatch(location)
	if match == nil {
		return Coordinates{}, false, nil
	}
	lat, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return Coordinates{}, true, err
	}
	lng, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return Coordinates{}, true, err
	}
	coords = Coordinates{Latitude: lat, Longitude: lng}
	if err := checkRange(coords); err != nil {
		return Coordinates{}, true, err
	}
	return coords, true, nil
}

func checkRange(c Coordinates) error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude %v outside [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude %v outside [-180, 180]", c.Longitude)
	}
	return nil
}
