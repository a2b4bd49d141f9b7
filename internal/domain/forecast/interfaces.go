package forecast

import "context"

// WeatherClient fetches the current observation for a coordinate pair.
type WeatherClient interface {
	Current(ctx context.Context, at Coordinates) (WeatherSnapshot, error)
}

// Geocoder turns a place name into coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (Coordinates, error)
}

// UsageRecorder persists submitted facts. Implementations may return before the
// write completes.
type UsageRecorder interface {
	Record(ctx context.Context, facts UsageFacts) error
}

// Predictor runs the external model over a feature set.
type Predictor interface {
	Predict(ctx context.Context, features []FeatureRecord) (PredictionResult, error)
}

// UsageStore writes recorded facts to durable storage.
type UsageStore interface {
	Save(ctx context.Context, facts UsageFacts) error
}
