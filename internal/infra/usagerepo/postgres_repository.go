package usagerepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
)

const schema = `
CREATE TABLE IF NOT EXISTS locations (
	id BIGSERIAL PRIMARY KEY,
	location_name TEXT NOT NULL UNIQUE,
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS submissions (
	id UUID PRIMARY KEY,
	location_id BIGINT NOT NULL REFERENCES locations(id),
	consumer_no TEXT,
	phase TEXT,
	selected_dates JSONB NOT NULL DEFAULT '[]',
	submitted_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS appliances (
	id BIGSERIAL PRIMARY KEY,
	submission_id UUID NOT NULL REFERENCES submissions(id),
	location_id BIGINT NOT NULL REFERENCES locations(id),
	name TEXT NOT NULL,
	power_rating DOUBLE PRECISION NOT NULL,
	count INTEGER NOT NULL,
	usage_hours DOUBLE PRECISION NOT NULL,
	usage_days JSONB NOT NULL,
	time_of_usage JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS weather_data (
	id BIGSERIAL PRIMARY KEY,
	location_id BIGINT NOT NULL UNIQUE REFERENCES locations(id),
	temperature DOUBLE PRECISION,
	humidity DOUBLE PRECISION,
	wind_speed DOUBLE PRECISION,
	visibility DOUBLE PRECISION,
	pressure DOUBLE PRECISION,
	cloud_cover DOUBLE PRECISION,
	wind_bearing DOUBLE PRECISION,
	precip_intensity DOUBLE PRECISION,
	precip_probability DOUBLE PRECISION,
	month INTEGER NOT NULL,
	day INTEGER NOT NULL,
	hour INTEGER NOT NULL,
	weekday INTEGER NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL
);
`

// PostgresRepository implements forecast.UsageStore using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs the repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the tables when they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure usage schema: %w", err)
	}
	return nil
}

// Save writes the location, submission, appliances and weather in one transaction.
func (r *PostgresRepository) Save(ctx context.Context, facts forecast.UsageFacts) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin usage tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var locationID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO locations (location_name, latitude, longitude)
		VALUES ($1, $2, $3)
		ON CONFLICT (location_name) DO UPDATE
		SET latitude = EXCLUDED.latitude, longitude = EXCLUDED.longitude
		RETURNING id
	`, facts.Location, facts.Coordinates.Latitude, facts.Coordinates.Longitude).Scan(&locationID)
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}

	dates, err := json.Marshal(nonNilDates(facts.SelectedDates))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO submissions (id, location_id, consumer_no, phase, selected_dates, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, facts.SubmissionID, locationID, facts.ConsumerNo, facts.Phase, dates, facts.SubmittedAt); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	batch := &pgx.Batch{}
	for _, appliance := range facts.Appliances {
		days, err := json.Marshal(appliance.UsageDays)
		if err != nil {
			return err
		}
		times, err := json.Marshal(appliance.UsageTimesByDay)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO appliances (submission_id, location_id, name, power_rating, count, usage_hours, usage_days, time_of_usage)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, facts.SubmissionID, locationID, appliance.Name, appliance.PowerRatingWatts, appliance.Count, appliance.UsageHours(), days, times)
	}
	w := facts.Weather
	batch.Queue(`
		INSERT INTO weather_data (location_id, temperature, humidity, wind_speed, visibility, pressure, cloud_cover,
			wind_bearing, precip_intensity, precip_probability, month, day, hour, weekday, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (location_id) DO UPDATE SET
			temperature = EXCLUDED.temperature,
			humidity = EXCLUDED.humidity,
			wind_speed = EXCLUDED.wind_speed,
			visibility = EXCLUDED.visibility,
			pressure = EXCLUDED.pressure,
			cloud_cover = EXCLUDED.cloud_cover,
			wind_bearing = EXCLUDED.wind_bearing,
			precip_intensity = EXCLUDED.precip_intensity,
			precip_probability = EXCLUDED.precip_probability,
			month = EXCLUDED.month,
			day = EXCLUDED.day,
			hour = EXCLUDED.hour,
			weekday = EXCLUDED.weekday,
			fetched_at = EXCLUDED.fetched_at
	`, locationID, w.Temperature, w.Humidity, w.WindSpeed, w.Visibility, w.Pressure, w.CloudCover,
		w.WindBearing, w.PrecipIntensity, w.PrecipProbability, w.Month, w.Day, w.Hour, w.Weekday, w.FetchedAt)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write usage rows: %w", err)
	}
	return tx.Commit(ctx)
}

func nonNilDates(dates []string) []string {
	if dates == nil {
		return []string{}
	}
	return dates
}

var _ forecast.UsageStore = (*PostgresRepository)(nil)
