package predictor

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
)

// Columns is the artifact header, in file order.
var Columns = []string{
	"appliance", "power_watts", "count", "usage_minutes", "days_per_week",
	"slots_morning", "slots_noon", "slots_evening", "slots_night",
	"temperature", "humidity", "wind_speed", "visibility", "pressure", "cloud_cover",
	"wind_bearing", "precip_intensity", "precip_probability",
	"month", "day", "hour", "weekday",
}

// WriteArtifact encodes records as CSV with a header row. Missing weather
// values are written as empty cells.
func WriteArtifact(w io.Writer, records []forecast.FeatureRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.Appliance,
			formatFloat(rec.PowerWatts),
			strconv.Itoa(rec.Count),
			strconv.Itoa(rec.UsageMinutes),
			strconv.Itoa(rec.DaysPerWeek),
			strconv.Itoa(rec.SlotsMorning),
			strconv.Itoa(rec.SlotsNoon),
			strconv.Itoa(rec.SlotsEvening),
			strconv.Itoa(rec.SlotsNight),
			formatOptional(rec.Temperature),
			formatOptional(rec.Humidity),
			formatOptional(rec.WindSpeed),
			formatOptional(rec.Visibility),
			formatOptional(rec.Pressure),
			formatOptional(rec.CloudCover),
			formatOptional(rec.WindBearing),
			formatOptional(rec.PrecipIntensity),
			formatOptional(rec.PrecipProbability),
			strconv.Itoa(rec.Month),
			strconv.Itoa(rec.Day),
			strconv.Itoa(rec.Hour),
			strconv.Itoa(rec.Weekday),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ParseArtifact reads an artifact produced by WriteArtifact.
func ParseArtifact(r io.Reader) ([]forecast.FeatureRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read artifact header: %w", err)
	}
	for i, name := range Columns {
		if header[i] != name {
			return nil, fmt.Errorf("artifact column %d: want %q, got %q", i, name, header[i])
		}
	}

	var records []forecast.FeatureRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read artifact row: %w", err)
		}
		p := rowParser{row: row}
		rec := forecast.FeatureRecord{
			Appliance:         row[0],
			PowerWatts:        p.number(1),
			Count:             p.integer(2),
			UsageMinutes:      p.integer(3),
			DaysPerWeek:       p.integer(4),
			SlotsMorning:      p.integer(5),
			SlotsNoon:         p.integer(6),
			SlotsEvening:      p.integer(7),
			SlotsNight:        p.integer(8),
			Temperature:       p.optional(9),
			Humidity:          p.optional(10),
			WindSpeed:         p.optional(11),
			Visibility:        p.optional(12),
			Pressure:          p.optional(13),
			CloudCover:        p.optional(14),
			WindBearing:       p.optional(15),
			PrecipIntensity:   p.optional(16),
			PrecipProbability: p.optional(17),
			Month:             p.integer(18),
			Day:               p.integer(19),
			Hour:              p.integer(20),
			Weekday:           p.integer(21),
		}
		if p.err != nil {
			return nil, fmt.Errorf("artifact line %d: %w", line, p.err)
		}
		records = append(records, rec)
	}
	return records, nil
}

type rowParser struct {
	row []string
	err error
}

func (p *rowParser) number(i int) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[i], 64)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", Columns[i], err)
	}
	return v
}

func (p *rowParser) integer(i int) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[i])
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", Columns[i], err)
	}
	return v
}

func (p *rowParser) optional(i int) *float64 {
	if p.row[i] == "" {
		return nil
	}
	v := p.number(i)
	if p.err != nil {
		return nil
	}
	return &v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
