package forecast

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Request is the submission accepted by the prediction pipeline.
type Request struct {
	Location      string       `json:"location" validate:"required"`
	Appliances    ApplianceSet `json:"appliances" validate:"required,min=1"`
	ConsumerNo    string       `json:"consumerNo,omitempty" validate:"omitempty,max=64"`
	Phase         string       `json:"phase,omitempty" validate:"omitempty,oneof=1-Phase 3-Phase"`
	SelectedDates []string     `json:"selectedDates,omitempty" validate:"omitempty,dive,required"`
}

// ApplianceInput is one appliance as typed into the form.
type ApplianceInput struct {
	Power     FlexFloat           `json:"power"`
	Count     FlexFloat           `json:"count"`
	Days      []string            `json:"days"`
	Times     map[string][]string `json:"times"`
	UsageTime FlexString          `json:"usageTime"`
}

// NamedAppliance keeps the appliance name next to its input. DecodeErr is set
// when the value could not be read as an ApplianceInput; such entries are
// excluded during normalisation instead of failing the submission.
type NamedAppliance struct {
	Name      string
	Input     ApplianceInput
	DecodeErr error
}

// ApplianceSet is the "appliances" object decoded in document order.
type ApplianceSet []NamedAppliance

// UnmarshalJSON walks the object token by token so submission order survives decoding.
func (s *ApplianceSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("appliances must be an object keyed by appliance name")
	}
	out := ApplianceSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("appliance %q: %w", name, err)
		}
		item := NamedAppliance{Name: name}
		if err := json.Unmarshal(raw, &item.Input); err != nil {
			item.Input = ApplianceInput{}
			item.DecodeErr = err
		}
		out = append(out, item)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalJSON writes the set back as an object, preserving order.
func (s ApplianceSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, item := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(item.Name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(item.Input)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FlexFloat accepts a JSON number or a numeric string. Empty or unparsable
// strings decode to zero and are rejected later by appliance validation.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*f = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = FlexFloat(parsed)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// FlexString accepts a JSON string or number.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
		*s = FlexString(text)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// Coordinates is a resolved latitude/longitude pair.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Weekday is a normalized full English day name.
type Weekday string

// TimeBucket is a coarse time-of-day slot.
type TimeBucket string

const (
	BucketMorning TimeBucket = "Morning"
	BucketNoon    TimeBucket = "Noon"
	BucketEvening TimeBucket = "Evening"
	BucketNight   TimeBucket = "Night"
)

// ApplianceUsage is a validated appliance declaration.
type ApplianceUsage struct {
	Name              string                   `json:"name"`
	PowerRatingWatts  float64                  `json:"powerRatingWatts"`
	Count             int                      `json:"count"`
	UsageDays         []Weekday                `json:"usageDays"`
	UsageTimesByDay   map[Weekday][]TimeBucket `json:"usageTimesByDay"`
	TotalUsageMinutes int                      `json:"totalUsageMinutes"`
}

// UsageHours reports the declared duration in hours.
func (a ApplianceUsage) UsageHours() float64 {
	return float64(a.TotalUsageMinutes) / 60
}

// ExcludedAppliance explains why an appliance was left out of the feature set.
type ExcludedAppliance struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// WeatherSnapshot is a single observation plus the calendar context of the fetch.
// Nil fields were absent from the provider response.
type WeatherSnapshot struct {
	Temperature       *float64  `json:"temperature"`
	Humidity          *float64  `json:"humidity"`
	WindSpeed         *float64  `json:"windSpeed"`
	Visibility        *float64  `json:"visibility"`
	Pressure          *float64  `json:"pressure"`
	CloudCover        *float64  `json:"cloudCover"`
	WindBearing       *float64  `json:"windBearing"`
	PrecipIntensity   *float64  `json:"precipIntensity"`
	PrecipProbability *float64  `json:"precipProbability"`
	Month             int       `json:"month"`
	Day               int       `json:"day"`
	Hour              int       `json:"hour"`
	Weekday           int       `json:"weekday"`
	FetchedAt         time.Time `json:"fetchedAt"`
}

// CalendarFrom fills the calendar context from ts. Weekday counts from Sunday = 0.
func (w *WeatherSnapshot) CalendarFrom(ts time.Time) {
	w.Month = int(ts.Month())
	w.Day = ts.Day()
	w.Hour = ts.Hour()
	w.Weekday = int(ts.Weekday())
	w.FetchedAt = ts
}

// FeatureRecord is one model input row: an appliance joined with the weather snapshot.
type FeatureRecord struct {
	Appliance         string
	PowerWatts        float64
	Count             int
	UsageMinutes      int
	DaysPerWeek       int
	SlotsMorning      int
	SlotsNoon         int
	SlotsEvening      int
	SlotsNight        int
	Temperature       *float64
	Humidity          *float64
	WindSpeed         *float64
	Visibility        *float64
	Pressure          *float64
	CloudCover        *float64
	WindBearing       *float64
	PrecipIntensity   *float64
	PrecipProbability *float64
	Month             int
	Day               int
	Hour              int
	Weekday           int
}

// DailyUsage is one forecast period.
type DailyUsage struct {
	Date         string  `json:"date"`
	PredictedUse float64 `json:"predicted_use"`
}

// PredictionResult is the decoded output of the external model.
type PredictionResult struct {
	PredictedEnergy   []DailyUsage       `json:"predicted_energy"`
	FeatureImportance map[string]float64 `json:"featureImportance,omitempty"`
	Recommendations   []string           `json:"recommendations,omitempty"`
}

// TotalEnergyUsage sums the predicted usage over the forecast horizon.
func (p PredictionResult) TotalEnergyUsage() float64 {
	var total float64
	for _, d := range p.PredictedEnergy {
		total += d.PredictedUse
	}
	return total
}

// BillEstimate is the monetary view of a prediction.
type BillEstimate struct {
	TotalBill        float64 `json:"total_bill"`
	TotalEnergyUsage float64 `json:"total_energy_usage"`
	TariffRate       float64 `json:"tariff_rate"`
	Currency         string  `json:"currency,omitempty"`
}

// Response is serialized back to API consumers.
type Response struct {
	RequestID          string              `json:"requestId"`
	Prediction         PredictionResult    `json:"prediction"`
	BillAmount         BillEstimate        `json:"billAmount"`
	Recommendations    []string            `json:"recommendations"`
	ExcludedAppliances []ExcludedAppliance `json:"excludedAppliances,omitempty"`
}

// UsageFacts is everything the recorder persists for one submission.
type UsageFacts struct {
	SubmissionID  uuid.UUID        `json:"submissionId"`
	Location      string           `json:"location"`
	Coordinates   Coordinates      `json:"coordinates"`
	ConsumerNo    string           `json:"consumerNo,omitempty"`
	Phase         string           `json:"phase,omitempty"`
	SelectedDates []string         `json:"selectedDates,omitempty"`
	Appliances    []ApplianceUsage `json:"appliances"`
	Weather       WeatherSnapshot  `json:"weather"`
	SubmittedAt   time.Time        `json:"submittedAt"`
}

// Config wires runtime policy for the pipeline.
type Config struct {
	TariffRate float64
	Currency   string
	Ladder     []Advisory
}
