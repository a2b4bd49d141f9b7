package forecast

import apperrors "github.com/yanqian/energy-forecast/pkg/errors"

// Error codes surfaced by the pipeline.
const (
	CodeInvalidInput          = "invalid_input"
	CodeInvalidLocation       = "invalid_location"
	CodeInvalidApplianceUsage = "invalid_appliance_usage"
	CodeWeatherUnavailable    = "weather_unavailable"
	CodePersistenceFailure    = "persistence_failure"
	CodeModelInvocation       = "model_invocation_error"
	CodeModelOutputParse      = "model_output_parse_error"
)

// Stage is a pipeline state.
type Stage string

const (
	StageReceived         Stage = "received"
	StageLocationResolved Stage = "location_resolved"
	StageWeatherEnriched  Stage = "weather_enriched"
	StageUsageRecorded    Stage = "usage_recorded"
	StageFeaturesBuilt    Stage = "features_built"
	StagePredicted        Stage = "predicted"
	StageBilled           Stage = "billed"
	StageCompleted        Stage = "completed"
	StageFailed           Stage = "failed"
)

// stepNames label the work done to reach each state; failures report the step.
var stepNames = map[Stage]string{
	StageReceived:         "request",
	StageLocationResolved: "location",
	StageWeatherEnriched:  "weather",
	StageUsageRecorded:    "recording",
	StageFeaturesBuilt:    "features",
	StagePredicted:        "prediction",
	StageBilled:           "billing",
}

// Step names the work performed to reach s.
func (s Stage) Step() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return string(s)
}

// FailedStep returns the step a pipeline error was raised in, or "" when err did
// not come from the pipeline.
func FailedStep(err error) string {
	return apperrors.StageOf(err)
}
