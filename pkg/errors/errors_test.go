package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithStageKeepsCode(t *testing.T) {
	base := Wrap("weather_unavailable", "weather provider failed", stderrors.New("status 500"))
	staged := WithStage(base, "weather")

	require.True(t, IsCode(staged, "weather_unavailable"))
	require.Equal(t, "weather", StageOf(staged))
	require.Empty(t, StageOf(base))
	require.Contains(t, staged.Error(), "status 500")
}

func TestWithStageWrapsForeignErrors(t *testing.T) {
	staged := WithStage(stderrors.New("boom"), "predict")
	require.Equal(t, "internal_error", CodeOf(staged))
	require.Equal(t, "predict", StageOf(staged))
	require.Nil(t, WithStage(nil, "predict"))
}

func TestCodeOfFindsWrappedAppError(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap("invalid_location", "bad location", nil))
	require.Equal(t, "invalid_location", CodeOf(err))
	require.Equal(t, "", CodeOf(stderrors.New("plain")))
}
