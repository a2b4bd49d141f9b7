package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	apperrors "github.com/yanqian/energy-forecast/pkg/errors"
)

// HTTPError is the transport view of a failed request: the status to send and
// the code, stage and message placed in the error envelope.
type HTTPError struct {
	Status  int
	Code    string
	Stage   string
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error { return e.Err }

// NewHTTPError builds an error answered at the given pipeline stage.
func NewHTTPError(status int, code, stage, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Stage: stage, Message: message, Err: err}
}

// body renders {"error":{"code","stage","message"}}; stage is omitted when unknown.
func (e *HTTPError) body() gin.H {
	message := e.Message
	if message == "" {
		message = e.Error()
	}
	inner := gin.H{"code": e.Code, "message": message}
	if e.Stage != "" {
		inner["stage"] = e.Stage
	}
	return gin.H{"error": inner}
}

// asHTTPError maps transport errors, pipeline errors and anything else onto
// the envelope. Unclassified errors hide their text.
func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	if code := apperrors.CodeOf(err); code != "" {
		return NewHTTPError(statusFor(code), code, apperrors.StageOf(err), err.Error(), err)
	}
	return NewHTTPError(http.StatusInternalServerError, "internal_error", "", "something went wrong", err)
}

func statusFor(code string) int {
	switch code {
	case forecast.CodeInvalidInput, forecast.CodeInvalidLocation, forecast.CodeInvalidApplianceUsage:
		return http.StatusBadRequest
	case forecast.CodeWeatherUnavailable, forecast.CodeModelInvocation, forecast.CodeModelOutputParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
