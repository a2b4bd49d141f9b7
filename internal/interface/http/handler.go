package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/energy-forecast/internal/domain/forecast"
	"github.com/yanqian/energy-forecast/pkg/metrics"
)

// Handler wires the HTTP transport to the forecast pipeline.
type Handler struct {
	svc    forecast.Service
	stats  *metrics.Pipeline
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc forecast.Service, stats *metrics.Pipeline, logger *slog.Logger) *Handler {
	if stats == nil {
		stats = metrics.NewPipeline()
	}
	return &Handler{
		svc:    svc,
		stats:  stats,
		logger: logger.With("component", "http.handler"),
	}
}

// Predict runs one submission through the pipeline.
func (h *Handler) Predict(c *gin.Context) {
	var req forecast.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, forecast.CodeInvalidInput, forecast.StageReceived.Step(), err.Error(), err))
		return
	}

	resp, err := h.svc.Predict(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Metrics exposes the pipeline counters.
func (h *Handler) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
