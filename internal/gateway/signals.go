package gateway

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arc-self/supplyrisk/internal/bus"
	"github.com/arc-self/supplyrisk/internal/schema"
)

// publishedRecord describes one record accepted and published.
type publishedRecord struct {
	ID              string `json:"id"`
	Stream          string `json:"stream"`
	PublishedAtUTC  string `json:"published_at_utc"`
}

type signalsRequest struct {
	Signals []schema.RawExternalSignal `json:"signals"`
}

type signalsResponse struct {
	Published []publishedRecord `json:"published"`
}

// RegisterSignalRoutes mounts POST /signals on e: it accepts a batch of
// RawExternalSignal, enforces maxRecords, and publishes each directly onto
// raw-input-signals for a downstream normalizer worker to pick up.
func RegisterSignalRoutes(e *echo.Echo, b *bus.Bus, maxRecords int, counters *Counters, log *zap.Logger) {
	e.POST("/signals", func(c echo.Context) error {
		var req signalsRequest
		if err := c.Bind(&req); err != nil {
			return WriteError(c, http.StatusBadRequest, "invalid_body", "request body is not valid JSON")
		}
		if maxRecords > 0 && len(req.Signals) > maxRecords {
			return WriteError(c, http.StatusUnprocessableEntity, "batch_too_large", "signals batch exceeds the configured per-request limit")
		}

		atomic.AddInt64(&counters.SignalsReceived, int64(len(req.Signals)))

		published := make([]publishedRecord, 0, len(req.Signals))
		for _, raw := range req.Signals {
			id, err := bus.Publish(c.Request().Context(), b, schema.StreamRawInputSignals, raw)
			if err != nil {
				log.Error("signal gateway publish failed", zap.Error(err))
				return WriteError(c, http.StatusInternalServerError, "publish_failed", "failed to publish one or more signals")
			}
			atomic.AddInt64(&counters.SignalsPublished, 1)
			published = append(published, publishedRecord{
				ID:             id,
				Stream:         schema.StreamRawInputSignals,
				PublishedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
			})
		}

		return c.JSON(http.StatusOK, signalsResponse{Published: published})
	})
}
