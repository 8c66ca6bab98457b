// Package gateway provides the shared HTTP ingress helpers used by the
// signal-ingestion and planning gateways: bearer-token auth, request-size
// and batch-size enforcement, per-service counters, and a /metrics
// endpoint, built on an echo.v4 + otelecho + zap request-handling stack.
package gateway

import (
	"net/http"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.uber.org/zap"
)

// Config configures one gateway's ingress limits and auth.
type Config struct {
	ServiceName      string
	Host             string
	Port             string
	MaxRequestBytes  int64
	MaxRecordsPerReq int
	AuthToken        string // empty disables auth
}

// Counters tracks the per-service ingress metrics exposed at /metrics.
type Counters struct {
	RequestsTotal     int64
	RequestsFailed    int64
	SignalsReceived   int64
	SignalsPublished  int64
}

// Snapshot returns the current counter values as a JSON-friendly map.
func (c *Counters) Snapshot() map[string]int64 {
	return map[string]int64{
		"requests_total":    atomic.LoadInt64(&c.RequestsTotal),
		"requests_failed":   atomic.LoadInt64(&c.RequestsFailed),
		"signals_received":  atomic.LoadInt64(&c.SignalsReceived),
		"signals_published": atomic.LoadInt64(&c.SignalsPublished),
	}
}

// errorBody is the structured failure response shape for HTTP gateways:
// {error, message} rather than a bare string.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes the structured {error, message} failure body used
// across every gateway handler.
func WriteError(c echo.Context, status int, kind, message string) error {
	return c.JSON(status, errorBody{Error: kind, Message: message})
}

// NewEcho builds an *echo.Echo wired with a standard middleware stack
// (otelecho tracing, structured request logging via zap, panic recovery),
// plus this gateway's auth and size-limit middleware, a /healthz probe,
// and a /metrics endpoint backed by counters.
func NewEcho(cfg Config, counters *Counters, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info("HTTP request", zap.String("uri", v.URI), zap.Int("status", v.Status))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(countRequests(counters))
	e.Use(enforceMaxBody(cfg.MaxRequestBytes))
	e.Use(requireBearerToken(cfg.AuthToken))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", func(c echo.Context) error {
		return c.JSON(http.StatusOK, counters.Snapshot())
	})

	return e
}

func countRequests(counters *Counters) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			atomic.AddInt64(&counters.RequestsTotal, 1)
			err := next(c)
			if err != nil || c.Response().Status >= 400 {
				atomic.AddInt64(&counters.RequestsFailed, 1)
			}
			return err
		}
	}
}

// enforceMaxBody returns 413 when the request body exceeds maxBytes. A
// non-positive maxBytes disables the check.
func enforceMaxBody(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if maxBytes <= 0 {
				return next(c)
			}
			req := c.Request()
			if req.ContentLength > maxBytes {
				return WriteError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds the configured limit")
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBytes)
			return next(c)
		}
	}
}

// requireBearerToken enforces Authorization: Bearer <token> when token is
// non-empty; an empty token disables auth entirely.
func requireBearerToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			// /healthz and /metrics are operational surfaces, not data paths.
			if c.Path() == "/healthz" || c.Path() == "/metrics" {
				return next(c)
			}
			header := c.Request().Header.Get("Authorization")
			const prefix = "Bearer "
			if len(header) <= len(prefix) || header[:len(prefix)] != prefix || header[len(prefix):] != token {
				return WriteError(c, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			}
			return next(c)
		}
	}
}
