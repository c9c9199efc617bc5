// Package httpserver builds the echo server the event-ingestion service
// runs behind: standard middleware stack, health check, and graceful
// shutdown, shared across every HTTP-facing command.
package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config controls the server's middleware stack and timeouts.
type Config struct {
	Port            int
	Debug           bool
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimitPerSec float64
	RateLimitBurst  int
}

// DefaultConfig returns sensible defaults for all of the above.
func DefaultConfig() Config {
	return Config{
		Port:            8080,
		BodyLimit:       "2M",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigins:  []string{"*"},
		RateLimitPerSec: 50,
		RateLimitBurst:  100,
	}
}

// New builds an *echo.Echo with logging, recovery, body-limit, CORS, and
// request-ID middleware applied.
func New(cfg Config, logger *logrus.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.Debug

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(SecurityHeadersMiddleware())
	if cfg.RateLimitPerSec > 0 {
		e.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: newIPRateLimiterStore(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		}))
	}

	e.HTTPErrorHandler = CustomHTTPErrorHandler(logger)

	e.GET("/healthz", HealthCheckHandler("eventline", "1.0.0"))

	return e
}

// HealthResponse is the body of the health check endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// HealthCheckHandler returns a handler that always reports healthy; the
// process having an HTTP listener at all is the signal this checks.
func HealthCheckHandler(service, version string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: service, Version: version})
	}
}

// Start runs e until it errors or is shut down, applying cfg's timeouts.
func Start(e *echo.Echo, cfg Config) error {
	s := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return e.StartServer(s)
}

// Shutdown gracefully stops e, bounded by cfg.ShutdownTimeout.
func Shutdown(e *echo.Echo, cfg Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(ctx)
}

// SecurityHeadersMiddleware sets the small set of response headers that
// cost nothing to always send.
func SecurityHeadersMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-Content-Type-Options", "nosniff")
			c.Response().Header().Set("X-Frame-Options", "DENY")
			return next(c)
		}
	}
}

// errorResponse is the JSON body CustomHTTPErrorHandler sends.
type errorResponse struct {
	Error string `json:"error"`
}

// CustomHTTPErrorHandler logs the error and writes a JSON body with the
// HTTP error's status code, falling back to 500 for anything that isn't
// an *echo.HTTPError.
func CustomHTTPErrorHandler(logger *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		message := err.Error()

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}

		if code >= http.StatusInternalServerError {
			logger.WithField("path", c.Request().URL.Path).WithError(err).Error("request failed")
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: message})
	}
}
