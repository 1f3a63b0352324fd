package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Dependencies map[string]dependencyStatus `json:"dependencies,omitempty"`
}

// Liveness handles GET /health
func Liveness(c echo.Context) error {
	return ok(c, healthResponse{Status: "ok", Service: serviceName})
}

// Readiness handles GET /health/ready by pinging every dependency
func Readiness(checks map[string]HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		deps := lo.MapValues(checks, func(check HealthCheck, _ string) dependencyStatus {
			if err := check(ctx); err != nil {
				return dependencyStatus{Status: "down", Error: err.Error()}
			}
			return dependencyStatus{Status: "up"}
		})

		healthy := lo.EveryBy(lo.Values(deps), func(d dependencyStatus) bool { return d.Status == "up" })
		if !healthy {
			body := healthResponse{Status: "unavailable", Service: serviceName, Dependencies: deps}
			return c.JSON(http.StatusServiceUnavailable, envelope{
				Data:       body,
				Error:      "dependencies unavailable",
				StatusCode: http.StatusServiceUnavailable,
			})
		}
		return ok(c, healthResponse{Status: "ok", Service: serviceName, Dependencies: deps})
	}
}
