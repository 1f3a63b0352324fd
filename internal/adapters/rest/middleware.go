package rest

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"subastas-marketplace/internal/adapters/metrics"
	"subastas-marketplace/internal/domain/shared"
	"subastas-marketplace/internal/domain/tenant"
	"subastas-marketplace/internal/ports/inbound"
)

const (
	principalKey = "principal"
	tenantHeader = "X-Tenant-ID"
	bearerScheme = "bearer"
	unknownRoute = "unmatched"
)

// Auth verifies the bearer access token and stores the caller's principal
func Auth(auth inbound.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			principal, err := auth.Authenticate(c.Request().Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(principalKey, *principal)
			return next(c)
		}
	}
}

// ResolveTenant picks the tenant a request runs against: the X-Tenant-ID
// header, else the subdomain of a host under rootDomain, else the token's
// tenant. Non-admins may only act in their own tenant.
func ResolveTenant(tenants inbound.TenantService, rootDomain string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := principalFrom(c)
			if err != nil {
				return err
			}

			resolved, err := resolveTenantID(c, tenants, rootDomain)
			if err != nil {
				return err
			}
			if resolved == uuid.Nil {
				resolved = p.TenantID
			}
			if resolved == uuid.Nil {
				return echo.NewHTTPError(http.StatusBadRequest, "tenant could not be resolved")
			}
			if resolved != p.TenantID && !p.IsAdmin() {
				return shared.ErrTenantMismatch
			}

			p.TenantID = resolved
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

func resolveTenantID(c echo.Context, tenants inbound.TenantService, rootDomain string) (uuid.UUID, error) {
	if header := c.Request().Header.Get(tenantHeader); header != "" {
		id, err := uuid.Parse(header)
		if err != nil {
			return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+tenantHeader+" header")
		}
		return id, nil
	}

	sub, ok := tenant.SubdomainFromHost(c.Request().Host, rootDomain)
	if !ok {
		return uuid.Nil, nil
	}
	t, err := tenants.GetTenantByDomain(c.Request().Context(), sub)
	if err != nil {
		return uuid.Nil, err
	}
	return t.ID, nil
}

// AdminOnly rejects callers without the admin role
func AdminOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := principalFrom(c)
			if err != nil {
				return err
			}
			if !p.IsAdmin() {
				return shared.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequestLogger logs every request through zerolog and records HTTP metrics
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			route := v.RoutePath
			if route == "" {
				route = unknownRoute
			}
			metrics.ObserveHTTP(v.Method, route, v.Status, v.Latency.Seconds())

			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error().Err(v.Error)
			}
			event.
				Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("Request handled")
			return nil
		},
	})
}

func principalFrom(c echo.Context) (inbound.Principal, error) {
	p, ok := c.Get(principalKey).(inbound.Principal)
	if !ok || p.UserID == uuid.Nil {
		return inbound.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return p, nil
}
