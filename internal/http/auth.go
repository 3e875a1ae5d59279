package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// requireAPIKey gates an endpoint on the X-API-Key header.
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		presented := c.Request().Header.Get("X-API-Key")
		if presented == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
		}
		for _, key := range s.cfg.APIKeys {
			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1 {
				return next(c)
			}
		}
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	}
}

// requireBearer verifies the bearer token and places its tenant scope in
// the request context. Everything downstream reads the scope from there.
func (s *Server) requireBearer(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}

		scope, err := s.issuer.Verify(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		ctx := tenant.ContextWithScope(c.Request().Context(), scope)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}
