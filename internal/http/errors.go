package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/beamd/internal/connection"
	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/integration"
	"github.com/fyrsmithlabs/beamd/internal/store"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
	"github.com/fyrsmithlabs/beamd/internal/vectorstore"
)

// httpError maps domain errors onto status codes. The error text goes
// into the response detail; sentinel wrapping keeps upstream context
// (like OAuth2 provider error descriptions) visible to the client.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, connection.ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, integration.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())

	case errors.Is(err, integration.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())

	case errors.Is(err, connection.ErrInvalid),
		errors.Is(err, document.ErrInvalid),
		errors.Is(err, integration.ErrInvalid),
		errors.Is(err, integration.ErrConfigInvalid):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, tenant.ErrMissingScope),
		errors.Is(err, tenant.ErrInvalidScope):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())

	case errors.Is(err, integration.ErrExchangeFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())

	case errors.Is(err, store.ErrConnectionFailed),
		errors.Is(err, vectorstore.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())

	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
