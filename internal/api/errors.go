package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"moviestats/internal/engine"
	"moviestats/internal/models"
)

// NewErrorHandler renders every handler error as a models.ErrorResponse.
// Dataset failures map to 503, bad parameters to 400.
func NewErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := toErrorResponse(err)
		switch {
		case status >= http.StatusInternalServerError && !isDatasetError(err) && !errors.Is(err, errLoading):
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		case status >= http.StatusInternalServerError:
			logger.Debug("dataset unavailable", zap.String("path", c.Path()), zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			logger.Error("write error response", zap.Error(err))
		}
	}
}

func toErrorResponse(err error) (int, models.ErrorResponse) {
	var (
		argErr    *engine.InvalidArgumentError
		rangeErr  *engine.InvalidRangeError
		loadErr   *engine.LoadError
		schemaErr *engine.SchemaError
		httpErr   *echo.HTTPError
	)

	switch {
	case errors.As(err, &argErr):
		return http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_argument",
			Message: err.Error(),
			Details: map[string]any{"name": argErr.Name, "value": fmt.Sprint(argErr.Value)},
		}
	case errors.As(err, &rangeErr):
		return http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_range",
			Message: err.Error(),
			Details: map[string]any{"from": rangeErr.Min, "to": rangeErr.Max},
		}
	case errors.As(err, &loadErr):
		details := map[string]any{"uri": loadErr.URI, "op": loadErr.Op}
		if loadErr.StatusCode != 0 {
			details["status_code"] = loadErr.StatusCode
		}
		return http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "dataset_unavailable",
			Message: "cannot proceed, no data: " + err.Error(),
			Details: details,
		}
	case errors.As(err, &schemaErr):
		return http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "dataset_schema",
			Message: "cannot proceed, no data: " + err.Error(),
			Details: map[string]any{"uri": schemaErr.URI, "column": schemaErr.Column, "reason": schemaErr.Reason},
		}
	case errors.As(err, &httpErr):
		return httpErr.Code, models.ErrorResponse{
			Error:   strings.ReplaceAll(strings.ToLower(http.StatusText(httpErr.Code)), " ", "_"),
			Message: fmt.Sprint(httpErr.Message),
		}
	default:
		return http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal",
			Message: "internal server error",
		}
	}
}
