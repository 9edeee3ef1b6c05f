package httpapi

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-explorer/internal/app"
	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/narrative"
	"github.com/i474232898/weather-explorer/internal/weather"
)

// StatusFor maps a domain error to an HTTP status code.
func StatusFor(err error) int {
	var (
		fe       *fiber.Error
		ve       validator.ValidationErrors
		upstream *weather.UpstreamError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve),
		errors.Is(err, geo.ErrDegenerateInput),
		errors.Is(err, geo.ErrInvalidLatitude),
		errors.Is(err, geo.ErrInvalidLongitude),
		errors.Is(err, weather.ErrInvalidCity):
		return fiber.StatusBadRequest
	case errors.Is(err, weather.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, app.ErrSuperseded), errors.Is(err, app.ErrNothingToRetry):
		return fiber.StatusConflict
	case errors.Is(err, weather.ErrTimeout):
		return fiber.StatusGatewayTimeout
	case errors.As(err, &upstream):
		return fiber.StatusBadGateway
	case errors.Is(err, narrative.ErrUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is the centralized fiber error response.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return c.Status(StatusFor(err)).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
