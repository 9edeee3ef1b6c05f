package httpapi

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-explorer/internal/geo"
	"github.com/i474232898/weather-explorer/internal/state"
	"github.com/i474232898/weather-explorer/internal/weather"
)

var validate = validator.New()

// Orchestrator is the user-action surface driving the state store.
type Orchestrator interface {
	OnGlobeClick(ctx context.Context, x, y, z float64) error
	OnCoordinatesSelected(ctx context.Context, p geo.Point) error
	OnCitySearch(ctx context.Context, city string) error
	Retry(ctx context.Context) error
}

type WeatherFetcher interface {
	FetchByCoords(ctx context.Context, p geo.Point) (weather.Report, error)
	FetchByCity(ctx context.Context, name string) (weather.Report, error)
}

type NarrativeGenerator interface {
	Generate(ctx context.Context, current weather.CurrentWeather, forecast []weather.ForecastDay) (string, error)
}

type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]weather.RecentLocation, error)
}

// Deps are the collaborators served over HTTP.
type Deps struct {
	Orchestrator Orchestrator
	State        *state.Store
	Weather      WeatherFetcher
	Narrative    NarrativeGenerator
	Recent       RecentLister
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	v1 := app.Group("/api/v1")

	v1.Post("/globe/click", func(c *fiber.Ctx) error {
		var req clickRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return d.respondState(c, d.Orchestrator.OnGlobeClick(c.UserContext(), *req.X, *req.Y, *req.Z))
	})

	v1.Post("/locations/select", func(c *fiber.Ctx) error {
		var req pointRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return d.respondState(c, d.Orchestrator.OnCoordinatesSelected(c.UserContext(), req.point()))
	})

	v1.Post("/search", func(c *fiber.Ctx) error {
		var req searchRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		return d.respondState(c, d.Orchestrator.OnCitySearch(c.UserContext(), req.City))
	})

	v1.Post("/retry", func(c *fiber.Ctx) error {
		return d.respondState(c, d.Orchestrator.Retry(c.UserContext()))
	})

	v1.Get("/state", func(c *fiber.Ctx) error {
		return c.JSON(d.State.Snapshot())
	})

	v1.Delete("/state", func(c *fiber.Ctx) error {
		d.State.Clear()
		return c.JSON(d.State.Snapshot())
	})

	v1.Get("/weather/coords", func(c *fiber.Ctx) error {
		p, err := parsePointQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		report, err := d.Weather.FetchByCoords(c.UserContext(), p)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	v1.Get("/weather/city/:city", func(c *fiber.Ctx) error {
		city, err := url.PathUnescape(c.Params("city"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid city")
		}
		report, err := d.Weather.FetchByCity(c.UserContext(), city)
		if err != nil {
			return err
		}
		return c.JSON(report)
	})

	v1.Post("/narrative", func(c *fiber.Ctx) error {
		var req narrativeRequest
		if err := bindJSON(c, &req); err != nil {
			return err
		}
		text, err := d.Narrative.Generate(c.UserContext(), *req.WeatherData, req.ForecastData)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"narrative": text})
	})

	v1.Get("/recent-locations", func(c *fiber.Ctx) error {
		q := recentQuery{Limit: c.QueryInt("limit", 10)}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		locs, err := d.Recent.Recent(c.UserContext(), q.Limit)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"locations": locs})
	})
}

// respondState returns the store snapshot, with the request's status code
// when the orchestrated action failed.
func (d Deps) respondState(c *fiber.Ctx, err error) error {
	snap := d.State.Snapshot()
	if err == nil {
		return c.JSON(snap)
	}

	msg := err.Error()
	if snap.Error != nil {
		msg = *snap.Error
	}
	return c.Status(StatusFor(err)).JSON(fiber.Map{
		"error":   true,
		"message": msg,
		"state":   snap,
	})
}

type clickRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
	Z *float64 `json:"z" validate:"required"`
}

// pointRequest uses pointers so that 0 passes "required".
type pointRequest struct {
	Lat *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
}

func (p pointRequest) point() geo.Point {
	return geo.Point{Lat: *p.Lat, Lon: *p.Lon}
}

type searchRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

type narrativeRequest struct {
	WeatherData  *weather.CurrentWeather `json:"weatherData" validate:"required"`
	ForecastData []weather.ForecastDay   `json:"forecastData"`
}

type recentQuery struct {
	Limit int `validate:"min=1,max=100"`
}

func bindJSON(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func parsePointQuery(c *fiber.Ctx) (geo.Point, error) {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return geo.Point{}, errors.New("lat and lon query parameters are required")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return geo.Point{}, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return geo.Point{}, errors.New("lon must be a number")
	}

	p := geo.Point{Lat: lat, Lon: lon}
	return p, p.Validate()
}
