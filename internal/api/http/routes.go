package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/quietcity/noise-data-pipeline/internal/noise"
	"github.com/quietcity/noise-data-pipeline/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the read-only query handlers into the Fiber app.
// This is the surface the external dashboard reads through; the pipeline
// itself never goes through HTTP to reach the store.
func RegisterRoutes(app *fiber.App, st store.ReadingStore, stations []noise.Station) {
	v1 := app.Group("/api/v1")

	v1.Get("/stations", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"stations": stations})
	})

	v1.Get("/readings/latest", func(c *fiber.Ctx) error {
		locationID, err := parseLocationID(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		reading, err := st.Latest(c.Context(), locationID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings for requested location")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch latest reading")
		}

		return c.JSON(reading)
	})

	v1.Get("/readings", func(c *fiber.Ctx) error {
		var req rangeQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		readings, err := st.Range(c.Context(), req.LocationID, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no readings for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch readings")
		}

		return c.JSON(fiber.Map{
			"location_id": req.LocationID,
			"from":        req.From,
			"to":          req.To,
			"readings":    readings,
		})
	})
}

func parseLocationID(c *fiber.Ctx) (string, error) {
	id := c.Query("location_id")
	if id == "" {
		return "", errors.New("location_id query parameter is required")
	}
	return id, nil
}

// rangeQuery holds query parameters for the readings range endpoint.
type rangeQuery struct {
	LocationID string    `validate:"required"`
	From       time.Time `validate:"required"`
	To         time.Time `validate:"required,gtefield=From"`
}

func (r *rangeQuery) bind(c *fiber.Ctx) error {
	id, err := parseLocationID(c)
	if err != nil {
		return err
	}
	r.LocationID = id

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	r.From = from
	r.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
