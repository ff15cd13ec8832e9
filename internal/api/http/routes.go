package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/aqi-traffic-ingestion/internal/ingest"
	"github.com/i474232898/aqi-traffic-ingestion/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *ingest.Service) {
	v1 := app.Group("/api/v1")

	v1.Get("/readings/latest", func(c *fiber.Ctx) error {
		pos, err := parseStationQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		rec, err := service.GetLatest(pos.key())
		if err != nil {
			return lookupError(err, "no readings for requested station")
		}

		return c.JSON(rec)
	})

	v1.Get("/readings/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		records, err := service.GetRange(req.Station.key(), req.From, req.To)
		if err != nil {
			return lookupError(err, "no readings for requested range")
		}

		return c.JSON(fiber.Map{
			"lat":     *req.Station.Lat,
			"lon":     *req.Station.Lon,
			"from":    req.From,
			"to":      req.To,
			"records": records,
		})
	})

	v1.Get("/cycles/last", func(c *fiber.Ctx) error {
		report, ok := service.LastCycle()
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "no cycle has run yet")
		}
		return c.JSON(report)
	})
}

func lookupError(err error, notFound string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, notFound)
	case errors.Is(err, ingest.ErrNoStore):
		return fiber.NewError(fiber.StatusServiceUnavailable, "record store is disabled")
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "failed to read records")
	}
}

// stationQuery identifies a station by its exact coordinates.
type stationQuery struct {
	Lat *float64 `validate:"required,gte=-90,lte=90"`
	Lon *float64 `validate:"required,gte=-180,lte=180"`
}

func (s stationQuery) key() string {
	return ingest.StationKey(*s.Lat, *s.Lon)
}

func parseStationQuery(c *fiber.Ctx) (stationQuery, error) {
	var q stationQuery

	for name, dst := range map[string]**float64{"lat": &q.Lat, "lon": &q.Lon} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return q, errors.New(name + " must be a number")
		}
		*dst = &v
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}

	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Station stationQuery
	From    time.Time `validate:"required"`
	To      time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	pos, err := parseStationQuery(c)
	if err != nil {
		return err
	}
	h.Station = pos

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

	h.From = from
	h.To = to
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
