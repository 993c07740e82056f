package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/session"
	"github.com/bobby-s-dev/weather-dashboard/pkg/client"
)

// Index handles GET /
func (h *Handler) Index(c *fiber.Ctx, sess session.Session) error {
	units := sess.Units()
	records := h.weather.Dashboard(c.UserContext(), sess.Preferences.SelectedCities, units)
	return c.Render("index", fiber.Map{
		"Username": sess.Username,
		"Units":    units,
		"Records":  records,
	})
}

// GetData handles GET /api/data
func (h *Handler) GetData(c *fiber.Ctx, sess session.Session) error {
	records := h.weather.Dashboard(c.UserContext(), sess.Preferences.SelectedCities, sess.Units())
	return c.JSON(records)
}

type coordinatesQuery struct {
	Lat string `query:"lat" validate:"required,latitude"`
	Lon string `query:"lon" validate:"required,longitude"`
}

func (h *Handler) coordinates(c *fiber.Ctx) (float64, float64, error) {
	var q coordinatesQuery
	if err := c.QueryParser(&q); err != nil {
		return 0, 0, err
	}
	if q.Lat == "" || q.Lon == "" {
		return 0, 0, errMissingCoordinates
	}
	if err := h.validate.Struct(q); err != nil {
		return 0, 0, err
	}
	lat, err := strconv.ParseFloat(q.Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err := strconv.ParseFloat(q.Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

var errMissingCoordinates = errors.New("missing coordinates")

// GetAlerts handles GET /api/weather_alerts
func (h *Handler) GetAlerts(c *fiber.Ctx, _ session.Session) error {
	lat, lon, err := h.coordinates(c)
	if errors.Is(err, errMissingCoordinates) {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Missing coordinates")
	}
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Invalid coordinates")
	}
	return c.JSON(fiber.Map{"alerts": h.weather.Alerts(c.UserContext(), lat, lon)})
}

// GetHistorical handles GET /api/historical_weather
func (h *Handler) GetHistorical(c *fiber.Ctx, sess session.Session) error {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	lat, lon, err := h.coordinates(c)
	if errors.Is(err, errMissingCoordinates) || startDate == "" || endDate == "" {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Missing required parameters")
	}
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "Invalid coordinates")
	}
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "start_date must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "end_date must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return errorResponse(c, fiber.StatusBadRequest, ReasonInvalidInput, "end_date is before start_date")
	}

	raw, err := h.weather.Historical(c.UserContext(), models.HistoricalQuery{
		Lat:       lat,
		Lon:       lon,
		StartDate: startDate,
		EndDate:   endDate,
		Units:     sess.Units(),
	})
	if err != nil {
		status := fiber.StatusInternalServerError
		var upstream *client.UpstreamError
		if errors.As(err, &upstream) && upstream.StatusCode >= fiber.StatusBadRequest {
			status = upstream.StatusCode
		}
		h.logger.Warn("Historical weather unavailable", zap.Int("status", status), zap.Error(err))
		return errorResponse(c, status, ReasonUpstreamUnavailable, "Failed to fetch historical data")
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
