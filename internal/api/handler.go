package api

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-playground/validator"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/catalog"
	"github.com/bobby-s-dev/weather-dashboard/internal/metrics"
	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/session"
	"github.com/bobby-s-dev/weather-dashboard/internal/store"
)

// WeatherService is implemented by *services.Aggregator.
type WeatherService interface {
	Dashboard(ctx context.Context, cities []models.City, units models.Units) []models.CityWeatherRecord
	Alerts(ctx context.Context, lat, lon float64) []models.Alert
	Historical(ctx context.Context, q models.HistoricalQuery) (json.RawMessage, error)
}

// UserStore is implemented by *store.FileStore.
type UserStore interface {
	Create(username, password string) (store.UserRecord, error)
	Verify(username, password string) (store.UserRecord, error)
	SetUnits(username string, units models.Units) (models.Preferences, error)
	AddCity(username string, city models.City) (models.Preferences, bool, error)
	RemoveCity(username string, id int64) (models.Preferences, bool, error)
	Len() int
}

type Handler struct {
	weather  WeatherService
	users    UserStore
	catalog  *catalog.Catalog
	sessions *session.Manager
	metrics  *metrics.Metrics
	validate *validator.Validate
	logger   *zap.Logger
}

func NewHandler(
	weather WeatherService,
	users UserStore,
	cat *catalog.Catalog,
	sessions *session.Manager,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Handler {
	if cat == nil {
		cat = catalog.Empty()
	}
	return &Handler{
		weather:  weather,
		users:    users,
		catalog:  cat,
		sessions: sessions,
		metrics:  m,
		validate: validator.New(),
		logger:   logger,
	}
}

// GetHealth handles GET /health
func (h *Handler) GetHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
		"cities":    h.catalog.Len(),
		"users":     h.users.Len(),
	})
}

var startTime = time.Now()
