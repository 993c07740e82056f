package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/config"
	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/recommend"
	"github.com/bobby-s-dev/weather-dashboard/pkg/client"
)

type ForecastProvider interface {
	Forecast(ctx context.Context, lat, lon float64, units models.Units) (*client.Forecast, error)
}

type AirQualityProvider interface {
	Hourly(ctx context.Context, lat, lon float64) (*client.AirQualitySeries, error)
}

type AlertsProvider interface {
	Alerts(ctx context.Context, lat, lon float64) ([]models.Alert, error)
}

type ArchiveProvider interface {
	Daily(ctx context.Context, q models.HistoricalQuery) (json.RawMessage, error)
}

// DegradeObserver is told which record field was left empty.
type DegradeObserver interface {
	FieldDegraded(field string)
}

// Providers groups the upstream clients used by the Aggregator.
type Providers struct {
	Forecast   ForecastProvider
	AirQuality AirQualityProvider
	Alerts     AlertsProvider
	Archive    ArchiveProvider
}

// Aggregator builds dashboard records from the upstream providers. Every
// upstream failure degrades a single field; nothing here returns an error
// for a dashboard request.
type Aggregator struct {
	providers Providers
	logger    *zap.Logger
	degraded  DegradeObserver
	now       func() time.Time
}

// Observer is implemented by *metrics.Metrics.
type Observer interface {
	client.Observer
	DegradeObserver
}

func NewAggregator(cfg *config.Config, logger *zap.Logger, observer Observer) *Aggregator {
	clientConfig := client.ClientConfig{
		Timeout:        cfg.WeatherAPI.Timeout,
		Threshold:      cfg.CircuitBreaker.Threshold,
		BreakerTimeout: cfg.CircuitBreaker.Timeout,
		Observer:       observer,
	}
	archiveConfig := clientConfig
	archiveConfig.Timeout = cfg.WeatherAPI.ArchiveTimeout

	alerts := client.NewOpenWeatherClient(cfg.WeatherAPI.OpenWeatherMapAPIKey, cfg.WeatherAPI.AlertsURL, clientConfig, logger)
	if !alerts.Enabled() {
		logger.Warn("OPENWEATHERMAP_API_KEY is not set, weather alerts are disabled")
	}

	providers := Providers{
		Forecast:   client.NewOpenMeteoClient(cfg.WeatherAPI.ForecastURL, clientConfig, logger),
		AirQuality: client.NewAirQualityClient(cfg.WeatherAPI.AirQualityURL, clientConfig, logger),
		Alerts:     alerts,
		Archive:    client.NewArchiveClient(cfg.WeatherAPI.ArchiveURL, archiveConfig, logger),
	}
	logger.Info("Weather clients initialized",
		zap.String("forecast", cfg.WeatherAPI.ForecastURL),
		zap.String("air_quality", cfg.WeatherAPI.AirQualityURL),
		zap.String("archive", cfg.WeatherAPI.ArchiveURL),
		zap.Bool("alerts", alerts.Enabled()))

	return NewAggregatorWithProviders(providers, logger, observer)
}

func NewAggregatorWithProviders(providers Providers, logger *zap.Logger, degraded DegradeObserver) *Aggregator {
	return &Aggregator{
		providers: providers,
		logger:    logger,
		degraded:  degraded,
		now:       time.Now,
	}
}

// SetClock replaces the time source.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Dashboard fetches every city concurrently and returns the records in the
// order of cities.
func (a *Aggregator) Dashboard(ctx context.Context, cities []models.City, units models.Units) []models.CityWeatherRecord {
	records := make([]models.CityWeatherRecord, len(cities))
	startTime := time.Now()

	var wg sync.WaitGroup
	for i, city := range cities {
		wg.Add(1)
		go func(i int, city models.City) {
			defer wg.Done()
			records[i] = a.CityWeather(ctx, city, units)
		}(i, city)
	}
	wg.Wait()

	a.logger.Info("Dashboard data assembled",
		zap.Int("cities", len(cities)),
		zap.String("units", string(units)),
		zap.Duration("duration", time.Since(startTime)))
	return records
}

// CityWeather assembles one record. Forecast, air quality and alerts are
// fetched concurrently and fail independently.
func (a *Aggregator) CityWeather(ctx context.Context, city models.City, units models.Units) models.CityWeatherRecord {
	if !units.Valid() {
		units = models.DefaultUnits
	}
	log := a.logger.With(zap.Int64("city_id", city.ID), zap.String("city", city.Name))

	var (
		wg       sync.WaitGroup
		forecast *client.Forecast
		air      *models.AirQuality
		alerts   []models.Alert
	)
	wg.Add(3)

	go func() {
		defer wg.Done()
		f, err := a.providers.Forecast.Forecast(ctx, city.Lat, city.Lon, units)
		if err != nil {
			log.Warn("Forecast unavailable", zap.Error(err))
			a.degrade("weather")
			return
		}
		forecast = f
	}()

	go func() {
		defer wg.Done()
		air = a.airQuality(ctx, city, log)
	}()

	go func() {
		defer wg.Done()
		alerts = a.alerts(ctx, city.Lat, city.Lon, log)
	}()

	wg.Wait()

	record := models.CityWeatherRecord{
		ID:         city.ID,
		Name:       city.Name,
		Timezone:   city.TZ,
		Forecast:   []models.ForecastDay{},
		AirQuality: air,
		Alerts:     alerts,
	}

	local, ok := LocalTime(a.now(), city.TZ)
	if !ok {
		log.Warn("Unknown timezone, using UTC", zap.String("tz", city.TZ))
	}
	record.DateTime = &local

	var temperature *float64
	var code *int
	if forecast != nil {
		record.Weather = forecast.Current
		record.Forecast = forecast.Days
		if forecast.Current != nil {
			temperature = forecast.Current.Temperature
			code = forecast.Current.WeatherCode
		}
	}
	record.OutfitRecommendation = recommend.Outfit(temperature, code, units)
	record.ActivityRecommendation = recommend.Activity(temperature, code, units)
	record.WeatherTip = recommend.Tip(code)

	return record
}

func (a *Aggregator) airQuality(ctx context.Context, city models.City, log *zap.Logger) *models.AirQuality {
	series, err := a.providers.AirQuality.Hourly(ctx, city.Lat, city.Lon)
	if err != nil {
		log.Warn("Air quality unavailable", zap.Error(err))
		a.degrade("air_quality")
		return nil
	}
	hour := a.now().UTC().Hour()
	aq, ok := series.At(hour)
	if !ok {
		log.Warn("Air quality series too short for current hour",
			zap.Int("hour", hour),
			zap.Int("entries", len(series.Time)))
		a.degrade("air_quality")
		return nil
	}
	return aq
}

func (a *Aggregator) alerts(ctx context.Context, lat, lon float64, log *zap.Logger) []models.Alert {
	alerts, err := a.providers.Alerts.Alerts(ctx, lat, lon)
	if err != nil {
		log.Warn("Weather alerts unavailable", zap.Error(err))
		a.degrade("alerts")
		return []models.Alert{}
	}
	if alerts == nil {
		return []models.Alert{}
	}
	return alerts
}

// Alerts returns alerts for arbitrary coordinates; failures give an empty list.
func (a *Aggregator) Alerts(ctx context.Context, lat, lon float64) []models.Alert {
	log := a.logger.With(zap.Float64("lat", lat), zap.Float64("lon", lon))
	return a.alerts(ctx, lat, lon, log)
}

// Historical passes the archive response through. Unlike dashboard calls,
// failures are returned so the handler can propagate the upstream status.
func (a *Aggregator) Historical(ctx context.Context, q models.HistoricalQuery) (json.RawMessage, error) {
	raw, err := a.providers.Archive.Daily(ctx, q)
	if err != nil {
		a.logger.Error("Historical weather request failed",
			zap.Float64("lat", q.Lat),
			zap.Float64("lon", q.Lon),
			zap.String("start_date", q.StartDate),
			zap.String("end_date", q.EndDate),
			zap.Error(err))
		return nil, err
	}
	return raw, nil
}

func (a *Aggregator) degrade(field string) {
	if a.degraded != nil {
		a.degraded.FieldDegraded(field)
	}
}
