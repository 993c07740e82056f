package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

const (
	DefaultAirQualityURL = "https://air-quality-api.open-meteo.com/v1/air-quality"

	airQualityHourlyFields = "european_aqi,pm10,pm2_5,pollen_grass,pollen_tree,pollen_weed"
)

type AirQualityClient struct {
	*BaseClient
	baseURL string
}

// AirQualitySeries is one UTC day of hourly samples, index 0 = 00:00 UTC.
type AirQualitySeries struct {
	Time        []string   `json:"time"`
	EuropeanAQI []*float64 `json:"european_aqi"`
	PM10        []*float64 `json:"pm10"`
	PM25        []*float64 `json:"pm2_5"`
	PollenGrass []*float64 `json:"pollen_grass"`
	PollenTree  []*float64 `json:"pollen_tree"`
	PollenWeed  []*float64 `json:"pollen_weed"`
}

type airQualityResponse struct {
	Hourly *AirQualitySeries `json:"hourly"`
}

func NewAirQualityClient(baseURL string, config ClientConfig, logger *zap.Logger) *AirQualityClient {
	if baseURL == "" {
		baseURL = DefaultAirQualityURL
	}
	return &AirQualityClient{
		BaseClient: NewBaseClient("air_quality", config, logger),
		baseURL:    baseURL,
	}
}

// Hourly fetches today's hourly pollutant and pollen series in UTC.
func (c *AirQualityClient) Hourly(ctx context.Context, lat, lon float64) (*AirQualitySeries, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("hourly", airQualityHourlyFields)
	params.Set("forecast_days", "1")
	params.Set("timezone", "UTC")

	data, err := c.Get(ctx, c.baseURL, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch air quality: %w", err)
	}

	var response airQualityResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &UpstreamError{Provider: c.name, Err: fmt.Errorf("failed to parse air quality response: %w", err)}
	}
	if response.Hourly == nil {
		return &AirQualitySeries{}, nil
	}
	return response.Hourly, nil
}

// At returns the sample for the given hour index, or false when the series
// is shorter than that.
func (s *AirQualitySeries) At(hour int) (*models.AirQuality, bool) {
	if s == nil || hour < 0 || hour >= len(s.Time) {
		return nil, false
	}
	return &models.AirQuality{
		EuropeanAQI: at(s.EuropeanAQI, hour),
		PM10:        at(s.PM10, hour),
		PM25:        at(s.PM25, hour),
		PollenGrass: at(s.PollenGrass, hour),
		PollenTree:  at(s.PollenTree, hour),
		PollenWeed:  at(s.PollenWeed, hour),
	}, true
}
