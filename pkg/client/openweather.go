package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

const DefaultAlertsURL = "https://api.openweathermap.org/data/3.0/onecall"

type OpenWeatherClient struct {
	*BaseClient
	apiKey  string
	baseURL string
}

type OpenWeatherAlertsResponse struct {
	Lat    float64        `json:"lat"`
	Lon    float64        `json:"lon"`
	Alerts []models.Alert `json:"alerts"`
}

func NewOpenWeatherClient(apiKey, baseURL string, config ClientConfig, logger *zap.Logger) *OpenWeatherClient {
	if baseURL == "" {
		baseURL = DefaultAlertsURL
	}
	return &OpenWeatherClient{
		BaseClient: NewBaseClient("alerts", config, logger),
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// Enabled reports whether an API key is configured.
func (c *OpenWeatherClient) Enabled() bool {
	return c.apiKey != ""
}

// Alerts requests only the alerts block of the One Call API. Without an API
// key no request is made and the result is empty.
func (c *OpenWeatherClient) Alerts(ctx context.Context, lat, lon float64) ([]models.Alert, error) {
	if !c.Enabled() {
		c.logger.Debug("OpenWeatherMap API key not set, skipping weather alerts")
		return []models.Alert{}, nil
	}

	params := url.Values{}
	params.Set("lat", formatCoord(lat))
	params.Set("lon", formatCoord(lon))
	params.Set("appid", c.apiKey)
	params.Set("exclude", "current,minutely,hourly,daily")

	data, err := c.Get(ctx, c.baseURL, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch weather alerts: %w", err)
	}

	var response OpenWeatherAlertsResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &UpstreamError{Provider: c.name, Err: fmt.Errorf("failed to parse alerts response: %w", err)}
	}
	if response.Alerts == nil {
		return []models.Alert{}, nil
	}
	return response.Alerts, nil
}
