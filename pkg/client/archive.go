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
	DefaultArchiveURL = "https://archive-api.open-meteo.com/v1/era5"

	archiveDailyFields = "temperature_2m_max,temperature_2m_min,precipitation_sum"
)

type ArchiveClient struct {
	*BaseClient
	baseURL string
}

func NewArchiveClient(baseURL string, config ClientConfig, logger *zap.Logger) *ArchiveClient {
	if baseURL == "" {
		baseURL = DefaultArchiveURL
	}
	return &ArchiveClient{
		BaseClient: NewBaseClient("archive", config, logger),
		baseURL:    baseURL,
	}
}

// Daily returns the provider's daily max/min temperature and precipitation
// for the date range as raw JSON.
func (c *ArchiveClient) Daily(ctx context.Context, q models.HistoricalQuery) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(q.Lat))
	params.Set("longitude", formatCoord(q.Lon))
	params.Set("start_date", q.StartDate)
	params.Set("end_date", q.EndDate)
	params.Set("daily", archiveDailyFields)
	if q.Units.Valid() {
		params.Set("temperature_unit", string(q.Units))
	}

	data, err := c.Get(ctx, c.baseURL, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch historical weather: %w", err)
	}
	if !json.Valid(data) {
		return nil, &UpstreamError{Provider: c.name, Err: fmt.Errorf("archive returned invalid JSON")}
	}
	return json.RawMessage(data), nil
}
