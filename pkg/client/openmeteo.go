package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
)

const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

	forecastCurrentFields = "temperature_2m,weather_code,windspeed_10m,winddirection_10m,dewpoint_2m,visibility"
	forecastDailyFields   = "weathercode,temperature_2m_max,temperature_2m_min,uv_index_max"
	// today plus the five days shown on the dashboard
	forecastDays = 6
)

// ForecastDays is the number of days after today returned by Forecast.
const ForecastDays = forecastDays - 1

type OpenMeteoClient struct {
	*BaseClient
	baseURL string
}

type OpenMeteoForecastResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Current   *struct {
		Time          string   `json:"time"`
		Temperature2M *float64 `json:"temperature_2m"`
		WeatherCode   *int     `json:"weather_code"`
		WindSpeed10M  *float64 `json:"windspeed_10m"`
		WindDirection *float64 `json:"winddirection_10m"`
		DewPoint2M    *float64 `json:"dewpoint_2m"`
		Visibility    *float64 `json:"visibility"`
	} `json:"current"`
	Daily *struct {
		Time             []string   `json:"time"`
		WeatherCode      []*int     `json:"weathercode"`
		Temperature2MMax []*float64 `json:"temperature_2m_max"`
		Temperature2MMin []*float64 `json:"temperature_2m_min"`
		UVIndexMax       []*float64 `json:"uv_index_max"`
	} `json:"daily"`
}

// Forecast is the normalized result of a forecast call. Current is nil
// when the provider omitted current conditions.
type Forecast struct {
	Current *models.CurrentWeather
	Days    []models.ForecastDay
}

func NewOpenMeteoClient(baseURL string, config ClientConfig, logger *zap.Logger) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &OpenMeteoClient{
		BaseClient: NewBaseClient("forecast", config, logger),
		baseURL:    baseURL,
	}
}

// Forecast fetches current conditions and the daily forecast. Temperatures
// come back in units; conversion happens upstream.
func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lon float64, units models.Units) (*Forecast, error) {
	params := url.Values{}
	params.Set("latitude", formatCoord(lat))
	params.Set("longitude", formatCoord(lon))
	params.Set("current", forecastCurrentFields)
	params.Set("daily", forecastDailyFields)
	params.Set("forecast_days", strconv.Itoa(forecastDays))
	params.Set("timezone", "UTC")
	params.Set("temperature_unit", string(units))

	data, err := c.Get(ctx, c.baseURL, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch forecast: %w", err)
	}

	var response OpenMeteoForecastResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, &UpstreamError{Provider: c.name, Err: fmt.Errorf("failed to parse forecast response: %w", err)}
	}

	forecast := &Forecast{Days: []models.ForecastDay{}}

	if cw := response.Current; cw != nil {
		forecast.Current = &models.CurrentWeather{
			Temperature:   cw.Temperature2M,
			WindSpeed:     cw.WindSpeed10M,
			WindDirection: cw.WindDirection,
			DewPoint:      cw.DewPoint2M,
			Visibility:    cw.Visibility,
			WeatherCode:   cw.WeatherCode,
		}
	}

	if daily := response.Daily; daily != nil {
		// day 0 is today and is not part of the forecast
		for i := 1; i < forecastDays && i < len(daily.Time); i++ {
			forecast.Days = append(forecast.Days, models.ForecastDay{
				Date:        daily.Time[i],
				WeatherCode: at(daily.WeatherCode, i),
				TempMax:     at(daily.Temperature2MMax, i),
				TempMin:     at(daily.Temperature2MMin, i),
				UVIndex:     at(daily.UVIndexMax, i),
			})
		}
	}

	return forecast, nil
}

func at[T any](values []*T, i int) *T {
	if i < 0 || i >= len(values) {
		return nil
	}
	return values[i]
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
