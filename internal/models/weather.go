package models

import "encoding/json"

// CurrentWeather holds the current conditions of a city in the user's units.
type CurrentWeather struct {
	Temperature   *float64 `json:"temperature"`
	WindSpeed     *float64 `json:"windspeed"`
	WindDirection *float64 `json:"winddirection"`
	DewPoint      *float64 `json:"dewpoint"`
	Visibility    *float64 `json:"visibility"`
	WeatherCode   *int     `json:"weather_code"`
}

type ForecastDay struct {
	Date        string   `json:"date"`
	WeatherCode *int     `json:"weathercode"`
	TempMax     *float64 `json:"temp_max"`
	TempMin     *float64 `json:"temp_min"`
	UVIndex     *float64 `json:"uv_index"`
}

// AirQuality is the air-quality sample for the current UTC hour.
type AirQuality struct {
	EuropeanAQI *float64 `json:"european_aqi"`
	PM10        *float64 `json:"pm10"`
	PM25        *float64 `json:"pm2_5"`
	PollenGrass *float64 `json:"pollen_grass"`
	PollenTree  *float64 `json:"pollen_tree"`
	PollenWeed  *float64 `json:"pollen_weed"`
}

// Alert is a severe-weather alert as delivered by the alerts provider. The
// named fields are what the dashboard reads; the provider's object is kept
// as received and re-encoded unchanged, including fields not listed here.
type Alert struct {
	SenderName  string   `json:"sender_name"`
	Event       string   `json:"event"`
	Start       int64    `json:"start"`
	End         int64    `json:"end"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`

	raw json.RawMessage
}

type alertFields Alert

func (a *Alert) UnmarshalJSON(data []byte) error {
	var f alertFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = Alert(f)
	a.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (a Alert) MarshalJSON() ([]byte, error) {
	if len(a.raw) > 0 {
		return a.raw, nil
	}
	return json.Marshal(alertFields(a))
}

// CityWeatherRecord is the per-city dashboard entry. Sourced fields are nil
// when their upstream failed.
type CityWeatherRecord struct {
	ID                     int64           `json:"id"`
	Name                   string          `json:"name"`
	Weather                *CurrentWeather `json:"weather"`
	DateTime               *string         `json:"datetime"`
	Timezone               string          `json:"timezone"`
	Forecast               []ForecastDay   `json:"forecast"`
	AirQuality             *AirQuality     `json:"air_quality"`
	Alerts                 []Alert         `json:"alerts"`
	OutfitRecommendation   string          `json:"outfit_recommendation"`
	ActivityRecommendation string          `json:"activity_recommendation"`
	WeatherTip             string          `json:"weather_tip"`
}

// HistoricalQuery is a date-range request against the archive provider.
type HistoricalQuery struct {
	Lat       float64
	Lon       float64
	StartDate string
	EndDate   string
	Units     Units
}
