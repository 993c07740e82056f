package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bobby-s-dev/weather-dashboard/internal/config"
	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/recommend"
	"github.com/bobby-s-dev/weather-dashboard/pkg/client"
)

var (
	london = models.City{ID: 1, Name: "London", Lat: 51.5, Lon: -0.12, TZ: "Europe/London"}
	tokyo  = models.City{ID: 2, Name: "Tokyo", Lat: 35.7, Lon: 139.7, TZ: "Asia/Tokyo"}
	broken = models.City{ID: 3, Name: "Nowhere", Lat: 0, Lon: 0, TZ: "Mars/Olympus_Mons"}
)

// fixed clock at 10:30 UTC
var now = time.Date(2026, 10, 17, 10, 30, 0, 0, time.UTC)

type degradeRecorder struct {
	mu     sync.Mutex
	fields []string
}

func (d *degradeRecorder) FieldDegraded(field string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fields = append(d.fields, field)
}

func (d *degradeRecorder) ObserveUpstream(string, string, time.Duration) {}

type upstream struct {
	forecastStatus int
	airHours       int
	alertsStatus   int
	archiveStatus  int
}

func (u upstream) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		if u.forecastStatus != 0 {
			w.WriteHeader(u.forecastStatus)
			return
		}
		temp := 15.0
		if r.URL.Query().Get("temperature_unit") == "fahrenheit" {
			temp = 59.0
		}
		fmt.Fprintf(w, `{"current": {"temperature_2m": %v, "weather_code": 2, "windspeed_10m": 10,
			"winddirection_10m": 180, "dewpoint_2m": 7, "visibility": 20000},
			"daily": {"time": ["d0","d1","d2","d3","d4","d5"], "weathercode": [0,1,2,3,45,95],
			"temperature_2m_max": [1,2,3,4,5,6], "temperature_2m_min": [0,1,2,3,4,5],
			"uv_index_max": [1,1,1,1,1,1]}}`, temp)
	})
	mux.HandleFunc("/air", func(w http.ResponseWriter, r *http.Request) {
		times := make([]string, u.airHours)
		values := make([]string, u.airHours)
		for i := range times {
			times[i] = fmt.Sprintf("%q", fmt.Sprintf("2026-10-17T%02d:00", i))
			values[i] = fmt.Sprint(i)
		}
		list := "[" + strings.Join(values, ",") + "]"
		fmt.Fprintf(w, `{"hourly": {"time": [%s], "european_aqi": %s, "pm10": %s, "pm2_5": %s,
			"pollen_grass": %s, "pollen_tree": %s, "pollen_weed": %s}}`,
			strings.Join(times, ","), list, list, list, list, list, list)
	})
	mux.HandleFunc("/alerts", func(w http.ResponseWriter, r *http.Request) {
		if u.alertsStatus != 0 {
			w.WriteHeader(u.alertsStatus)
			return
		}
		w.Write([]byte(`{"alerts": [{"sender_name": "Met Office", "event": "Wind", "start": 1, "end": 2, "description": "Gusts", "tags": ["Wind"]}]}`))
	})
	mux.HandleFunc("/archive", func(w http.ResponseWriter, r *http.Request) {
		if u.archiveStatus != 0 {
			w.WriteHeader(u.archiveStatus)
			return
		}
		w.Write([]byte(`{"daily": {"time": ["2026-01-01"]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAggregator(t *testing.T, u upstream, apiKey string) (*Aggregator, *degradeRecorder) {
	t.Helper()
	srv := u.server(t)

	cfg := &config.Config{}
	cfg.WeatherAPI.ForecastURL = srv.URL + "/forecast"
	cfg.WeatherAPI.AirQualityURL = srv.URL + "/air"
	cfg.WeatherAPI.AlertsURL = srv.URL + "/alerts"
	cfg.WeatherAPI.ArchiveURL = srv.URL + "/archive"
	cfg.WeatherAPI.OpenWeatherMapAPIKey = apiKey
	cfg.WeatherAPI.Timeout = 2 * time.Second
	cfg.WeatherAPI.ArchiveTimeout = 2 * time.Second
	cfg.CircuitBreaker.Threshold = 100
	cfg.CircuitBreaker.Timeout = time.Minute

	rec := &degradeRecorder{}
	a := NewAggregator(cfg, zap.NewNop(), rec)
	a.SetClock(func() time.Time { return now })
	return a, rec
}

func TestCityWeatherFullRecord(t *testing.T) {
	a, rec := newTestAggregator(t, upstream{airHours: 24}, "key")

	r := a.CityWeather(context.Background(), london, models.Celsius)

	assert.Equal(t, london.ID, r.ID)
	assert.Equal(t, "London", r.Name)
	assert.Equal(t, "Europe/London", r.Timezone)
	require.NotNil(t, r.Weather)
	assert.Equal(t, 15.0, *r.Weather.Temperature)
	assert.Equal(t, 2, *r.Weather.WeatherCode)

	require.Len(t, r.Forecast, 5)
	assert.Equal(t, "d1", r.Forecast[0].Date)
	assert.Equal(t, "d5", r.Forecast[4].Date)
	assert.Equal(t, 95, *r.Forecast[4].WeatherCode)

	require.NotNil(t, r.AirQuality)
	assert.Equal(t, 10.0, *r.AirQuality.EuropeanAQI, "hour 10 UTC selects index 10")

	require.Len(t, r.Alerts, 1)
	assert.Equal(t, "Wind", r.Alerts[0].Event)

	require.NotNil(t, r.DateTime)
	assert.Equal(t, "2026-10-17T11:30:00.000000+01:00", *r.DateTime)

	assert.Equal(t, recommend.Outfit(r.Weather.Temperature, r.Weather.WeatherCode, models.Celsius), r.OutfitRecommendation)
	assert.NotEqual(t, recommend.NotApplicable, r.ActivityRecommendation)
	assert.NotEqual(t, recommend.NotApplicable, r.WeatherTip)
	assert.Empty(t, rec.fields)
}

func TestCityWeatherUnitsAreSentUpstream(t *testing.T) {
	a, _ := newTestAggregator(t, upstream{airHours: 24}, "")

	c := a.CityWeather(context.Background(), london, models.Celsius)
	f := a.CityWeather(context.Background(), london, models.Fahrenheit)

	assert.Equal(t, 59.0, *f.Weather.Temperature)
	// 15C and 59F fall in the same bands
	assert.Equal(t, c.OutfitRecommendation, f.OutfitRecommendation)
	assert.Equal(t, c.ActivityRecommendation, f.ActivityRecommendation)
}

func TestAirQualityAbsentWhenSeriesTooShort(t *testing.T) {
	a, rec := newTestAggregator(t, upstream{airHours: 5}, "")

	r := a.CityWeather(context.Background(), london, models.Celsius)

	assert.Nil(t, r.AirQuality)
	assert.NotNil(t, r.Weather, "other fields are unaffected")
	assert.Equal(t, []string{"air_quality"}, rec.fields)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"air_quality":null`)
}

func TestForecastFailureDegradesOnlyWeather(t *testing.T) {
	a, rec := newTestAggregator(t, upstream{forecastStatus: http.StatusInternalServerError, airHours: 24}, "key")

	r := a.CityWeather(context.Background(), london, models.Celsius)

	assert.Nil(t, r.Weather)
	assert.NotNil(t, r.Forecast)
	assert.Empty(t, r.Forecast)
	assert.NotNil(t, r.AirQuality)
	assert.Len(t, r.Alerts, 1)
	assert.Equal(t, recommend.NotApplicable, r.OutfitRecommendation)
	assert.Equal(t, recommend.NotApplicable, r.ActivityRecommendation)
	assert.Equal(t, recommend.NotApplicable, r.WeatherTip)
	assert.Equal(t, []string{"weather"}, rec.fields)
}

func TestAllUpstreamsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := &config.Config{}
	cfg.WeatherAPI.ForecastURL = srv.URL
	cfg.WeatherAPI.AirQualityURL = srv.URL
	cfg.WeatherAPI.AlertsURL = srv.URL
	cfg.WeatherAPI.ArchiveURL = srv.URL
	cfg.WeatherAPI.OpenWeatherMapAPIKey = "key"
	cfg.WeatherAPI.Timeout = time.Second

	a := NewAggregator(cfg, zap.NewNop(), nil)
	records := a.Dashboard(context.Background(), []models.City{london, tokyo}, models.Celsius)

	require.Len(t, records, 2)
	for _, r := range records {
		assert.Nil(t, r.Weather)
		assert.Nil(t, r.AirQuality)
		assert.NotNil(t, r.Alerts)
		assert.Empty(t, r.Alerts)
		assert.NotNil(t, r.DateTime)
	}
}

func TestDashboardPreservesOrder(t *testing.T) {
	a, _ := newTestAggregator(t, upstream{airHours: 24}, "")
	cities := []models.City{tokyo, london, broken}

	records := a.Dashboard(context.Background(), cities, models.Celsius)

	require.Len(t, records, 3)
	for i, c := range cities {
		assert.Equal(t, c.ID, records[i].ID)
	}
	assert.Empty(t, records[0].Alerts, "alerts are disabled without a key")
	assert.Equal(t, "2026-10-17T10:30:00.000000Z", *records[2].DateTime)
}

func TestDashboardEmpty(t *testing.T) {
	a, _ := newTestAggregator(t, upstream{airHours: 24}, "")
	records := a.Dashboard(context.Background(), nil, models.Celsius)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestAlertsFailureIsEmpty(t *testing.T) {
	a, rec := newTestAggregator(t, upstream{airHours: 24, alertsStatus: http.StatusUnauthorized}, "bad-key")

	alerts := a.Alerts(context.Background(), 1, 2)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
	assert.Equal(t, []string{"alerts"}, rec.fields)
}

func TestHistorical(t *testing.T) {
	a, _ := newTestAggregator(t, upstream{airHours: 24}, "")
	raw, err := a.Historical(context.Background(), models.HistoricalQuery{Lat: 1, Lon: 2, StartDate: "2026-01-01", EndDate: "2026-01-02"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"daily": {"time": ["2026-01-01"]}}`, string(raw))
}

func TestHistoricalPropagatesStatus(t *testing.T) {
	a, _ := newTestAggregator(t, upstream{airHours: 24, archiveStatus: http.StatusServiceUnavailable}, "")
	_, err := a.Historical(context.Background(), models.HistoricalQuery{Lat: 1, Lon: 2, StartDate: "a", EndDate: "b"})

	var upstreamErr *client.UpstreamError
	require.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, http.StatusServiceUnavailable, upstreamErr.StatusCode)
}

func TestLocalTime(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 123456000, time.UTC)

	got, ok := LocalTime(ts, "Asia/Tokyo")
	assert.True(t, ok)
	assert.Equal(t, "2026-01-02T12:04:05.123456+09:00", got)

	got, ok = LocalTime(ts, "UTC")
	assert.True(t, ok)
	assert.Equal(t, "2026-01-02T03:04:05.123456+00:00", got)

	got, ok = LocalTime(ts, "Not/AZone")
	assert.False(t, ok)
	assert.Equal(t, "2026-01-02T03:04:05.123456Z", got)
}
