package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const devSessionSecret = "dev-secret-change-me"

type Config struct {
	Server struct {
		Port         string
		ReadTimeout  time.Duration
		WriteTimeout time.Duration
		LogLevel     string
	}

	WeatherAPI struct {
		OpenWeatherMapAPIKey string
		ForecastURL          string
		AirQualityURL        string
		ArchiveURL           string
		AlertsURL            string
		Timeout              time.Duration
		ArchiveTimeout       time.Duration
	}

	CircuitBreaker struct {
		Threshold int
		Timeout   time.Duration
	}

	Storage struct {
		UsersFile  string
		CitiesFile string
	}

	Defaults struct {
		Cities []string
		Units  string
	}

	Session struct {
		Secret       string
		Expiration   time.Duration
		CookieSecure bool
	}

	RateLimit struct {
		LoginPerSecond float64
		LoginBurst     int
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if err := godotenv.Load(); err != nil {
		zap.L().Info("No .env file found, using environment variables")
	}

	cfg := &Config{}

	// Server configuration
	cfg.Server.Port = getEnv("FIBER_PORT", "8080")
	cfg.Server.ReadTimeout = parseDuration(getEnv("FIBER_READ_TIMEOUT", "10s"))
	cfg.Server.WriteTimeout = parseDuration(getEnv("FIBER_WRITE_TIMEOUT", "30s"))
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", "info")

	// Weather API configuration
	cfg.WeatherAPI.OpenWeatherMapAPIKey = getEnv("OPENWEATHERMAP_API_KEY", "")
	cfg.WeatherAPI.ForecastURL = getEnv("OPENMETEO_FORECAST_URL", "https://api.open-meteo.com/v1/forecast")
	cfg.WeatherAPI.AirQualityURL = getEnv("OPENMETEO_AIR_QUALITY_URL", "https://air-quality-api.open-meteo.com/v1/air-quality")
	cfg.WeatherAPI.ArchiveURL = getEnv("OPENMETEO_ARCHIVE_URL", "https://archive-api.open-meteo.com/v1/era5")
	cfg.WeatherAPI.AlertsURL = getEnv("OPENWEATHERMAP_ONECALL_URL", "https://api.openweathermap.org/data/3.0/onecall")
	cfg.WeatherAPI.Timeout = parseDuration(getEnv("UPSTREAM_TIMEOUT", "5s"))
	cfg.WeatherAPI.ArchiveTimeout = parseDuration(getEnv("ARCHIVE_TIMEOUT", "10s"))

	// Circuit breaker configuration
	cfg.CircuitBreaker.Threshold = parseInt(getEnv("CIRCUIT_BREAKER_THRESHOLD", "5"))
	cfg.CircuitBreaker.Timeout = parseDuration(getEnv("CIRCUIT_BREAKER_TIMEOUT", "30s"))

	// Storage configuration
	cfg.Storage.UsersFile = getEnv("USERS_FILE", "users.json")
	cfg.Storage.CitiesFile = getEnv("CITIES_FILE", "data/cities.csv")

	// Defaults for new users
	cfg.Defaults.Cities = splitList(getEnv("DEFAULT_CITIES", "New York,London,Paris,Tokyo,Sydney,Dubai"))
	cfg.Defaults.Units = getEnv("DEFAULT_UNITS", "celsius")

	// Session configuration
	cfg.Session.Secret = getEnv("SESSION_SECRET", devSessionSecret)
	cfg.Session.Expiration = parseDuration(getEnv("SESSION_EXPIRATION", "24h"))
	cfg.Session.CookieSecure = parseBool(getEnv("SESSION_COOKIE_SECURE", "false"))
	if cfg.Session.Secret == devSessionSecret {
		zap.L().Warn("SESSION_SECRET is not set, using the development secret")
	}

	// Login throttling
	cfg.RateLimit.LoginPerSecond = parseFloat(getEnv("LOGIN_RATE_LIMIT", "1"))
	cfg.RateLimit.LoginBurst = parseInt(getEnv("LOGIN_RATE_BURST", "5"))

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDuration(value string) time.Duration {
	duration, err := time.ParseDuration(value)
	if err != nil {
		zap.L().Warn("Failed to parse duration", zap.String("value", value), zap.Error(err))
		return 0
	}
	return duration
}

func parseInt(value string) int {
	intValue, err := strconv.Atoi(value)
	if err != nil {
		zap.L().Warn("Failed to parse int", zap.String("value", value), zap.Error(err))
		return 0
	}
	return intValue
}

func parseFloat(value string) float64 {
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		zap.L().Warn("Failed to parse float", zap.String("value", value), zap.Error(err))
		return 0
	}
	return floatValue
}

func parseBool(value string) bool {
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		zap.L().Warn("Failed to parse bool", zap.String("value", value), zap.Error(err))
		return false
	}
	return boolValue
}
