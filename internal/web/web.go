// Package web holds the server-rendered views of the dashboard.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/template/html/v2"

	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/weathercode"
)

//go:embed templates/*.html static/*
var assets embed.FS

func subFS(dir string) http.FileSystem {
	sub, err := fs.Sub(assets, dir)
	if err != nil {
		// the embed pattern guarantees the directory
		panic(err)
	}
	return http.FS(sub)
}

// Static serves the dashboard script.
func Static() http.FileSystem {
	return subFS("static")
}

// NewEngine returns the view engine for fiber.Config.Views.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(subFS("templates"), ".html")
	engine.AddFunc("weatherIcon", WeatherIcon)
	engine.AddFunc("weatherDescription", WeatherDescription)
	engine.AddFunc("dayOfWeek", DayOfWeek)
	engine.AddFunc("num", Num)
	engine.AddFunc("km", Km)
	engine.AddFunc("unitSymbol", UnitSymbol)
	return engine
}

// WeatherIcon maps a WMO code to a Font Awesome class.
func WeatherIcon(code *int) string {
	if code == nil {
		return weathercode.UnknownIcon
	}
	return weathercode.Icon(*code)
}

func WeatherDescription(code *int) string {
	if code == nil {
		return "Unknown"
	}
	return weathercode.Description(*code)
}

// DayOfWeek turns "YYYY-MM-DD" into a weekday name. Unparseable input is
// returned unchanged.
func DayOfWeek(date string) string {
	t, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return date
	}
	return t.Weekday().String()
}

// Num formats an optional reading with one decimal, "–" when missing.
func Num(v *float64) string {
	if v == nil {
		return "–"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// Km formats a distance in metres as kilometres.
func Km(metres *float64) string {
	if metres == nil {
		return "–"
	}
	return strconv.FormatFloat(*metres/1000, 'f', 1, 64)
}

func UnitSymbol(u models.Units) string {
	if u == models.Fahrenheit {
		return "°F"
	}
	return "°C"
}
