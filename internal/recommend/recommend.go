// Package recommend turns current conditions into outfit, activity and
// safety suggestions. Thresholds are authored in Celsius.
package recommend

import (
	"github.com/bobby-s-dev/weather-dashboard/internal/models"
	"github.com/bobby-s-dev/weather-dashboard/internal/weathercode"
)

// NotApplicable is returned when temperature or condition code is missing.
const NotApplicable = "N/A"

const (
	outfitStorm         = "Stay indoors or wear waterproof gear!"
	outfitPrecipitation = "Don't forget your umbrella and a waterproof jacket!"
	activityWet         = "Great day for indoor activities: read a book, watch a movie, or visit a museum!"
	tipStorm            = "Seek shelter immediately during a thunderstorm!"
	tipPrecipitation    = "Drive safely in wet conditions. Reduce speed and increase following distance."
	tipFog              = "Visibility is low due to fog. Drive carefully and use fog lights."
	tipDefault          = "Check the forecast regularly and stay informed!"
)

// Ordered coldest first.
var outfitBands = []string{
	"Bundle up! Heavy coat, hat, gloves, and warm boots.",
	"Warm jacket, sweater, and long pants.",
	"Light jacket or sweater, long-sleeved shirt.",
	"T-shirt and shorts/light pants. Maybe a light cover-up.",
	"Light clothing, like shorts and a t-shirt. Stay cool!",
}

var activityBands = []string{
	"Consider indoor sports, hot yoga, or a cozy cafe visit.",
	"Perfect weather for a walk, hiking, or cycling!",
	"Enjoy outdoor activities like picnics, swimming, or park visits!",
	"Head to the beach, go for a swim, or enjoy some ice cream!",
}

// ToCelsius converts t from units to Celsius.
func ToCelsius(t float64, units models.Units) float64 {
	if units == models.Fahrenheit {
		return (t - 32) * 5 / 9
	}
	return t
}

// OutfitBand returns the index into the outfit temperature bands
// (<0, [0,10), [10,20), [20,25), >=25).
func OutfitBand(tempC float64) int {
	switch {
	case tempC < 0:
		return 0
	case tempC < 10:
		return 1
	case tempC < 20:
		return 2
	case tempC < 25:
		return 3
	default:
		return 4
	}
}

// ActivityBand returns the index into the activity temperature bands
// (<5, [5,18), [18,28), >=28).
func ActivityBand(tempC float64) int {
	switch {
	case tempC < 5:
		return 0
	case tempC < 18:
		return 1
	case tempC < 28:
		return 2
	default:
		return 3
	}
}

func Outfit(temperature *float64, code *int, units models.Units) string {
	if temperature == nil || code == nil {
		return NotApplicable
	}
	switch weathercode.Classify(*code) {
	case weathercode.Storm:
		return outfitStorm
	case weathercode.Precipitation:
		return outfitPrecipitation
	}
	return outfitBands[OutfitBand(ToCelsius(*temperature, units))]
}

func Activity(temperature *float64, code *int, units models.Units) string {
	if temperature == nil || code == nil {
		return NotApplicable
	}
	if weathercode.IsWet(*code) {
		return activityWet
	}
	return activityBands[ActivityBand(ToCelsius(*temperature, units))]
}

// Tip depends on the condition code only.
func Tip(code *int) string {
	if code == nil {
		return NotApplicable
	}
	switch weathercode.Classify(*code) {
	case weathercode.Storm:
		return tipStorm
	case weathercode.Precipitation:
		return tipPrecipitation
	case weathercode.Fog:
		return tipFog
	default:
		return tipDefault
	}
}
