// Package weathercode classifies WMO weather interpretation codes.
package weathercode

// Condition is the coarse class of a WMO code used by recommendations.
type Condition int

const (
	Other Condition = iota
	Fog
	Precipitation
	Storm
)

func (c Condition) String() string {
	switch c {
	case Fog:
		return "fog"
	case Precipitation:
		return "precipitation"
	case Storm:
		return "storm"
	default:
		return "other"
	}
}

var (
	stormCodes         = map[int]struct{}{95: {}}
	precipitationCodes = map[int]struct{}{
		51: {}, 53: {}, 55: {}, // drizzle
		61: {}, 63: {}, 65: {}, // rain
		80: {}, 81: {}, 82: {}, // rain showers
	}
	fogCodes = map[int]struct{}{45: {}, 48: {}}
)

// Classify maps a code to its condition class.
func Classify(code int) Condition {
	if _, ok := stormCodes[code]; ok {
		return Storm
	}
	if _, ok := precipitationCodes[code]; ok {
		return Precipitation
	}
	if _, ok := fogCodes[code]; ok {
		return Fog
	}
	return Other
}

// IsWet reports storm or precipitation.
func IsWet(code int) bool {
	c := Classify(code)
	return c == Storm || c == Precipitation
}

const UnknownIcon = "fa-question-circle"

var icons = map[int]string{
	0:  "fa-sun",
	1:  "fa-cloud-sun",
	2:  "fa-cloud-sun",
	3:  "fa-cloud",
	45: "fa-smog",
	48: "fa-smog",
	51: "fa-cloud-rain",
	53: "fa-cloud-rain",
	55: "fa-cloud-showers-heavy",
	61: "fa-cloud-rain",
	63: "fa-cloud-rain",
	65: "fa-cloud-showers-heavy",
	80: "fa-cloud-showers-heavy",
	81: "fa-cloud-showers-heavy",
	82: "fa-cloud-showers-heavy",
	95: "fa-bolt",
}

// Icon returns the Font Awesome class for a code.
func Icon(code int) string {
	if icon, ok := icons[code]; ok {
		return icon
	}
	return UnknownIcon
}

var descriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	56: "Light freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Heavy freezing rain",
	71: "Slight snow fall",
	73: "Moderate snow fall",
	75: "Heavy snow fall",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with slight hail",
	99: "Thunderstorm with heavy hail",
}

func Description(code int) string {
	if desc, ok := descriptions[code]; ok {
		return desc
	}
	return "Unknown"
}
