package services

import (
	"time"

	_ "time/tzdata"
)

const isoMicros = "2006-01-02T15:04:05.000000"

// LocalTime formats now in the city's timezone as ISO 8601 with offset.
// An unknown zone falls back to UTC with a "Z" suffix; ok is false in that case.
func LocalTime(now time.Time, tz string) (formatted string, ok bool) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return now.UTC().Format(isoMicros) + "Z", false
	}
	return now.In(loc).Format(isoMicros + "-07:00"), true
}
